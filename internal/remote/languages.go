package remote

import (
	"sort"
	"strings"
)

// DefaultLanguage is used for unknown language names.
const DefaultLanguage = "javascript"

// Judge0 language ids by editor language name.
var languageIDs = map[string]int{
	"javascript": 63,
	"python":     71,
	"cpp":        54,
	"c":          50,
	"java":       62,
	"go":         60,
	"rust":       73,
	"typescript": 74,
}

// LanguageID maps a language name to its Judge0 id. Unknown names fall back
// to DefaultLanguage.
func LanguageID(name string) int {
	if id, ok := languageIDs[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id
	}
	return languageIDs[DefaultLanguage]
}

// KnownLanguage reports whether name has its own table entry.
func KnownLanguage(name string) bool {
	_, ok := languageIDs[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// LanguageNames returns the table's language names, sorted.
func LanguageNames() []string {
	names := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
