package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"codearena/internal/cli/backend"
	"codearena/internal/cli/state"
)

// Field defines a CLI input field. Fields are bound from positional
// arguments in order, or from key=value pairs.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Required bool
	// Remember fills the field from saved state when it is omitted.
	Remember func(st *state.State) string
}

// Env is what a command runs against.
type Env struct {
	Backend    backend.Backend
	Out        io.Writer
	State      *state.State
	PrettyJSON bool
}

// Command defines a CLI command binding.
type Command struct {
	Name    string
	Summary string
	Fields  []Field
	Run     func(ctx context.Context, env *Env, params Params) error
}

// Usage renders name and fields, e.g. "submit <id> <file>".
func (c Command) Usage() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, f := range c.Fields {
		if f.Required {
			fmt.Fprintf(&b, " <%s>", f.Name)
		} else {
			fmt.Fprintf(&b, " [%s=...]", f.Name)
		}
	}
	return b.String()
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// Bind turns tokens into params. Tokens containing "=" are key=value pairs,
// the rest are positional and fill cmd's fields in order.
func Bind(cmd Command, tokens []string) (Params, error) {
	params := Params{}
	var positional []string
	for _, token := range tokens {
		if key, value, ok := strings.Cut(token, "="); ok && key != "" {
			params.Set(key, value)
			continue
		}
		positional = append(positional, token)
	}
	if len(positional) > len(cmd.Fields) {
		return nil, fmt.Errorf("too many arguments, usage: %s", cmd.Usage())
	}
	params.Canonicalize(cmd.Fields)
	for i, value := range positional {
		name := cmd.Fields[i].Name
		if params.Has(name) {
			return nil, fmt.Errorf("%s given twice", name)
		}
		params.Set(name, value)
	}
	return params, nil
}

// Missing lists the required fields still empty after applying remembered
// state.
func Missing(cmd Command, params Params, st *state.State) []Field {
	var out []Field
	for _, field := range cmd.Fields {
		if params.Get(field.Name) != "" {
			continue
		}
		if field.Remember != nil && st != nil {
			if v := field.Remember(st); v != "" {
				params.Set(field.Name, v)
				continue
			}
		}
		if field.Required {
			out = append(out, field)
		}
	}
	return out
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
