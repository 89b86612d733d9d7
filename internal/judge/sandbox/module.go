package sandbox

import (
	"strings"

	appErr "codearena/pkg/errors"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

const moduleFileName = "submission.js"

// Module is a parsed and compiled submission. A Module is immutable and may
// be instantiated by any number of sandbox runs.
type Module struct {
	source   string
	program  *goja.Program
	declared []string
}

// Source returns the original submission text.
func (m *Module) Source() string { return m.source }

// Declared returns the top-level binding names found in the source, in
// declaration order.
func (m *Module) Declared() []string {
	out := make([]string, len(m.declared))
	copy(out, m.declared)
	return out
}

// Loader turns submission source text into a Module.
type Loader struct {
	// MaxSourceBytes rejects larger sources before parsing. Zero disables the check.
	MaxSourceBytes int
}

// Load parses and compiles source. Any grammar error, including early errors
// reported by the compiler, is returned as a ParseError.
func (l Loader) Load(source string) (*Module, error) {
	if l.MaxSourceBytes > 0 && len(source) > l.MaxSourceBytes {
		return nil, appErr.Newf(appErr.ParseError, "source exceeds %d bytes", l.MaxSourceBytes)
	}
	if strings.TrimSpace(source) == "" {
		return nil, appErr.New(appErr.ParseError).WithMessage("source is empty")
	}

	prg, err := parser.ParseFile(nil, moduleFileName, source, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ParseError, "%s", err.Error())
	}
	compiled, err := goja.CompileAST(prg, false)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ParseError, "%s", err.Error())
	}
	return &Module{
		source:   source,
		program:  compiled,
		declared: declaredNames(prg),
	}, nil
}

// declaredNames collects names bound by top-level declarations. Nested
// functions and block-scoped bindings inside statements are not entry points.
func declaredNames(prg *ast.Program) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(id *ast.Identifier) {
		if id == nil {
			return
		}
		name := string(id.Name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	addBindings := func(list []*ast.Binding) {
		for _, b := range list {
			if id, ok := b.Target.(*ast.Identifier); ok {
				add(id)
			}
		}
	}

	for _, stmt := range prg.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			if s.Function != nil {
				add(s.Function.Name)
			}
		case *ast.VariableStatement:
			addBindings(s.List)
		case *ast.LexicalDeclaration:
			addBindings(s.List)
		case *ast.ClassDeclaration:
			if s.Class != nil {
				add(s.Class.Name)
			}
		}
	}
	return names
}
