// Package invoker runs one test case invocation against a sandbox registry.
package invoker

import (
	"regexp"
	"strconv"
	"strings"

	"codearena/internal/judge/sandbox"
	appErr "codearena/pkg/errors"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Invocation is a parsed test case call of the form name(args).
type Invocation struct {
	Function string
	// Args is the JavaScript source between the outer parentheses.
	Args string
}

// Parse splits an invocation expression into its function name and
// argument source. Argument text is not validated here; it is evaluated
// inside the sandbox.
func Parse(expr string) (Invocation, error) {
	expr = strings.TrimSpace(expr)
	open := strings.IndexByte(expr, '(')
	if open <= 0 || !strings.HasSuffix(expr, ")") {
		return Invocation{}, appErr.Newf(appErr.TestCaseInvalid, "invocation %q must look like name(args)", expr)
	}
	name := strings.TrimSpace(expr[:open])
	if !identifierPattern.MatchString(name) {
		return Invocation{}, appErr.Newf(appErr.TestCaseInvalid, "invocation target %q is not an identifier", name)
	}
	return Invocation{
		Function: name,
		Args:     strings.TrimSpace(expr[open+1 : len(expr)-1]),
	}, nil
}

// Check parses expr and verifies that its argument list is valid syntax.
func Check(expr string) (Invocation, error) {
	inv, err := Parse(expr)
	if err != nil {
		return Invocation{}, err
	}
	if _, err := parser.ParseFile(nil, "arguments.js", "["+inv.Args+"\n]", 0, parser.WithDisableSourceMaps); err != nil {
		return Invocation{}, appErr.Wrapf(err, appErr.TestCaseInvalid, "invocation %q has invalid arguments: %s", expr, err.Error())
	}
	return inv, nil
}

// RawResult is the outcome of a single call. Exactly one of Value or Err is
// meaningful; Value holds host values ready for canonicalization.
type RawResult struct {
	Value any
	Err   error
}

// Invoke resolves inv against the registry of env, evaluates its arguments
// inside the sandbox and calls the function once.
//
// A missing function is a LoadError. Exceptions thrown by the arguments or
// the call are RuntimeErrors, an interrupted call is a TimeoutError, and a
// result that cannot be exported is a SerializationError.
func Invoke(env *sandbox.Env, inv Invocation) RawResult {
	fn, ok := env.Registry().Lookup(inv.Function)
	if !ok {
		return RawResult{Err: appErr.Newf(appErr.LoadError, "function %s is not defined", inv.Function)}
	}

	args, err := evalArgs(env, inv.Args)
	if err != nil {
		return RawResult{Err: err}
	}
	ret, err := env.Call(fn, args...)
	if err != nil {
		return RawResult{Err: err}
	}
	value, err := env.Export(ret)
	if err != nil {
		return RawResult{Err: err}
	}
	return RawResult{Value: value}
}

// evalArgs evaluates the argument source as an array literal so every
// argument is a fresh value owned by the sandbox.
func evalArgs(env *sandbox.Env, src string) ([]goja.Value, error) {
	if src == "" {
		return nil, nil
	}
	list, err := env.Eval("arguments.js", "["+src+"\n]")
	if err != nil {
		return nil, err
	}
	obj, ok := list.(*goja.Object)
	if !ok {
		return nil, appErr.New(appErr.RuntimeError).WithMessage("arguments did not evaluate to a list")
	}
	n := obj.Get("length").ToInteger()
	args := make([]goja.Value, 0, n)
	for i := int64(0); i < n; i++ {
		args = append(args, obj.Get(strconv.FormatInt(i, 10)))
	}
	return args, nil
}
