// Package canonical renders host values into the stable text form used to
// compare a submission's result with a test case's expected output.
//
// The format is JSON-shaped but not JSON: object keys are sorted, there is no
// whitespace, numbers follow JavaScript Number#toString, and the non-JSON
// values NaN, Infinity, -Infinity and undefined render as bare literal tokens.
package canonical

import (
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	appErr "codearena/pkg/errors"
)

type undefined struct{}

// Undefined is the host representation of a JavaScript undefined value.
// It renders as `undefined`, distinct from nil which renders as `null`.
var Undefined = undefined{}

// MaxDepth is the deepest array or object nesting a value may have.
const MaxDepth = 1000

// Canonicalize returns the canonical text form of v.
// A cyclic value or one nested deeper than MaxDepth yields a SerializationError.
func Canonicalize(v any) (string, error) {
	e := &encoder{visiting: make(map[uintptr]struct{})}
	if err := e.encode(reflect.ValueOf(v), v); err != nil {
		return "", err
	}
	return e.buf.String(), nil
}

type encoder struct {
	buf      strings.Builder
	visiting map[uintptr]struct{}
	depth    int
}

func (e *encoder) encode(rv reflect.Value, raw any) error {
	switch x := raw.(type) {
	case nil:
		e.buf.WriteString("null")
		return nil
	case undefined:
		e.buf.WriteString("undefined")
		return nil
	case bool:
		e.buf.WriteString(strconv.FormatBool(x))
		return nil
	case string:
		writeString(&e.buf, x)
		return nil
	case float64:
		e.buf.WriteString(FormatNumber(x))
		return nil
	case float32:
		e.buf.WriteString(FormatNumber(float64(x)))
		return nil
	case int64:
		e.buf.WriteString(strconv.FormatInt(x, 10))
		return nil
	case int:
		e.buf.WriteString(strconv.Itoa(x))
		return nil
	case *big.Int:
		if x == nil {
			e.buf.WriteString("null")
			return nil
		}
		e.buf.WriteString(x.String())
		e.buf.WriteByte('n')
		return nil
	case []any:
		if x == nil {
			e.buf.WriteString("null")
			return nil
		}
		return e.encodeList(rv, len(x), func(i int) (reflect.Value, any) {
			return reflect.ValueOf(x[i]), x[i]
		})
	case map[string]any:
		if x == nil {
			e.buf.WriteString("null")
			return nil
		}
		return e.encodeObject(rv, sortedKeys(x), func(k string) (reflect.Value, any) {
			return reflect.ValueOf(x[k]), x[k]
		})
	}
	return e.encodeReflect(rv)
}

// encodeReflect covers the remaining Go kinds so that host callers can pass
// typed slices, maps and structs without converting them first.
func (e *encoder) encodeReflect(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Invalid:
		e.buf.WriteString("null")
	case reflect.Bool:
		e.buf.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.buf.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		e.buf.WriteString(FormatNumber(rv.Float()))
	case reflect.String:
		writeString(&e.buf, rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			ptr := rv.Pointer()
			if _, seen := e.visiting[ptr]; seen {
				return cycleError()
			}
			e.visiting[ptr] = struct{}{}
			defer delete(e.visiting, ptr)
		}
		elem := rv.Elem()
		return e.encode(elem, elem.Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.encodeList(rv, rv.Len(), func(i int) (reflect.Value, any) {
			item := rv.Index(i)
			return item, item.Interface()
		})
	case reflect.Map:
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		keys := make([]string, 0, rv.Len())
		index := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := mapKeyString(iter.Key())
			keys = append(keys, k)
			index[k] = iter.Value()
		}
		sort.Strings(keys)
		return e.encodeObject(rv, keys, func(k string) (reflect.Value, any) {
			item := index[k]
			return item, item.Interface()
		})
	case reflect.Struct:
		t := rv.Type()
		fields := make(map[string]reflect.Value, t.NumField())
		keys := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			keys = append(keys, f.Name)
			fields[f.Name] = rv.Field(i)
		}
		sort.Strings(keys)
		return e.encodeObject(reflect.Value{}, keys, func(k string) (reflect.Value, any) {
			item := fields[k]
			return item, item.Interface()
		})
	default:
		// Functions, channels and other host-only kinds have no value form.
		e.buf.WriteString("undefined")
	}
	return nil
}

func (e *encoder) encodeList(rv reflect.Value, n int, at func(int) (reflect.Value, any)) error {
	release, err := e.enter(rv)
	if err != nil {
		return err
	}
	defer release()

	e.buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		item, raw := at(i)
		if err := e.encode(item, raw); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) encodeObject(rv reflect.Value, keys []string, at func(string) (reflect.Value, any)) error {
	release, err := e.enter(rv)
	if err != nil {
		return err
	}
	defer release()

	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		writeString(&e.buf, k)
		e.buf.WriteByte(':')
		item, raw := at(k)
		if err := e.encode(item, raw); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

// enter marks a reference value as being on the current path. Only the
// ancestor chain is tracked, so shared acyclic references are accepted.
// Every container counts toward MaxDepth.
func (e *encoder) enter(rv reflect.Value) (func(), error) {
	if e.depth >= MaxDepth {
		return nil, DepthError()
	}
	e.depth++
	leave := func() { e.depth-- }
	if !rv.IsValid() {
		return leave, nil
	}
	var ptr uintptr
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		ptr = rv.Pointer()
	case reflect.Slice:
		if rv.Len() == 0 {
			return leave, nil
		}
		ptr = rv.Pointer()
	default:
		return leave, nil
	}
	if _, seen := e.visiting[ptr]; seen {
		e.depth--
		return nil, cycleError()
	}
	e.visiting[ptr] = struct{}{}
	return func() {
		delete(e.visiting, ptr)
		e.depth--
	}, nil
}

func cycleError() error {
	return appErr.New(appErr.SerializationError).WithMessage("value contains a cycle")
}

// DepthError reports a value nested deeper than MaxDepth.
func DepthError() error {
	return appErr.Newf(appErr.SerializationError, "result nesting exceeds %d levels", MaxDepth)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mapKeyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return FormatNumber(k.Float())
	case reflect.Bool:
		return strconv.FormatBool(k.Bool())
	}
	e := &encoder{visiting: make(map[uintptr]struct{})}
	if err := e.encode(k, k.Interface()); err != nil {
		return "?"
	}
	return e.buf.String()
}

// FormatNumber formats f the way JavaScript's Number#toString does.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a double-quoted JSON string literal. Invalid UTF-8
// bytes are replaced with U+FFFD so the output is always valid text.
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				if c < 0x20 {
					b.WriteString(`\u00`)
					b.WriteByte(hexDigits[c>>4])
					b.WriteByte(hexDigits[c&0xf])
				} else {
					b.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString("\uFFFD")
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
}
