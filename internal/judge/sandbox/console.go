package sandbox

import (
	"strings"

	"github.com/dop251/goja"
)

var consoleLevels = []string{"log", "info", "warn", "error", "debug"}

// console captures output written through the console global.
type console struct {
	limit     int
	size      int
	lines     []string
	truncated bool
}

func newConsole(limit int) *console {
	return &console{limit: limit}
}

func (c *console) bind(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	for _, level := range consoleLevels {
		_ = obj.Set(level, func(call goja.FunctionCall) goja.Value {
			c.write(level, call.Arguments)
			return goja.Undefined()
		})
	}
	return obj
}

func (c *console) write(level string, args []goja.Value) {
	if c.truncated {
		return
	}
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			parts = append(parts, "undefined")
			continue
		}
		parts = append(parts, arg.String())
	}
	line := strings.Join(parts, " ")
	if level != "log" {
		line = "[" + level + "] " + line
	}
	if c.size+len(line) > c.limit {
		c.truncated = true
		return
	}
	c.size += len(line)
	c.lines = append(c.lines, line)
}
