// Package sandbox executes submitted JavaScript inside disposable goja
// runtimes.
//
// Every Run builds a brand-new runtime with no host bindings besides a
// capturing console, evaluates the module once, builds the registry of
// callables and hands it to the body. The runtime is dropped when Run
// returns; nothing is shared between runs.
package sandbox

import (
	"context"
	"errors"
	"math/rand"
	"time"

	appErr "codearena/pkg/errors"

	"github.com/dop251/goja"
)

// Config bounds a single sandbox run.
type Config struct {
	// Timeout is the wall-clock budget of one run. A context deadline that
	// comes earlier takes precedence.
	Timeout time.Duration `yaml:"timeout"`
	// MaxCallStackSize bounds JavaScript recursion depth.
	MaxCallStackSize int `yaml:"maxCallStackSize"`
	// MaxConsoleBytes caps captured console output.
	MaxConsoleBytes int `yaml:"maxConsoleBytes"`
	// RandSeed seeds Math.random.
	RandSeed int64 `yaml:"randSeed"`
	// Clock is the fixed instant reported by Date.
	Clock time.Time `yaml:"clock"`
}

// DefaultConfig returns the limits used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		MaxCallStackSize: 4096,
		MaxConsoleBytes:  64 * 1024,
		RandSeed:         1,
		Clock:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxCallStackSize <= 0 {
		c.MaxCallStackSize = def.MaxCallStackSize
	}
	if c.MaxConsoleBytes <= 0 {
		c.MaxConsoleBytes = def.MaxConsoleBytes
	}
	if c.RandSeed == 0 {
		c.RandSeed = def.RandSeed
	}
	if c.Clock.IsZero() {
		c.Clock = def.Clock
	}
	return c
}

// Execution describes side-channel facts about a finished run.
type Execution struct {
	Console   []string
	Truncated bool
	Elapsed   time.Duration
}

// Body runs with the loaded registry available. Values obtained from env
// must not be used after the body returns.
type Body func(env *Env) error

// Runner runs a module in a fresh sandbox.
type Runner interface {
	Run(ctx context.Context, m *Module, body Body) (Execution, error)
}

// Engine creates one isolated runtime per Run call.
type Engine struct {
	cfg Config
}

// New creates an engine with the given limits.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the effective limits.
func (e *Engine) Config() Config { return e.cfg }

// timeLimitMessage is shared by the run timer and the context deadline so
// that whichever fires first yields the same report text.
const timeLimitMessage = "execution time limit exceeded"

type interruptReason struct {
	code    appErr.ErrorCode
	message string
}

// Run evaluates m once in a fresh runtime and calls body with its registry.
//
// Errors are coded: TimeoutError when the budget or the context deadline
// expires, SubmissionCanceled when ctx is canceled, RuntimeError for
// exceptions thrown while evaluating the module. Errors returned by body are
// passed through.
func (e *Engine) Run(ctx context.Context, m *Module, body Body) (exec Execution, err error) {
	if m == nil {
		return exec, appErr.New(appErr.JudgeSystemError).WithMessage("module is nil")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return exec, contextError(ctxErr)
	}
	budget := e.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < budget {
			budget = remaining
		}
	}
	if budget <= 0 {
		return exec, appErr.New(appErr.TimeoutError).WithMessage(timeLimitMessage)
	}

	start := time.Now()
	vm := goja.New()
	out := newConsole(e.cfg.MaxConsoleBytes)
	if err := e.configure(vm, out); err != nil {
		return exec, appErr.Wrapf(err, appErr.JudgeSystemError, "configure sandbox failed")
	}

	timer := time.AfterFunc(budget, func() {
		vm.Interrupt(interruptReason{code: appErr.TimeoutError, message: timeLimitMessage})
	})
	stopCtx := context.AfterFunc(ctx, func() {
		vm.Interrupt(interruptFromContext(ctx.Err()))
	})

	defer func() {
		timer.Stop()
		stopCtx()
		if r := recover(); r != nil {
			err = classifyPanic(r)
		}
		exec.Console = out.lines
		exec.Truncated = out.truncated
		exec.Elapsed = time.Since(start)
	}()

	if _, runErr := vm.RunProgram(m.program); runErr != nil {
		return exec, classify(runErr)
	}
	env := &Env{vm: vm}
	env.registry = buildRegistry(vm, m)
	if body == nil {
		return exec, nil
	}
	return exec, body(env)
}

func (e *Engine) configure(vm *goja.Runtime, out *console) error {
	vm.SetMaxCallStackSize(e.cfg.MaxCallStackSize)
	vm.SetRandSource(rand.New(rand.NewSource(e.cfg.RandSeed)).Float64)
	clock := e.cfg.Clock
	vm.SetTimeSource(func() time.Time { return clock })
	return vm.Set("console", out.bind(vm))
}

func interruptFromContext(err error) interruptReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return interruptReason{code: appErr.TimeoutError, message: timeLimitMessage}
	}
	return interruptReason{code: appErr.SubmissionCanceled, message: "submission canceled"}
}

func contextError(err error) error {
	r := interruptFromContext(err)
	return appErr.Wrapf(err, r.code, "%s", r.message)
}

// classify maps an error raised by the runtime onto the judge taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var coded *appErr.Error
	if errors.As(err, &coded) {
		return err
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if r, ok := interrupted.Value().(interruptReason); ok {
			return appErr.New(r.code).WithMessage(r.message)
		}
		return appErr.New(appErr.TimeoutError).WithMessage("execution interrupted")
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return appErr.New(appErr.RuntimeError).WithMessage(exceptionMessage(exception))
	}
	return appErr.New(appErr.RuntimeError).WithMessage(err.Error())
}

// classifyPanic handles runtime errors that surface as panics when host code
// touches sandbox values, for example a getter interrupted mid-export.
func classifyPanic(r any) error {
	switch v := r.(type) {
	case error:
		return classify(v)
	case goja.Value:
		return appErr.New(appErr.RuntimeError).WithMessage("uncaught exception")
	default:
		return appErr.Newf(appErr.RuntimeError, "%v", v)
	}
}

// exceptionMessage returns the thrown value's string form, such as
// "TypeError: x is not a function", without the stack trace. The conversion
// may run a user-defined toString; if that is interrupted the fixed message
// is used, since the interrupt has already been consumed.
func exceptionMessage(ex *goja.Exception) (msg string) {
	defer func() {
		if recover() != nil {
			msg = "uncaught exception"
		}
	}()
	if v := ex.Value(); v != nil {
		return v.String()
	}
	return "uncaught exception"
}
