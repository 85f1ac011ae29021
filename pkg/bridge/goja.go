package bridge

import (
	"context"
	"errors"
	"strings"

	"github.com/dop251/goja"
)

// DefaultMaxCallStack is the call stack limit of the goja evaluator when
// GojaConfig.MaxCallStack is not positive. Without a limit, runaway recursion
// would overflow the Go stack and crash the process.
const DefaultMaxCallStack = 4096

// GojaConfig configures the goja evaluator.
type GojaConfig struct {
	MaxCallStack int
}

// Goja is an Evaluator backed by an embedded JavaScript engine. Every call to
// Eval uses a fresh VM, so it is safe for concurrent use.
type Goja struct {
	maxCallStack int
}

// NewGoja creates a goja evaluator.
func NewGoja(cfg GojaConfig) *Goja {
	if cfg.MaxCallStack <= 0 {
		cfg.MaxCallStack = DefaultMaxCallStack
	}
	return &Goja{cfg.MaxCallStack}
}

// Returns what e.message evaluates to for a thrown value e, or String(e) when
// e is null or undefined. It is compiled before the code runs, so the code
// cannot replace the String it uses.
const messageOfSource = `(function (S) {
	return function (e) { return e === null || e === undefined ? S(e) : S(e.message) }
})(String)`

// Eval constructs a function from code with the Function constructor and
// calls it, with a console object whose log method writes to sink. If ctx is
// done before the code finishes, the VM is interrupted.
func (g *Goja) Eval(ctx context.Context, code string, sink Sink) error {
	vm := goja.New()
	vm.SetMaxCallStackSize(g.maxCallStack)

	c, err := newConsole(vm, sink)
	if err != nil {
		return err
	}
	if err := vm.Set("console", c.object()); err != nil {
		return err
	}
	messageOfValue, err := vm.RunString(messageOfSource)
	if err != nil {
		return err
	}
	messageOf, ok := goja.AssertFunction(messageOfValue)
	if !ok {
		return errors.New("exception message helper is not a function")
	}
	conv := &converter{messageOf, c.toString}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	ctor, ok := goja.AssertConstructor(vm.Get("Function"))
	if !ok {
		return errors.New("engine has no Function constructor")
	}
	fnObj, err := ctor(nil, vm.ToValue(code))
	if err != nil {
		return conv.convert(err)
	}
	fn, ok := goja.AssertFunction(fnObj)
	if !ok {
		return errors.New("the Function constructor returned a non-function")
	}
	if _, err := fn(goja.Undefined()); err != nil {
		return conv.convert(err)
	}
	return nil
}

// converter turns errors from the engine into *Exception values. Reading the
// message of a thrown value runs code of its own, which may throw again or be
// interrupted; all of it goes through goja calls so that nothing panics.
type converter struct {
	messageOf goja.Callable
	toString  goja.Callable
}

func (cv *converter) convert(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok && errors.Is(cause, context.DeadlineExceeded) {
			return &Exception{"execution timed out"}
		}
		return &Exception{"execution cancelled"}
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		msg, err := cv.message(exc.Value())
		if err != nil {
			return cv.convert(err)
		}
		return &Exception{msg}
	}
	// Other engine errors, such as exceeding the call stack limit, carry a
	// stack trace after the first line.
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return &Exception{msg}
}

// UnprintableMessage is the message of an exception whose message and string
// form both throw.
const UnprintableMessage = "unprintable exception"

// Returns the message of a thrown value. If reading the message throws, the
// string form of the value is used instead. The only error returned is an
// interruption.
func (cv *converter) message(v goja.Value) (string, error) {
	if v == nil {
		return "undefined", nil
	}
	msg, err := cv.messageOf(goja.Undefined(), v)
	if err == nil {
		return msg.String(), nil
	}
	if isInterrupted(err) {
		return "", err
	}
	s, err := cv.toString(goja.Undefined(), v)
	if err == nil {
		return s.String(), nil
	}
	if isInterrupted(err) {
		return "", err
	}
	return UnprintableMessage, nil
}

func isInterrupted(err error) bool {
	var interrupted *goja.InterruptedError
	return errors.As(err, &interrupted)
}

// console is the object installed as the global console during a run.
type console struct {
	vm        *goja.Runtime
	sink      Sink
	stringify goja.Callable
	toString  goja.Callable
}

func newConsole(vm *goja.Runtime, sink Sink) (*console, error) {
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, errors.New("engine has no JSON.stringify")
	}
	toString, ok := goja.AssertFunction(vm.Get("String"))
	if !ok {
		return nil, errors.New("engine has no String function")
	}
	return &console{vm, sink, stringify, toString}, nil
}

func (c *console) object() *goja.Object {
	obj := c.vm.NewObject()
	obj.Set("log", c.log)
	obj.Set("info", c.log)
	obj.Set("debug", c.log)
	obj.Set("warn", c.diagnostic("warn"))
	obj.Set("error", c.diagnostic("error"))
	return obj
}

func (c *console) log(call goja.FunctionCall) goja.Value {
	c.sink.Log(c.format(call.Arguments))
	return goja.Undefined()
}

// Output of console.warn and console.error does not go to the sink; it goes to
// the log of the hosting process.
func (c *console) diagnostic(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		logger.Info().Str("console", level).Msg(c.format(call.Arguments))
		return goja.Undefined()
	}
}

// Formats arguments the way the redirected console.log of the browser
// playground did: objects through JSON.stringify, everything else (and
// objects that fail to serialize) through String, joined with spaces.
func (c *console) format(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = c.formatOne(arg)
	}
	return strings.Join(parts, " ")
}

func (c *console) formatOne(arg goja.Value) string {
	if _, isObject := arg.(*goja.Object); isObject {
		if _, isFunction := goja.AssertFunction(arg); !isFunction {
			s, err := c.stringify(goja.Undefined(), arg)
			if err == nil {
				if goja.IsUndefined(s) {
					// Array.prototype.join renders undefined as "".
					return ""
				}
				return s.String()
			}
			// Serialization failures, such as cyclic structures, fall back to
			// String.
		}
	}
	s, err := c.toString(goja.Undefined(), arg)
	if err != nil {
		var exc *goja.Exception
		if errors.As(err, &exc) {
			panic(exc.Value())
		}
		panic(c.vm.NewGoError(err))
	}
	return s.String()
}
