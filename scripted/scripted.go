// Package scripted implements action performers and predicate evaluators as
// tengo scripts, so designers can prototype behaviour without recompiling the
// host.
//
// A script assigns up to two functions:
//
//	perform = func(action, params) { ... }
//	evaluate = func(predicate, params) { return state.hits > 2 }
//
// evaluate returns a bool, or undefined for predicates it does not handle.
// The global map `state` survives between calls; the rest of the top level
// runs again on every call, so keep it to declarations. Scripts may call
// choose(options) to pick through the controller's chooser and log(...) to
// write to the structured log.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/statemachine"
)

const dispatchScript = `
if __call == "perform" {
	if is_callable(perform) { perform(__kind, __params) }
} else if __call == "evaluate" {
	if is_callable(evaluate) { __result = evaluate(__kind, __params) }
}
`

// ErrScriptFailed wraps compile and runtime errors of a script.
var ErrScriptFailed = errors.New("script failed")

type options struct {
	timeout   time.Duration
	maxAllocs int64
}

// Option configures a Collaborator.
type Option func(*options)

// WithTimeout aborts a single perform or evaluate call after d.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxAllocs limits the objects a single call may allocate.
func WithMaxAllocs(n int64) Option {
	return func(o *options) {
		o.maxAllocs = n
	}
}

// Collaborator runs a compiled script as both statemachine.ActionPerformer and
// statemachine.PredicateEvaluator. Calls are serialized; give every agent its
// own Clone.
type Collaborator struct {
	name      string
	opts      options
	mu        sync.Mutex
	compiled  *tengo.Compiled
	state     *tengo.Map
	chooser   statemachine.Chooser
	performs  bool
	evaluates bool
}

var (
	_ statemachine.ActionPerformer    = (*Collaborator)(nil)
	_ statemachine.PredicateEvaluator = (*Collaborator)(nil)
	_ statemachine.ChooserAware       = (*Collaborator)(nil)
)

// Compile builds a collaborator from tengo source and runs its top level once.
func Compile(name, src string, opts ...Option) (*Collaborator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	script := tengo.NewScript([]byte(src + "\n" + dispatchScript))

	for _, global := range []string{"perform", "evaluate", "state", "__call", "__kind", "__params", "__result", "choose", "log"} {
		if err := script.Add(global, nil); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, name, err)
		}
	}

	script.SetImports(stdlib.GetModuleMap(safeModules()...))

	if o.maxAllocs > 0 {
		script.SetMaxAllocs(o.maxAllocs)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, name, err)
	}

	c := &Collaborator{
		name:     name,
		opts:     o,
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
		chooser:  statemachine.FirstChooser{},
	}

	if err := c.bind(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, name, err)
	}

	if _, err := c.call("", "", nil); err != nil {
		return nil, err
	}

	c.performs = isCallable(compiled.Get("perform"))
	c.evaluates = isCallable(compiled.Get("evaluate"))

	return c, nil
}

// Load compiles the script at path, named after the file.
func Load(path string, opts ...Option) (*Collaborator, error) {
	src, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read script %q: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return Compile(name, string(src), opts...)
}

// safeModules lists the tengo standard modules except os.
func safeModules() []string {
	var names []string

	for _, name := range stdlib.AllModuleNames() {
		if name != "os" {
			names = append(names, name)
		}
	}

	return names
}

func isCallable(v *tengo.Variable) bool {
	return !v.IsUndefined() && v.Object().CanCall()
}

// bind installs the host functions closed over c.
func (c *Collaborator) bind() error {
	choose := &tengo.UserFunction{Name: "choose", Value: func(args ...tengo.Object) (tengo.Object, error) {
		var options []string

		for _, arg := range args {
			if arr, ok := arg.(*tengo.Array); ok {
				for _, item := range arr.Value {
					options = append(options, objectAsString(item))
				}
			} else {
				options = append(options, objectAsString(arg))
			}
		}

		return &tengo.String{Value: c.chooser.Choose(options)}, nil
	}}

	logFn := &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = objectAsString(arg)
		}

		logger.Get().Info(strings.Join(parts, " "), "script", c.name)

		return tengo.UndefinedValue, nil
	}}

	if err := c.compiled.Set("choose", choose); err != nil {
		return err
	}

	return c.compiled.Set("log", logFn)
}

// Name returns the script name.
func (c *Collaborator) Name() string {
	return c.name
}

// UseChooser sets the chooser behind choose().
func (c *Collaborator) UseChooser(chooser statemachine.Chooser) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chooser = chooser
}

// Clone returns an independent instance with its own globals and an empty
// state map.
func (c *Collaborator) Clone() (*Collaborator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := &Collaborator{
		name:      c.name,
		opts:      c.opts,
		compiled:  c.compiled.Clone(),
		state:     &tengo.Map{Value: map[string]tengo.Object{}},
		chooser:   c.chooser,
		performs:  c.performs,
		evaluates: c.evaluates,
	}

	if err := clone.bind(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, c.name, err)
	}

	return clone, nil
}

// State returns a copy of the script's state map.
func (c *Collaborator) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, _ := tengo.ToInterface(c.state).(map[string]any)

	return out
}

// PerformAction calls perform(action, params). Errors are logged.
func (c *Collaborator) PerformAction(kind statemachine.ActionKind, params []string) {
	if !c.performs {
		return
	}

	if _, err := c.call("perform", kind.String(), params); err != nil {
		logger.Get().Warn("Script perform failed",
			"script", c.name,
			"action", kind.String(),
			"error", err)
	}
}

// Evaluate calls evaluate(predicate, params). An undefined result or a
// runtime error means the predicate is not handled.
func (c *Collaborator) Evaluate(kind statemachine.PredicateKind, params []string) (bool, bool) {
	if !c.evaluates {
		return false, false
	}

	result, err := c.call("evaluate", kind.String(), params)
	if err != nil {
		logger.Get().Warn("Script evaluate failed",
			"script", c.name,
			"predicate", kind.String(),
			"error", err)

		return false, false
	}

	if result == nil || result == tengo.UndefinedValue {
		return false, false
	}

	return !result.IsFalsy(), true
}

func (c *Collaborator) call(fn, kind string, params []string) (tengo.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	args := make([]any, len(params))
	for i, param := range params {
		args[i] = param
	}

	for name, value := range map[string]any{
		"__call":   fn,
		"__kind":   kind,
		"__params": args,
		"__result": nil,
		"state":    c.state,
	} {
		if err := c.compiled.Set(name, value); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, c.name, err)
		}
	}

	var err error

	if c.opts.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.timeout)
		err = c.compiled.RunContext(ctx)

		cancel()
	} else {
		err = c.compiled.Run()
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, c.name, err)
	}

	return c.compiled.Get("__result").Object(), nil
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}

	if s, ok := obj.(*tengo.String); ok {
		return s.Value
	}

	return strings.Trim(obj.String(), "\"")
}
