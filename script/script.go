// Package script runs command-line tools with logging, signal handling,
// shutdown hooks and exit codes set up the same way everywhere.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rainbowassets/gamefsm/logger"
)

// DefaultShutdownTimeout bounds the time all shutdown hooks may take.
const DefaultShutdownTimeout = 5 * time.Second

// Option is a function that configures a Script.
type Option func(script *Script)

// Exit returns an error that makes the script exit with code, without
// logging anything.
func Exit(code int) error {
	return &exitError{code: code}
}

// ExitWithError returns an error that makes the script log err and exit
// with code 1.
func ExitWithError(err error) error {
	return &exitError{err: err, code: 1}
}

// ExitWithErrorMessage is ExitWithError with a formatted message.
func ExitWithErrorMessage(msg string, args ...any) error {
	return &exitError{
		err:  fmt.Errorf(msg, args...), //nolint:err113
		code: 1,
	}
}

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string {
	msg := "exit " + strconv.Itoa(e.code)

	if e.err != nil {
		return msg + ": " + e.err.Error()
	}

	return msg
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode maps the error returned by a script body to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	return 1
}

// LogLevel sets the minimum log level.
func LogLevel(lvl slog.Level) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, logger.WithLevel(lvl))
	}
}

// LogOutput sets the log destination.
func LogOutput(writer io.Writer) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, logger.WithOutput(writer))
	}
}

// ShutdownTimeout overrides DefaultShutdownTimeout.
func ShutdownTimeout(d time.Duration) Option {
	return func(script *Script) {
		script.shutdownTimeout = d
	}
}

// Script is a runnable command with configured logging and signal handling.
type Script struct {
	name            string
	loggerOpts      []logger.Option
	shutdownTimeout time.Duration

	mu    sync.Mutex
	hooks []func(ctx context.Context) error
}

// New creates a Script named name.
func New(name string, opts ...Option) *Script {
	script := &Script{
		name:            name,
		shutdownTimeout: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(script)
	}

	return script
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// OnShutdown registers a hook that runs after the body returns, including
// when it returns because of a signal. Hooks run in reverse order of
// registration with a context that outlives the body's.
func (s *Script) OnShutdown(hook func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, hook)
}

// Run executes body with the process arguments and exits with its code. The
// context passed to body is canceled on SIGINT or SIGTERM.
func (s *Script) Run(body func(ctx context.Context, args []string) error) {
	os.Exit(s.Execute(os.Args[1:], body))
}

// Execute is Run without the os.Exit.
func (s *Script) Execute(args []string, body func(ctx context.Context, args []string) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.ConfigureLogging(ctx, s.name, s.loggerOpts...)

	if body == nil {
		log.Error("script body is nil")

		return 1
	}

	err := body(ctx, args)

	stop()

	if hookErr := s.shutdown(ctx); hookErr != nil {
		logger.Get(ctx).Error("shutdown hook failed", "error", hookErr)
	}

	code := ExitCode(err)
	if code != 0 {
		var exitErr *exitError
		if !errors.As(err, &exitErr) || exitErr.err != nil {
			logger.Get(ctx).Error("error running script", "error", err)
		}
	}

	return code
}

func (s *Script) shutdown(ctx context.Context) error {
	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.hooks = nil
	s.mu.Unlock()

	if len(hooks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	var errs []error

	for _, hook := range slices.Backward(hooks) {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
