package script

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		code     int
		expected string
	}{
		{name: "exit code 0", code: 0, expected: "exit 0"},
		{name: "exit code 1", code: 1, expected: "exit 1"},
		{name: "exit code 42", code: 42, expected: "exit 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Exit(tt.code)
			require.Error(t, err)
			assert.Equal(t, tt.expected, err.Error())
			assert.Equal(t, tt.code, ExitCode(err))
			assert.NoError(t, errors.Unwrap(err))
		})
	}
}

func TestExitWithError(t *testing.T) {
	t.Parallel()

	testErr := errors.New("test error") //nolint:err113
	err := ExitWithError(testErr)

	assert.Equal(t, "exit 1: test error", err.Error())
	assert.Equal(t, 1, ExitCode(err))
	require.ErrorIs(t, err, testErr)

	err = ExitWithErrorMessage("bad graph: %s", "guard.yaml")
	assert.Equal(t, "exit 1: bad graph: guard.yaml", err.Error())
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain"))) //nolint:err113
	assert.Equal(t, 3, ExitCode(Exit(3)))
	assert.Equal(t, 3, ExitCode(errors.Join(errors.New("context"), Exit(3)))) //nolint:err113
}

func TestNew(t *testing.T) {
	t.Parallel()

	script := New("fsmctl", ShutdownTimeout(time.Second))

	assert.Equal(t, "fsmctl", script.Name())
	assert.Equal(t, time.Second, script.shutdownTimeout)
	assert.Equal(t, DefaultShutdownTimeout, New("other").shutdownTimeout)
}

// The Execute tests reconfigure the default slog logger, so they do not run
// in parallel.

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		body    func(ctx context.Context, args []string) error
		code    int
		wantLog string
	}{
		{
			name: "success",
			body: func(context.Context, []string) error { return nil },
			code: 0,
		},
		{
			name:    "plain error",
			body:    func(context.Context, []string) error { return errors.New("boom") }, //nolint:err113
			code:    1,
			wantLog: "boom",
		},
		{
			name: "silent exit code",
			body: func(context.Context, []string) error { return Exit(2) },
			code: 2,
		},
		{
			name:    "exit with error",
			body:    func(context.Context, []string) error { return ExitWithErrorMessage("no such graph") },
			code:    1,
			wantLog: "no such graph",
		},
		{
			name:    "nil body",
			code:    1,
			wantLog: "script body is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			code := New("test-script", LogOutput(&buf)).Execute(nil, tt.body)

			assert.Equal(t, tt.code, code)

			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestExecutePassesArgs(t *testing.T) {
	var got []string

	code := New("test-script", LogOutput(&bytes.Buffer{})).Execute([]string{"validate", "guard.yaml"},
		func(ctx context.Context, args []string) error {
			require.NoError(t, ctx.Err())

			got = args

			return nil
		})

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"validate", "guard.yaml"}, got)
}

func TestShutdownHooks(t *testing.T) {
	var (
		buf   bytes.Buffer
		order []string
	)

	script := New("test-script", LogOutput(&buf))

	script.OnShutdown(func(ctx context.Context) error {
		require.NoError(t, ctx.Err(), "hooks get a live context")

		order = append(order, "first")

		return nil
	})
	script.OnShutdown(func(context.Context) error {
		order = append(order, "second")

		return errors.New("flush failed") //nolint:err113
	})

	var bodyCtx context.Context

	code := script.Execute(nil, func(ctx context.Context, _ []string) error {
		bodyCtx = ctx

		return nil
	})

	assert.Equal(t, 0, code, "hook errors do not change the exit code")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Contains(t, buf.String(), "flush failed")
	require.Error(t, bodyCtx.Err(), "the body context ends with Execute")

	order = nil

	assert.Equal(t, 0, script.Execute(nil, func(context.Context, []string) error { return nil }))
	assert.Empty(t, order, "hooks run once")
}
