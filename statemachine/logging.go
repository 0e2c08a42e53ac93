package statemachine

import (
	"context"

	"github.com/rainbowassets/gamefsm/logger"
)

// Logger provides logging hooks for controller execution.
type Logger interface {
	StateEntered(ctx context.Context, graph string, state *State)
	StateExited(ctx context.Context, graph string, state *State)
	TransitionFired(ctx context.Context, graph string, from, to *State)
	ConfigurationError(ctx context.Context, graph string, err error)
}

// DefaultLogger implements Logger on top of the logger package, so records
// carry the subsystem and agent ID from the context.
type DefaultLogger struct{}

// NewDefaultLogger creates a new default logger.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

func (l *DefaultLogger) StateEntered(ctx context.Context, graph string, state *State) {
	logger.Get(ctx).DebugContext(ctx, "State entered",
		"graph", graph,
		"state", state.ID(),
		"title", state.Title,
	)
}

func (l *DefaultLogger) StateExited(ctx context.Context, graph string, state *State) {
	logger.Get(ctx).DebugContext(ctx, "State exited",
		"graph", graph,
		"state", state.ID(),
		"title", state.Title,
	)
}

func (l *DefaultLogger) TransitionFired(ctx context.Context, graph string, from, to *State) {
	fields := []any{
		"graph", graph,
		"to", to.ID(),
		"to_title", to.Title,
	}

	if from != nil {
		fields = append(fields, "from", from.ID(), "from_title", from.Title)
	}

	logger.Get(ctx).InfoContext(ctx, "Transition fired", fields...)
}

func (l *DefaultLogger) ConfigurationError(ctx context.Context, graph string, err error) {
	logger.Get(ctx).ErrorContext(ctx, "Graph configuration error",
		"graph", graph,
		"error", err,
	)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) StateEntered(context.Context, string, *State)            {}
func (NopLogger) StateExited(context.Context, string, *State)             {}
func (NopLogger) TransitionFired(context.Context, string, *State, *State) {}
func (NopLogger) ConfigurationError(context.Context, string, error)       {}
