package testing

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/stretchr/testify/require"
)

// TestController wraps Controller with a recording performer, a stub
// evaluator and a trace of every controller event.
type TestController struct {
	*statemachine.Controller

	t         *testing.T
	Performer *RecordingPerformer
	Evaluator *StubEvaluator
	trace     []TraceEntry
	ticks     int
}

// TraceEntry records a single controller event.
type TraceEntry struct {
	Tick  int
	Kind  statemachine.HookKind
	State string
	From  string
	Phase statemachine.Phase
}

func (e TraceEntry) String() string {
	switch e.Kind {
	case statemachine.HookTransition:
		return fmt.Sprintf("%d %s %s->%s", e.Tick, e.Kind, e.From, e.State)
	case statemachine.HookDispatch:
		return fmt.Sprintf("%d %s %s %s", e.Tick, e.Kind, e.State, e.Phase)
	default:
		return fmt.Sprintf("%d %s %s", e.Tick, e.Kind, e.State)
	}
}

// NewTestController builds a controller for graph. The harness performer and
// evaluator are registered first; opts may add more collaborators or override
// the logger and seed.
func NewTestController(t *testing.T, graph *statemachine.Graph, opts ...statemachine.Option) *TestController {
	t.Helper()

	tc := &TestController{
		t:         t,
		Performer: NewRecordingPerformer(),
		Evaluator: NewStubEvaluator(),
	}

	base := []statemachine.Option{
		statemachine.WithLogger(statemachine.NopLogger{}),
		statemachine.WithRandSeed(1),
		statemachine.WithTransitionPolicy(statemachine.FirstMatch),
		statemachine.WithPerformers(tc.Performer),
		statemachine.WithEvaluators(tc.Evaluator),
		statemachine.WithHook(tc.record),
	}

	ctrl, err := statemachine.NewController(graph, append(base, opts...)...)
	require.NoError(t, err, "failed to create controller")

	tc.Controller = ctrl

	return tc
}

// MustBuild builds b and fails the test on error.
func MustBuild(t *testing.T, b *statemachine.Builder) *statemachine.Graph {
	t.Helper()

	graph, err := b.Build()
	require.NoError(t, err, "failed to build graph")

	return graph
}

func (tc *TestController) record(_ context.Context, event statemachine.HookEvent) {
	entry := TraceEntry{Tick: tc.ticks, Kind: event.Kind, Phase: event.Phase}

	if event.State != nil {
		entry.State = event.State.ID()
	}

	if event.From != nil {
		entry.From = event.From.ID()
	}

	tc.trace = append(tc.trace, entry)

	if event.Kind == statemachine.HookTick {
		tc.ticks++
	}
}

// Start starts the controller and fails the test on error.
func (tc *TestController) Start() {
	tc.t.Helper()

	require.NoError(tc.t, tc.Controller.Start(context.Background()), "failed to start controller")
}

// Tick runs one tick and fails the test on error.
func (tc *TestController) Tick() {
	tc.t.Helper()

	require.NoError(tc.t, tc.Controller.Tick(context.Background()), "tick %d failed", tc.ticks)
}

// TickN runs n ticks.
func (tc *TestController) TickN(n int) {
	tc.t.Helper()

	for range n {
		tc.Tick()
	}
}

// Set fixes a predicate answer on the harness evaluator.
func (tc *TestController) Set(kind statemachine.PredicateKind, value bool) *TestController {
	tc.Evaluator.Set(kind, value)

	return tc
}

// Trace returns the recorded controller events.
func (tc *TestController) Trace() []TraceEntry {
	return slices.Clone(tc.trace)
}

// Ticks returns the number of completed ticks.
func (tc *TestController) Ticks() int {
	return tc.ticks
}

// Entered returns the IDs of entered states in order.
func (tc *TestController) Entered() []string {
	var out []string

	for _, entry := range tc.trace {
		if entry.Kind == statemachine.HookEnter {
			out = append(out, entry.State)
		}
	}

	return out
}

// AssertStateVisited checks that a state was entered at least once.
func (tc *TestController) AssertStateVisited(id string) {
	tc.t.Helper()

	require.Contains(tc.t, tc.Entered(), id, "state '%s' should have been visited", id)
}

// AssertTransitionTaken checks that the controller switched from one state to
// another. An empty from matches the start switch.
func (tc *TestController) AssertTransitionTaken(from, to string) {
	tc.t.Helper()

	ok, err := TransitionWasTaken(from, to).Match(tc)
	require.True(tc.t, ok, "%v", err)
}

// AssertCurrentState checks the current state ID.
func (tc *TestController) AssertCurrentState(id string) {
	tc.t.Helper()

	current := tc.CurrentState()
	require.NotNil(tc.t, current, "controller has no current state")
	require.Equal(tc.t, id, current.ID(), "current state should be '%s'", id)
}

// AssertMessages checks the PrintMessage calls seen so far, in order.
func (tc *TestController) AssertMessages(expected ...string) {
	tc.t.Helper()

	require.Equal(tc.t, expected, tc.Performer.Messages())
}

// Expect runs matchers against the controller and fails on the first miss.
func (tc *TestController) Expect(matchers ...Matcher) {
	tc.t.Helper()

	for _, matcher := range matchers {
		ok, err := matcher.Match(tc)
		require.True(tc.t, ok, "%s: %v", matcher.Description(), err)
	}
}
