// Package testing provides testing utilities for state machine graphs.
package testing

import (
	"strings"
	"sync"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Flag is a host predicate used by the harness graphs. Evaluators answer it
// through StubEvaluator.Set.
var Flag = statemachine.RegisterPredicateKind("Flag") //nolint:gochecknoglobals

// Call is one PerformAction call seen by a RecordingPerformer.
type Call struct {
	Kind   statemachine.ActionKind
	Params []string
}

func (c Call) String() string {
	if len(c.Params) == 0 {
		return c.Kind.String()
	}

	return c.Kind.String() + "(" + strings.Join(c.Params, ", ") + ")"
}

// RecordingPerformer records every action it is asked to perform.
type RecordingPerformer struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecordingPerformer creates an empty recorder.
func NewRecordingPerformer() *RecordingPerformer {
	return &RecordingPerformer{}
}

func (p *RecordingPerformer) PerformAction(kind statemachine.ActionKind, params []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, Call{Kind: kind, Params: append([]string(nil), params...)})
}

// Calls returns the recorded calls in order.
func (p *RecordingPerformer) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Call(nil), p.calls...)
}

// Messages returns the parameters of every PrintMessage call, joined by
// spaces. The harness graphs announce their lifecycle this way.
func (p *RecordingPerformer) Messages() []string {
	var out []string

	for _, call := range p.Calls() {
		if call.Kind == statemachine.ActionPrintMessage {
			out = append(out, strings.Join(call.Params, " "))
		}
	}

	return out
}

// Reset forgets every recorded call.
func (p *RecordingPerformer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = nil
}

// StubEvaluator answers predicates from a table. Kinds without an answer are
// reported as not applicable.
type StubEvaluator struct {
	mu      sync.RWMutex
	answers map[statemachine.PredicateKind]bool
	queries int
}

// NewStubEvaluator creates an evaluator with no answers.
func NewStubEvaluator() *StubEvaluator {
	return &StubEvaluator{answers: make(map[statemachine.PredicateKind]bool)}
}

// Set fixes the answer for kind.
func (e *StubEvaluator) Set(kind statemachine.PredicateKind, value bool) *StubEvaluator {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.answers[kind] = value

	return e
}

// Unset makes kind not applicable again.
func (e *StubEvaluator) Unset(kind statemachine.PredicateKind) *StubEvaluator {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.answers, kind)

	return e
}

func (e *StubEvaluator) Evaluate(kind statemachine.PredicateKind, _ []string) (bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queries++
	value, ok := e.answers[kind]

	return value, ok
}

// Queries returns how many predicates were evaluated.
func (e *StubEvaluator) Queries() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.queries
}

// Lifecycle returns state options that print "<id> enter", "<id> tick" and
// "<id> exit", so a RecordingPerformer shows the order of lifecycle calls.
func Lifecycle(id string) []statemachine.StateOption {
	return []statemachine.StateOption{
		statemachine.OnEnter(statemachine.Act(statemachine.ActionPrintMessage, id, "enter")),
		statemachine.OnTick(statemachine.Act(statemachine.ActionPrintMessage, id, "tick")),
		statemachine.OnExit(statemachine.Act(statemachine.ActionPrintMessage, id, "exit")),
	}
}

// CommonGraphs provides frequently used graph builders. Every action state
// announces its lifecycle with Lifecycle.
var CommonGraphs = struct { //nolint:gochecknoglobals
	// Flag is Entry→A, A→B when Flag is true, B without transitions.
	Flag func() *statemachine.Builder
	// SelfLoop is Entry→A, A→A when Flag is true.
	SelfLoop func() *statemachine.Builder
	// Guard is Idle→Patrol on CanPatrol, Patrol→Idle on AtWaypoint, and
	// Any→Dead on DieEvent.
	Guard func() *statemachine.Builder
}{
	Flag: func() *statemachine.Builder {
		return statemachine.NewBuilder("flag").
			State("A", "A", Lifecycle("A")...).
			State("B", "B", Lifecycle("B")...).
			Entry("A").
			Transition("A", "B", statemachine.When(statemachine.Either(statemachine.Is(Flag))))
	},
	SelfLoop: func() *statemachine.Builder {
		return statemachine.NewBuilder("self-loop").
			State("A", "A", Lifecycle("A")...).
			Entry("A").
			Transition("A", "A", statemachine.When(statemachine.Either(statemachine.Is(Flag))))
	},
	Guard: func() *statemachine.Builder {
		return statemachine.NewBuilder("guard").
			State("idle", "Idle", Lifecycle("idle")...).
			State("patrol", "Patrol", Lifecycle("patrol")...).
			State("dead", "Dead", Lifecycle("dead")...).
			Entry("idle").
			Transition("idle", "patrol", statemachine.When(statemachine.Either(
				statemachine.Is(statemachine.PredicateCanPatrol)))).
			Transition("patrol", "idle", statemachine.When(statemachine.Either(
				statemachine.Is(statemachine.PredicateAtWaypoint)))).
			AnyTransition("dead", statemachine.When(statemachine.Either(
				statemachine.Is(statemachine.PredicateDieEvent))))
	},
}
