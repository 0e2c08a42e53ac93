package testing

import (
	"testing"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Step sets predicate answers and then runs a number of ticks.
type Step struct {
	Set   map[statemachine.PredicateKind]bool
	Unset []statemachine.PredicateKind
	Ticks int
}

// TestScenario represents a complete test scenario for a graph.
type TestScenario struct {
	Name     string
	Graph    func() *statemachine.Builder
	Options  []statemachine.Option
	Steps    []Step
	Matchers []Matcher
	Messages []string
}

// RunScenario starts a controller, plays the steps and checks the matchers.
// When Messages is set, the PrintMessage calls must match it exactly.
func RunScenario(t *testing.T, scenario TestScenario) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		tc := NewTestController(t, MustBuild(t, scenario.Graph()), scenario.Options...)
		tc.Start()

		for _, step := range scenario.Steps {
			for kind, value := range step.Set {
				tc.Set(kind, value)
			}

			for _, kind := range step.Unset {
				tc.Evaluator.Unset(kind)
			}

			tc.TickN(step.Ticks)
		}

		tc.Expect(scenario.Matchers...)

		if scenario.Messages != nil {
			tc.AssertMessages(scenario.Messages...)
		}
	})
}

// FlagScenario starts in A, ticks once with Flag false, once with Flag true
// and once more in B.
func FlagScenario() TestScenario {
	return TestScenario{
		Name:  "Flag",
		Graph: CommonGraphs.Flag,
		Steps: []Step{
			{Set: map[statemachine.PredicateKind]bool{Flag: false}, Ticks: 1},
			{Set: map[statemachine.PredicateKind]bool{Flag: true}, Ticks: 2},
		},
		Matchers: []Matcher{
			TransitionWasTaken("", "A"),
			TransitionWasTaken("A", "B"),
			CurrentStateIs("B"),
		},
		Messages: []string{
			"A enter",
			"A tick",
			"A tick", "A exit", "B enter",
			"B tick",
		},
	}
}

// SelfLoopScenario checks that a self-transition exits before it enters.
func SelfLoopScenario() TestScenario {
	return TestScenario{
		Name:  "SelfLoop",
		Graph: CommonGraphs.SelfLoop,
		Steps: []Step{
			{Set: map[statemachine.PredicateKind]bool{Flag: true}, Ticks: 1},
		},
		Matchers: []Matcher{
			TransitionWasTaken("A", "A"),
			CurrentStateIs("A"),
		},
		Messages: []string{"A enter", "A tick", "A exit", "A enter"},
	}
}

// GuardDeathScenario checks that an any-state transition interrupts a patrol.
func GuardDeathScenario() TestScenario {
	return TestScenario{
		Name:  "GuardDeath",
		Graph: CommonGraphs.Guard,
		Steps: []Step{
			{Set: map[statemachine.PredicateKind]bool{
				statemachine.PredicateCanPatrol:  true,
				statemachine.PredicateAtWaypoint: false,
				statemachine.PredicateDieEvent:   false,
			}, Ticks: 1},
			{
				Set:   map[statemachine.PredicateKind]bool{statemachine.PredicateDieEvent: true},
				Unset: []statemachine.PredicateKind{statemachine.PredicateCanPatrol},
				Ticks: 1,
			},
		},
		Matchers: []Matcher{
			TransitionWasTaken("idle", "patrol"),
			TransitionWasTaken("patrol", "dead"),
			CurrentStateIs("dead"),
			ActionWasPerformed(statemachine.ActionPrintMessage, "patrol", "exit"),
		},
	}
}
