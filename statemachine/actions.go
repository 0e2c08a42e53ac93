package statemachine

import (
	"slices"
	"strings"
)

// Phase names the lifecycle hook an action list belongs to.
type Phase string

const (
	PhaseEnter Phase = "enter"
	PhaseTick  Phase = "tick"
	PhaseExit  Phase = "exit"
)

// Action is a declarative (kind, parameters) pair.
type Action struct {
	Kind       ActionKind
	Parameters []string
}

// Act builds an action.
func Act(kind ActionKind, params ...string) Action {
	return Action{Kind: kind, Parameters: params}
}

func (a Action) String() string {
	if len(a.Parameters) == 0 {
		return a.Kind.String()
	}

	return a.Kind.String() + "(" + strings.Join(a.Parameters, ", ") + ")"
}

func cloneActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}

	out := make([]Action, len(actions))
	for i, action := range actions {
		out[i] = Action{Kind: action.Kind, Parameters: slices.Clone(action.Parameters)}
	}

	return out
}

// Dispatcher broadcasts action lists to performers. It carries the random
// source collaborators use when an action offers several alternatives.
type Dispatcher struct {
	chooser Chooser
}

// NewDispatcher creates a dispatcher. A nil chooser falls back to FirstChooser.
func NewDispatcher(chooser Chooser) *Dispatcher {
	if chooser == nil {
		chooser = FirstChooser{}
	}

	return &Dispatcher{chooser: chooser}
}

// Chooser returns the dispatcher's random source.
func (d *Dispatcher) Chooser() Chooser {
	return d.chooser
}

// Perform calls every performer with every action: performers outer, actions
// inner. Performers decide for themselves which kinds they handle.
func (d *Dispatcher) Perform(actions []Action, performers []ActionPerformer) int {
	if len(actions) == 0 {
		return 0
	}

	calls := 0

	for _, performer := range performers {
		for _, action := range actions {
			performer.PerformAction(action.Kind, action.Parameters)

			calls++
		}
	}

	return calls
}
