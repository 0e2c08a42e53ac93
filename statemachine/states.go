package statemachine

import (
	"context"
	"fmt"
	"slices"
)

// StateKind discriminates the state variants.
type StateKind int

const (
	// KindAction states dispatch action lists on enter, tick and exit.
	KindAction StateKind = iota
	// KindEntry states name the real initial state through their only transition.
	KindEntry
	// KindAny states are ticked every frame after the current state and never
	// become current themselves.
	KindAny
)

// Default titles and editor positions.
const (
	DefaultStateTitle = "New State"
	EntryStateTitle   = "Entry"
	AnyStateTitle     = "Any"
)

var (
	EntryStatePosition = Position{X: 250, Y: 0}  //nolint:gochecknoglobals
	AnyStatePosition   = Position{X: 250, Y: 50} //nolint:gochecknoglobals
)

func (k StateKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindEntry:
		return "entry"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// ParseStateKind resolves a state kind by name. An empty name means action.
func ParseStateKind(name string) (StateKind, error) {
	switch name {
	case "action", "":
		return KindAction, nil
	case "entry":
		return KindEntry, nil
	case "any":
		return KindAny, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStateKind, name)
	}
}

// Switchable reports whether a controller may make a state of this kind current.
func (k StateKind) Switchable() bool {
	return k == KindAction
}

// Position is the presentation-only editor position of a state.
type Position struct {
	X float64
	Y float64
}

// ActionSet is the payload of action states.
type ActionSet struct {
	OnEnter []Action
	OnTick  []Action
	OnExit  []Action
}

// For returns the action list for a phase.
func (a *ActionSet) For(phase Phase) []Action {
	if a == nil {
		return nil
	}

	switch phase {
	case PhaseEnter:
		return a.OnEnter
	case PhaseTick:
		return a.OnTick
	case PhaseExit:
		return a.OnExit
	default:
		return nil
	}
}

// Set replaces the action list for a phase.
func (a *ActionSet) Set(phase Phase, actions []Action) {
	switch phase {
	case PhaseEnter:
		a.OnEnter = actions
	case PhaseTick:
		a.OnTick = actions
	case PhaseExit:
		a.OnExit = actions
	}
}

// Clone returns a deep copy.
func (a *ActionSet) Clone() *ActionSet {
	if a == nil {
		return nil
	}

	return &ActionSet{
		OnEnter: cloneActions(a.OnEnter),
		OnTick:  cloneActions(a.OnTick),
		OnExit:  cloneActions(a.OnExit),
	}
}

// Runtime is what states need from the controller driving them.
type Runtime interface {
	PredicateEvaluators() []PredicateEvaluator
	Dispatch(ctx context.Context, state *State, phase Phase, actions []Action)
	SwitchState(ctx context.Context, id string) error
	TransitionPolicy() TransitionPolicy
}

// TransitionPolicy decides what happens when several transitions of one state
// are satisfied in the same tick.
type TransitionPolicy int

const (
	// FirstMatch switches on the first satisfied transition in list order and
	// stops evaluating the rest.
	FirstMatch TransitionPolicy = iota
	// EveryMatch switches on every satisfied transition in list order, so the
	// last one determines the resulting state.
	EveryMatch
)

func (p TransitionPolicy) String() string {
	switch p {
	case FirstMatch:
		return "first"
	case EveryMatch:
		return "every"
	default:
		return fmt.Sprintf("TransitionPolicy(%d)", int(p))
	}
}

// ParseTransitionPolicy resolves "first" or "every".
func ParseTransitionPolicy(name string) (TransitionPolicy, error) {
	switch name {
	case "first", "":
		return FirstMatch, nil
	case "every":
		return EveryMatch, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransitionPolicy, name)
	}
}

// State is a node of a graph. The kind selects the behavior of Enter, Tick and
// Exit; only action states carry an ActionSet.
type State struct {
	id          string
	kind        StateKind
	transitions []*Transition
	actions     *ActionSet
	active      bool

	Title    string
	Position Position
}

func newState(id string, kind StateKind) *State {
	state := &State{
		id:    id,
		kind:  kind,
		Title: DefaultStateTitle,
	}

	if kind == KindAction {
		state.actions = &ActionSet{}
	}

	return state
}

// ID returns the state's stable identifier.
func (s *State) ID() string {
	return s.id
}

// Kind returns the state's variant.
func (s *State) Kind() StateKind {
	return s.kind
}

// Actions returns the action payload, or nil for entry and any states.
func (s *State) Actions() *ActionSet {
	return s.actions
}

// Active reports whether the state has been entered and not exited.
func (s *State) Active() bool {
	return s.active
}

// Transitions returns the outgoing transitions in evaluation order.
func (s *State) Transitions() []*Transition {
	return slices.Clone(s.transitions)
}

// Transition returns the transition leading to target, if any.
func (s *State) Transition(target string) (*Transition, bool) {
	idx := s.transitionIndex(target)
	if idx < 0 {
		return nil, false
	}

	return s.transitions[idx], true
}

// EntryTarget returns the ID of the state an entry state points at.
func (s *State) EntryTarget() (string, error) {
	if s.kind != KindEntry {
		return "", WrapStateError(s.id, ErrNotEntryState)
	}

	if len(s.transitions) != 1 {
		return "", WrapStateError(s.id, fmt.Errorf("%w: has %d", ErrEntryTransition, len(s.transitions)))
	}

	return s.transitions[0].target, nil
}

func (s *State) transitionIndex(target string) int {
	return slices.IndexFunc(s.transitions, func(t *Transition) bool {
		return t.target == target
	})
}

func (s *State) addTransition(target string, cond Condition) (*Transition, error) {
	if s.transitionIndex(target) >= 0 {
		return nil, WrapTransitionError(s.id, target, ErrDuplicateTransition)
	}

	t := NewTransition(s.id, target, cond)
	s.transitions = append(s.transitions, t)

	return t, nil
}

func (s *State) removeTransition(target string) error {
	idx := s.transitionIndex(target)
	if idx < 0 {
		return WrapTransitionError(s.id, target, ErrTransitionNotFound)
	}

	s.transitions = slices.Delete(s.transitions, idx, idx+1)

	return nil
}

// Enter marks the state active and, for action states, dispatches its
// on-enter actions.
func (s *State) Enter(ctx context.Context, rt Runtime) {
	s.active = true

	switch s.kind {
	case KindAction:
		rt.Dispatch(ctx, s, PhaseEnter, s.actions.OnEnter)
	case KindEntry, KindAny:
	}
}

// Tick dispatches on-tick actions for action states, then evaluates the
// outgoing transitions according to the runtime's policy. The first switch
// error aborts the tick.
func (s *State) Tick(ctx context.Context, rt Runtime) error {
	switch s.kind {
	case KindAction:
		rt.Dispatch(ctx, s, PhaseTick, s.actions.OnTick)
	case KindEntry, KindAny:
	}

	evaluators := rt.PredicateEvaluators()
	policy := rt.TransitionPolicy()

	for _, t := range s.transitions {
		if !t.Check(evaluators) {
			continue
		}

		if err := rt.SwitchState(ctx, t.target); err != nil {
			return err
		}

		if policy == FirstMatch {
			return nil
		}
	}

	return nil
}

// Exit marks the state inactive and, for action states, dispatches its
// on-exit actions.
func (s *State) Exit(ctx context.Context, rt Runtime) {
	s.active = false

	switch s.kind {
	case KindAction:
		rt.Dispatch(ctx, s, PhaseExit, s.actions.OnExit)
	case KindEntry, KindAny:
	}
}

// Clone returns a deep copy with the same ID. The copy is inactive.
func (s *State) Clone() *State {
	out := &State{
		id:       s.id,
		kind:     s.kind,
		actions:  s.actions.Clone(),
		Title:    s.Title,
		Position: s.Position,
	}

	if s.transitions != nil {
		out.transitions = make([]*Transition, len(s.transitions))
		for i, t := range s.transitions {
			out.transitions[i] = t.Clone()
		}
	}

	return out
}

func (s *State) String() string {
	return fmt.Sprintf("%s(%s %s)", s.kind, s.Title, s.id)
}
