package statemachine

import "errors"

// IDs the builder gives to the entry and any states.
const (
	EntryStateID = "entry"
	AnyStateID   = "any"
)

// Builder provides a fluent API for constructing graphs with caller-chosen
// state IDs. Transitions are wired at Build time, so states may be declared
// in any order.
type Builder struct {
	editor      *Editor
	entryTarget string
	transitions []pendingTransition
	errs        []error
}

type pendingTransition struct {
	from string
	to   string
	cond Condition
}

// StateOption configures an action state declared through Builder.State.
type StateOption func(*State)

// OnEnter sets the on-enter actions.
func OnEnter(actions ...Action) StateOption {
	return func(s *State) {
		s.actions.OnEnter = actions
	}
}

// OnTick sets the on-tick actions.
func OnTick(actions ...Action) StateOption {
	return func(s *State) {
		s.actions.OnTick = actions
	}
}

// OnExit sets the on-exit actions.
func OnExit(actions ...Action) StateOption {
	return func(s *State) {
		s.actions.OnExit = actions
	}
}

// At sets the editor position.
func At(x, y float64) StateOption {
	return func(s *State) {
		s.Position = Position{X: x, Y: y}
	}
}

// NewBuilder creates a new graph builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		editor: NewEditor(NewGraph(name)),
	}
}

// State declares an action state.
func (b *Builder) State(id, title string, opts ...StateOption) *Builder {
	state, err := b.editor.createState(id, KindAction, Position{})
	if err != nil {
		b.errs = append(b.errs, err)

		return b
	}

	if title != "" {
		state.Title = title
	}

	for _, opt := range opts {
		opt(state)
	}

	return b
}

// Entry names the state the controller starts in.
func (b *Builder) Entry(target string) *Builder {
	b.entryTarget = target

	return b
}

// Transition adds a guarded transition between two action states.
func (b *Builder) Transition(from, to string, cond Condition) *Builder {
	b.transitions = append(b.transitions, pendingTransition{from: from, to: to, cond: cond})

	return b
}

// AnyTransition adds a transition checked every tick regardless of the
// current state.
func (b *Builder) AnyTransition(to string, cond Condition) *Builder {
	return b.Transition(AnyStateID, to, cond)
}

// Build creates the entry and any states, wires all transitions and validates
// the result.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	graph := b.editor.Graph()

	entry, err := b.editor.createState(EntryStateID, KindEntry, EntryStatePosition)
	if err != nil {
		return nil, err
	}

	if _, err := b.editor.createState(AnyStateID, KindAny, AnyStatePosition); err != nil {
		return nil, err
	}

	if b.entryTarget != "" {
		if _, err := b.editor.AddTransition(entry.id, b.entryTarget); err != nil {
			return nil, err
		}
	}

	for _, pending := range b.transitions {
		if _, err := b.editor.AddTransition(pending.from, pending.to); err != nil {
			return nil, err
		}

		if err := b.editor.SetCondition(pending.from, pending.to, pending.cond); err != nil {
			return nil, err
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}
