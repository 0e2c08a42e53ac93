package statemachine

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Editor is the authoring layer over a graph. Every mutation keeps the ID
// lookup consistent; nothing here runs states.
type Editor struct {
	graph *Graph
	newID func() string
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithIDGenerator replaces the random UUID generator used for new states.
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) {
		e.newID = fn
	}
}

// NewEditor wraps g for editing. A nil graph starts an empty, unnamed one.
func NewEditor(g *Graph, opts ...EditorOption) *Editor {
	if g == nil {
		g = NewGraph("")
	}

	editor := &Editor{
		graph: g,
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(editor)
	}

	return editor
}

// Graph returns the graph being edited.
func (e *Editor) Graph() *Graph {
	return e.graph
}

// CreateState adds a state with a fresh ID and no transitions. Entry and any
// states get their fixed titles; at most one of each may exist.
func (e *Editor) CreateState(kind StateKind, pos Position) (*State, error) {
	return e.createState(e.newID(), kind, pos)
}

func (e *Editor) createState(id string, kind StateKind, pos Position) (*State, error) {
	state := newState(id, kind)
	state.Position = pos

	switch kind {
	case KindEntry:
		state.Title = EntryStateTitle
	case KindAny:
		state.Title = AnyStateTitle
	case KindAction:
	}

	if err := e.graph.addState(state); err != nil {
		return nil, err
	}

	return state, nil
}

// RemoveState deletes a state together with every transition that targets it.
// The entry and any states cannot be removed.
func (e *Editor) RemoveState(id string) error {
	state, err := e.graph.GetState(id)
	if err != nil {
		return err
	}

	if state.kind != KindAction {
		return WrapStateError(id, ErrCannotRemoveState)
	}

	return e.graph.removeState(id)
}

// AddTransition creates a transition from source to target with an always-true
// condition. Self-transitions are allowed; entry and any states are not valid
// targets and the entry state holds at most one transition.
func (e *Editor) AddTransition(source, target string) (*Transition, error) {
	src, err := e.graph.GetState(source)
	if err != nil {
		return nil, WrapTransitionError(source, target, err)
	}

	dst, err := e.graph.GetState(target)
	if err != nil {
		return nil, WrapTransitionError(source, target, err)
	}

	if !dst.kind.Switchable() {
		return nil, WrapTransitionError(source, target, ErrInvalidTarget)
	}

	if src.kind == KindEntry && len(src.transitions) > 0 {
		return nil, WrapTransitionError(source, target, ErrEntryTransition)
	}

	return src.addTransition(target, Always())
}

// RemoveTransition deletes the transition from source to target.
func (e *Editor) RemoveTransition(source, target string) error {
	src, err := e.graph.GetState(source)
	if err != nil {
		return WrapTransitionError(source, target, err)
	}

	return src.removeTransition(target)
}

// SetTitle renames a state.
func (e *Editor) SetTitle(id, title string) error {
	state, err := e.graph.GetState(id)
	if err != nil {
		return err
	}

	state.Title = title

	return nil
}

// SetPosition moves a state in the editor view.
func (e *Editor) SetPosition(id string, pos Position) error {
	state, err := e.graph.GetState(id)
	if err != nil {
		return err
	}

	state.Position = pos

	return nil
}

// SetCondition replaces the condition guarding the transition from source to
// target.
func (e *Editor) SetCondition(source, target string, cond Condition) error {
	src, err := e.graph.GetState(source)
	if err != nil {
		return WrapTransitionError(source, target, err)
	}

	t, ok := src.Transition(target)
	if !ok {
		return WrapTransitionError(source, target, ErrTransitionNotFound)
	}

	t.Condition = cond.Clone()

	return nil
}

// SetActions replaces one action list of an action state.
func (e *Editor) SetActions(id string, phase Phase, actions ...Action) error {
	state, err := e.graph.GetState(id)
	if err != nil {
		return err
	}

	if state.actions == nil {
		return WrapStateError(id, ErrNotActionState)
	}

	state.actions.Set(phase, cloneActions(actions))

	return nil
}

// EnsureEntryAndAny creates the entry and any states if the graph lacks them
// and returns the states it created. A state that cannot be added, e.g.
// because the ID generator repeats an ID, is reported in the joined error.
func (e *Editor) EnsureEntryAndAny() ([]*State, error) {
	var (
		created []*State
		errs    []error
	)

	if e.graph.entry == nil {
		state, err := e.createState(e.newID(), KindEntry, EntryStatePosition)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create entry state: %w", err))
		} else {
			created = append(created, state)
		}
	}

	if e.graph.any == nil {
		state, err := e.createState(e.newID(), KindAny, AnyStatePosition)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create any state: %w", err))
		} else {
			created = append(created, state)
		}
	}

	return created, errors.Join(errs...)
}

// Save ensures the entry and any states exist and writes the graph as YAML.
func (e *Editor) Save(w io.Writer) error {
	if _, err := e.EnsureEntryAndAny(); err != nil {
		return err
	}

	data, err := MarshalConfig(NewConfig(e.graph))
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write graph %q: %w", e.graph.Name, err)
	}

	return nil
}

// Finalize ensures the entry and any states exist and validates the graph.
// The returned graph is ready to hand to NewController.
func (e *Editor) Finalize() (*Graph, error) {
	if _, err := e.EnsureEntryAndAny(); err != nil {
		return nil, err
	}

	if err := e.graph.Validate(); err != nil {
		return nil, err
	}

	return e.graph, nil
}
