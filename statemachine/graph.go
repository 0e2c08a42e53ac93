package statemachine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeebo/xxh3"
)

// Graph owns a set of states, including exactly one entry and one any state
// once finalized. Graphs are mutated only through an Editor or Builder; a
// controller works on its own clone.
type Graph struct {
	Name string

	states []*State
	index  map[string]*State
	entry  *State
	any    *State
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:  name,
		index: make(map[string]*State),
	}
}

// GetState returns the state with the given ID.
func (g *Graph) GetState(id string) (*State, error) {
	state, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, id)
	}

	return state, nil
}

// HasState reports whether a state with the given ID exists.
func (g *Graph) HasState(id string) bool {
	_, ok := g.index[id]

	return ok
}

// GetStates returns all states in insertion order.
func (g *Graph) GetStates() []*State {
	return slices.Clone(g.states)
}

// Len returns the number of states, entry and any included.
func (g *Graph) Len() int {
	return len(g.states)
}

// EntryState returns the entry state, or nil if the graph has none yet.
func (g *Graph) EntryState() *State {
	return g.entry
}

// AnyState returns the any state, or nil if the graph has none yet.
func (g *Graph) AnyState() *State {
	return g.any
}

// Transitions returns every transition of the graph, grouped by source in
// state order.
func (g *Graph) Transitions() []*Transition {
	var out []*Transition

	for _, state := range g.states {
		out = append(out, state.transitions...)
	}

	return out
}

// Inbound returns the transitions targeting id.
func (g *Graph) Inbound(id string) []*Transition {
	var out []*Transition

	for _, t := range g.Transitions() {
		if t.target == id {
			out = append(out, t)
		}
	}

	return out
}

func (g *Graph) addState(state *State) error {
	if state.id == "" {
		return ErrStateIDRequired
	}

	if _, exists := g.index[state.id]; exists {
		return WrapStateError(state.id, ErrDuplicateState)
	}

	switch state.kind {
	case KindEntry:
		if g.entry != nil {
			return WrapStateError(state.id, ErrMultipleEntryStates)
		}

		g.entry = state
	case KindAny:
		if g.any != nil {
			return WrapStateError(state.id, ErrMultipleAnyStates)
		}

		g.any = state
	case KindAction:
	}

	g.states = append(g.states, state)
	g.index[state.id] = state

	return nil
}

func (g *Graph) removeState(id string) error {
	state, ok := g.index[id]
	if !ok {
		return WrapStateError(id, ErrStateNotFound)
	}

	for _, other := range g.states {
		if idx := other.transitionIndex(id); idx >= 0 {
			other.transitions = slices.Delete(other.transitions, idx, idx+1)
		}
	}

	g.states = slices.DeleteFunc(g.states, func(s *State) bool { return s == state })
	delete(g.index, id)

	switch {
	case state == g.entry:
		g.entry = nil
	case state == g.any:
		g.any = nil
	}

	return nil
}

// Clone deep-copies every state with identical IDs and resolves the entry and
// any states of the copy by ID.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Name:   g.Name,
		states: make([]*State, len(g.states)),
		index:  make(map[string]*State, len(g.states)),
	}

	for i, state := range g.states {
		clone := state.Clone()
		out.states[i] = clone
		out.index[clone.id] = clone
	}

	if g.entry != nil {
		out.entry = out.index[g.entry.id]
	}

	if g.any != nil {
		out.any = out.index[g.any.id]
	}

	return out
}

// Validate reports every structural problem that would make the graph unusable
// at runtime: a missing entry or any state, an entry state without exactly one
// transition, and transitions whose target is missing or not switchable.
func (g *Graph) Validate() error {
	var errs []error

	if g.entry == nil {
		errs = append(errs, ErrMissingEntryState)
	} else if len(g.entry.transitions) != 1 {
		errs = append(errs, WrapStateError(g.entry.id,
			fmt.Errorf("%w: has %d", ErrEntryTransition, len(g.entry.transitions))))
	}

	if g.any == nil {
		errs = append(errs, ErrMissingAnyState)
	}

	for _, state := range g.states {
		for _, t := range state.transitions {
			target, ok := g.index[t.target]
			if !ok {
				errs = append(errs, WrapTransitionError(state.id, t.target, ErrStateNotFound))

				continue
			}

			if !target.kind.Switchable() {
				errs = append(errs, WrapTransitionError(state.id, t.target, ErrInvalidTarget))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("graph %q: %w", g.Name, errors.Join(errs...))
}

// Fingerprint hashes the canonical YAML form of the graph. Two graphs with
// the same fingerprint behave identically.
func (g *Graph) Fingerprint() (uint64, error) {
	data, err := MarshalConfig(NewConfig(g))
	if err != nil {
		return 0, err
	}

	return xxh3.Hash(data), nil
}
