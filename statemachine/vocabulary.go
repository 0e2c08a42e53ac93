package statemachine

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// ActionKind identifies an action that states broadcast to action performers.
type ActionKind int

// Built-in action kinds.
const (
	ActionFreeLook ActionKind = iota
	ActionPlayAnimation
	ActionMoveToWaypoint
	ActionCancelMovement
	ActionChasePlayer
	ActionPrintMessage
)

// PredicateKind identifies a query that conditions ask predicate evaluators.
type PredicateKind int

// Built-in predicate kinds.
const (
	PredicateInputActionPressed PredicateKind = iota
	PredicateAnimationOver
	PredicateAtWaypoint
	PredicateCanPatrol
	PredicateDamageTakenEvent
	PredicateDieEvent
	PredicatePlayerInChaseRange
	PredicatePlayerInAttackRange
	PredicateSuspicionFinished
)

// vocabulary is an append-only name table. Indexes never change once assigned.
type vocabulary struct {
	mu    sync.RWMutex
	names []string
	index map[string]int
}

func newVocabulary(names ...string) *vocabulary {
	v := &vocabulary{index: make(map[string]int, len(names))}
	for _, name := range names {
		v.register(name)
	}

	return v
}

func (v *vocabulary) register(name string) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if idx, ok := v.index[name]; ok {
		return idx
	}

	v.names = append(v.names, name)
	v.index[name] = len(v.names) - 1

	return len(v.names) - 1
}

func (v *vocabulary) name(idx int) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if idx < 0 || idx >= len(v.names) {
		return "", false
	}

	return v.names[idx], true
}

func (v *vocabulary) lookup(name string) (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	idx, ok := v.index[name]

	return idx, ok
}

func (v *vocabulary) size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return len(v.names)
}

var (
	actionVocabulary = newVocabulary( //nolint:gochecknoglobals
		"FreeLook",
		"PlayAnimation",
		"MoveToWaypoint",
		"CancelMovement",
		"ChasePlayer",
		"PrintMessage",
	)

	predicateVocabulary = newVocabulary( //nolint:gochecknoglobals
		"InputActionPressed",
		"AnimationOver",
		"AtWaypoint",
		"CanPatrol",
		"DamageTakenEvent",
		"DieEvent",
		"PlayerInChaseRange",
		"PlayerInAttackRange",
		"SuspicionFinished",
	)
)

// RegisterActionKind adds a host-defined action kind. Registering an existing
// name returns the kind already assigned to it.
func RegisterActionKind(name string) ActionKind {
	return ActionKind(actionVocabulary.register(name))
}

// RegisterPredicateKind adds a host-defined predicate kind. Registering an
// existing name returns the kind already assigned to it.
func RegisterPredicateKind(name string) PredicateKind {
	return PredicateKind(predicateVocabulary.register(name))
}

// ParseActionKind resolves an action kind by name.
func ParseActionKind(name string) (ActionKind, error) {
	idx, ok := actionVocabulary.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActionKind, name)
	}

	return ActionKind(idx), nil
}

// ParsePredicateKind resolves a predicate kind by name.
func ParsePredicateKind(name string) (PredicateKind, error) {
	idx, ok := predicateVocabulary.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPredicateKind, name)
	}

	return PredicateKind(idx), nil
}

// ActionKinds returns every registered action kind in registration order.
func ActionKinds() []ActionKind {
	kinds := make([]ActionKind, actionVocabulary.size())
	for i := range kinds {
		kinds[i] = ActionKind(i)
	}

	return kinds
}

// PredicateKinds returns every registered predicate kind in registration order.
func PredicateKinds() []PredicateKind {
	kinds := make([]PredicateKind, predicateVocabulary.size())
	for i := range kinds {
		kinds[i] = PredicateKind(i)
	}

	return kinds
}

func (k ActionKind) String() string {
	if name, ok := actionVocabulary.name(int(k)); ok {
		return name
	}

	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Valid reports whether the kind has been registered.
func (k ActionKind) Valid() bool {
	_, ok := actionVocabulary.name(int(k))

	return ok
}

func (k ActionKind) MarshalYAML() (any, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownActionKind, int(k))
	}

	return k.String(), nil
}

func (k *ActionKind) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}

	kind, err := ParseActionKind(name)
	if err != nil {
		return err
	}

	*k = kind

	return nil
}

func (k PredicateKind) String() string {
	if name, ok := predicateVocabulary.name(int(k)); ok {
		return name
	}

	return fmt.Sprintf("PredicateKind(%d)", int(k))
}

// Valid reports whether the kind has been registered.
func (k PredicateKind) Valid() bool {
	_, ok := predicateVocabulary.name(int(k))

	return ok
}

func (k PredicateKind) MarshalYAML() (any, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPredicateKind, int(k))
	}

	return k.String(), nil
}

func (k *PredicateKind) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}

	kind, err := ParsePredicateKind(name)
	if err != nil {
		return err
	}

	*k = kind

	return nil
}
