package statemachine

import (
	"math/rand/v2"
	"sync"
	"time"
)

// ActionPerformer executes actions broadcast by states. Implementations must
// ignore kinds they do not handle and tolerate repeated calls within one tick.
type ActionPerformer interface {
	PerformAction(kind ActionKind, params []string)
}

// PredicateEvaluator answers predicate queries for conditions. ok is false when
// the evaluator does not handle the kind, in which case result is ignored.
type PredicateEvaluator interface {
	Evaluate(kind PredicateKind, params []string) (result bool, ok bool)
}

// PerformerFunc adapts a function to ActionPerformer.
type PerformerFunc func(kind ActionKind, params []string)

func (f PerformerFunc) PerformAction(kind ActionKind, params []string) {
	f(kind, params)
}

// EvaluatorFunc adapts a function to PredicateEvaluator.
type EvaluatorFunc func(kind PredicateKind, params []string) (bool, bool)

func (f EvaluatorFunc) Evaluate(kind PredicateKind, params []string) (bool, bool) {
	return f(kind, params)
}

// Chooser picks one option out of several, e.g. a random animation clip.
type Chooser interface {
	Choose(options []string) string
}

// ChooserAware collaborators receive the controller's Chooser once, when the
// controller is constructed.
type ChooserAware interface {
	UseChooser(chooser Chooser)
}

// EventSource collaborators expose one-shot events that the controller latches
// at the start of each tick and clears at the end of it.
type EventSource interface {
	Events() []*Event
}

// Updater collaborators advance their own timers once per scheduling step,
// before the controller ticks.
type Updater interface {
	Update(dt time.Duration)
}

// LateUpdater collaborators apply effects on other agents, such as weapon
// hits, once every agent of a step has ticked. Hosts call LateUpdate
// sequentially in a stable agent order.
type LateUpdater interface {
	LateUpdate()
}

// RandomChooser is a Chooser backed by an explicit random source.
type RandomChooser struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomChooser creates a chooser drawing from src.
func NewRandomChooser(src rand.Source) *RandomChooser {
	return &RandomChooser{rnd: rand.New(src)} //nolint:gosec
}

// NewSeededChooser creates a deterministic chooser from a seed.
func NewSeededChooser(seed uint64) *RandomChooser {
	return NewRandomChooser(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Choose returns a uniformly chosen option. A single option is returned as is
// without consuming randomness; no options yields "".
func (c *RandomChooser) Choose(options []string) string {
	switch len(options) {
	case 0:
		return ""
	case 1:
		return options[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return options[c.rnd.IntN(len(options))]
}

// FirstChooser always picks the first option.
type FirstChooser struct{}

func (FirstChooser) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}

	return options[0]
}
