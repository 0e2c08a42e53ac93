package statemachine

// Transition is a guarded edge owned by its source state.
type Transition struct {
	source    string
	target    string
	Condition Condition
}

// NewTransition creates a transition from source to target guarded by cond.
func NewTransition(source, target string, cond Condition) *Transition {
	return &Transition{
		source:    source,
		target:    target,
		Condition: cond,
	}
}

// Source returns the owning state's ID.
func (t *Transition) Source() string {
	return t.source
}

// Target returns the ID of the state this transition leads to.
func (t *Transition) Target() string {
	return t.target
}

// Check evaluates the transition's condition.
func (t *Transition) Check(evaluators []PredicateEvaluator) bool {
	return t.Condition.Check(evaluators)
}

// Clone returns a deep copy.
func (t *Transition) Clone() *Transition {
	return &Transition{
		source:    t.source,
		target:    t.target,
		Condition: t.Condition.Clone(),
	}
}
