package statemachine

import (
	"slices"
	"strings"
)

// Condition is a conjunction of disjunctions of predicate checks.
//
// Evaluation rules:
//   - an empty conjunction is true
//   - an empty disjunction is false
//   - a predicate passes unless some evaluator answers it with a value equal to
//     its Negate flag; evaluators that do not handle the kind are skipped
//
// The last rule means a predicate nobody handles is vacuously true. A
// misspelled or unhooked predicate therefore always passes; the validator
// reports such predicates as UNHANDLED_PREDICATE.
type Condition struct {
	And []Disjunction
}

// Disjunction is true when at least one of its predicates is true.
type Disjunction struct {
	Or []Predicate
}

// Predicate is a single, optionally negated, predicate check.
type Predicate struct {
	Kind       PredicateKind
	Parameters []string
	Negate     bool
}

// Always returns a condition with no terms, which is always true.
func Always() Condition {
	return Condition{}
}

// When builds a condition from its conjunction terms.
func When(terms ...Disjunction) Condition {
	return Condition{And: terms}
}

// Either builds a disjunction.
func Either(preds ...Predicate) Disjunction {
	return Disjunction{Or: preds}
}

// Is builds a predicate check that passes when evaluators answer true.
func Is(kind PredicateKind, params ...string) Predicate {
	return Predicate{Kind: kind, Parameters: params}
}

// Not returns a copy of the predicate with the negation flag flipped.
func (p Predicate) Not() Predicate {
	p.Parameters = slices.Clone(p.Parameters)
	p.Negate = !p.Negate

	return p
}

// Check evaluates the condition against the evaluators.
func (c Condition) Check(evaluators []PredicateEvaluator) bool {
	for _, term := range c.And {
		if !term.Check(evaluators) {
			return false
		}
	}

	return true
}

// Check evaluates the disjunction against the evaluators.
func (d Disjunction) Check(evaluators []PredicateEvaluator) bool {
	for _, pred := range d.Or {
		if pred.Check(evaluators) {
			return true
		}
	}

	return false
}

// Check evaluates the predicate against the evaluators. A single evaluator
// voting against the predicate vetoes it.
func (p Predicate) Check(evaluators []PredicateEvaluator) bool {
	for _, evaluator := range evaluators {
		result, ok := evaluator.Evaluate(p.Kind, p.Parameters)
		if !ok {
			continue
		}

		if result == p.Negate {
			return false
		}
	}

	return true
}

// Predicates returns every predicate in the condition, in order.
func (c Condition) Predicates() []Predicate {
	var preds []Predicate

	for _, term := range c.And {
		preds = append(preds, term.Or...)
	}

	return preds
}

// IsAlways reports whether the condition has no terms.
func (c Condition) IsAlways() bool {
	return len(c.And) == 0
}

// Clone returns a deep copy.
func (c Condition) Clone() Condition {
	if c.And == nil {
		return Condition{}
	}

	out := Condition{And: make([]Disjunction, len(c.And))}

	for i, term := range c.And {
		if term.Or == nil {
			continue
		}

		preds := make([]Predicate, len(term.Or))
		for j, pred := range term.Or {
			preds[j] = Predicate{
				Kind:       pred.Kind,
				Parameters: slices.Clone(pred.Parameters),
				Negate:     pred.Negate,
			}
		}

		out.And[i] = Disjunction{Or: preds}
	}

	return out
}

// String renders the condition as a boolean expression, e.g.
// "PlayerInChaseRange && (!DieEvent || AnimationOver(Attack))".
func (c Condition) String() string {
	if c.IsAlways() {
		return "always"
	}

	parts := make([]string, len(c.And))

	for i, term := range c.And {
		s := term.String()
		if len(term.Or) > 1 && len(c.And) > 1 {
			s = "(" + s + ")"
		}

		parts[i] = s
	}

	return strings.Join(parts, " && ")
}

func (d Disjunction) String() string {
	if len(d.Or) == 0 {
		return "never"
	}

	parts := make([]string, len(d.Or))
	for i, pred := range d.Or {
		parts[i] = pred.String()
	}

	return strings.Join(parts, " || ")
}

func (p Predicate) String() string {
	var sb strings.Builder

	if p.Negate {
		sb.WriteString("!")
	}

	sb.WriteString(p.Kind.String())

	if len(p.Parameters) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(p.Parameters, ", "))
		sb.WriteString(")")
	}

	return sb.String()
}
