//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a config for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(config *statemachine.Config) RuleResult
}

// DefaultRules returns the standard set of validation rules. Shadowed
// transitions are judged under first-match, the controller default.
func DefaultRules() []Rule {
	return []Rule{
		&stateDeclarationRule{},
		&entryAndAnyRule{},
		&entryTransitionRule{},
		&transitionTargetRule{},
		&unreachableStateRule{},
		&emptyDisjunctionRule{},
		NewShadowedTransitionRule(statemachine.FirstMatch),
		&telemetryNamingRule{},
	}
}

var (
	registeredMu    sync.RWMutex //nolint:gochecknoglobals
	registeredRules []Rule       //nolint:gochecknoglobals
)

// RegisterRule adds a custom validation rule to every later Validate call.
func RegisterRule(rule Rule) {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	registeredRules = append(registeredRules, rule)
}

// RegisteredRules returns the custom rules added with RegisterRule.
func RegisteredRules() []Rule {
	registeredMu.RLock()
	defer registeredMu.RUnlock()

	return slices.Clone(registeredRules)
}

// AllRules returns the default rules followed by the registered ones.
func AllRules() []Rule {
	return append(DefaultRules(), RegisteredRules()...)
}

func stateKind(state statemachine.StateConfig) (statemachine.StateKind, bool) {
	kind, err := statemachine.ParseStateKind(state.Kind)

	return kind, err == nil
}

func isActionState(state statemachine.StateConfig) bool {
	kind, ok := stateKind(state)

	return ok && kind == statemachine.KindAction
}

func findKind(config *statemachine.Config, want statemachine.StateKind) *statemachine.StateConfig {
	for i, state := range config.States {
		if kind, ok := stateKind(state); ok && kind == want {
			return &config.States[i]
		}
	}

	return nil
}

func findAny(config *statemachine.Config) *statemachine.StateConfig {
	return findKind(config, statemachine.KindAny)
}

// stateKinds maps every declared ID to its kind. The first declaration wins.
func stateKinds(config *statemachine.Config) map[string]statemachine.StateKind {
	kinds := make(map[string]statemachine.StateKind, len(config.States))

	for _, state := range config.States {
		if _, seen := kinds[state.ID]; seen {
			continue
		}

		kind, ok := stateKind(state)
		if !ok {
			continue
		}

		kinds[state.ID] = kind
	}

	return kinds
}

// stateDeclarationRule checks IDs, kinds and action lists of each state.
type stateDeclarationRule struct{}

func (r *stateDeclarationRule) Name() string {
	return "StateDeclaration"
}

func (r *stateDeclarationRule) Severity() Severity {
	return SeverityError
}

func (r *stateDeclarationRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	seen := make(map[string]bool, len(config.States))

	for i, state := range config.States {
		if state.ID == "" {
			errors = append(errors, ValidationError{
				Code:    "STATE_ID_REQUIRED",
				Message: fmt.Sprintf("State %d has no ID", i),
			})

			continue
		}

		if seen[state.ID] {
			errors = append(errors, ValidationError{
				Code:     "DUPLICATE_STATE",
				Message:  fmt.Sprintf("State ID '%s' is declared more than once", state.ID),
				Location: Location{State: state.ID},
			})
		}

		seen[state.ID] = true

		kind, ok := stateKind(state)
		if !ok {
			errors = append(errors, ValidationError{
				Code:     "UNKNOWN_STATE_KIND",
				Message:  fmt.Sprintf("State '%s' has kind '%s'; expected action, entry or any", state.ID, state.Kind),
				Location: Location{State: state.ID},
			})

			continue
		}

		if kind != statemachine.KindAction && len(state.OnEnter)+len(state.OnTick)+len(state.OnExit) > 0 {
			errors = append(errors, ValidationError{
				Code:     "ACTIONS_ON_SPECIAL_STATE",
				Message:  fmt.Sprintf("The %s state '%s' carries actions; only action states dispatch them", kind, state.ID),
				Location: Location{State: state.ID},
			})
		}
	}

	return RuleResult{Errors: errors}
}

// entryAndAnyRule checks that exactly one entry and one any state exist.
type entryAndAnyRule struct{}

func (r *entryAndAnyRule) Name() string {
	return "EntryAndAny"
}

func (r *entryAndAnyRule) Severity() Severity {
	return SeverityError
}

func (r *entryAndAnyRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	var entries, anys int

	for _, state := range config.States {
		kind, ok := stateKind(state)
		if !ok {
			continue
		}

		switch kind {
		case statemachine.KindEntry:
			entries++
		case statemachine.KindAny:
			anys++
		case statemachine.KindAction:
		}
	}

	switch {
	case entries == 0:
		errors = append(errors, ValidationError{
			Code:    "MISSING_ENTRY_STATE",
			Message: fmt.Sprintf("Graph '%s' has no entry state", config.Name),
			Fix:     EnsureEntryAndAny(),
		})
	case entries > 1:
		errors = append(errors, ValidationError{
			Code:    "MULTIPLE_ENTRY_STATES",
			Message: fmt.Sprintf("Graph '%s' has %d entry states; exactly one is allowed", config.Name, entries),
		})
	}

	switch {
	case anys == 0:
		errors = append(errors, ValidationError{
			Code:    "MISSING_ANY_STATE",
			Message: fmt.Sprintf("Graph '%s' has no any state", config.Name),
			Fix:     EnsureEntryAndAny(),
		})
	case anys > 1:
		errors = append(errors, ValidationError{
			Code:    "MULTIPLE_ANY_STATES",
			Message: fmt.Sprintf("Graph '%s' has %d any states; exactly one is allowed", config.Name, anys),
		})
	}

	return RuleResult{Errors: errors}
}

// entryTransitionRule checks that the entry state names exactly one initial state.
type entryTransitionRule struct{}

func (r *entryTransitionRule) Name() string {
	return "EntryTransition"
}

func (r *entryTransitionRule) Severity() Severity {
	return SeverityError
}

func (r *entryTransitionRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	for _, state := range config.States {
		if kind, ok := stateKind(state); !ok || kind != statemachine.KindEntry {
			continue
		}

		if count := len(state.Transitions); count != 1 {
			errors = append(errors, ValidationError{
				Code:     "ENTRY_TRANSITION_COUNT",
				Message:  fmt.Sprintf("Entry state '%s' has %d transitions; it needs exactly one to name the initial state", state.ID, count),
				Location: Location{State: state.ID},
			})
		}
	}

	return RuleResult{Errors: errors}
}

// transitionTargetRule checks that every transition points at a distinct,
// existing action state.
type transitionTargetRule struct{}

func (r *transitionTargetRule) Name() string {
	return "TransitionTarget"
}

func (r *transitionTargetRule) Severity() Severity {
	return SeverityError
}

func (r *transitionTargetRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	kinds := stateKinds(config)

	for _, state := range config.States {
		targets := make(map[string]bool, len(state.Transitions))

		for _, transition := range state.Transitions {
			location := Location{State: state.ID, Target: transition.To}

			kind, ok := kinds[transition.To]

			switch {
			case !ok:
				errors = append(errors, ValidationError{
					Code:     "DANGLING_TRANSITION",
					Message:  fmt.Sprintf("Transition from '%s' targets missing state '%s'", state.ID, transition.To),
					Location: location,
					Fix:      RemoveDanglingTransition(state.ID, transition.To),
				})
			case !kind.Switchable():
				errors = append(errors, ValidationError{
					Code:     "INVALID_TRANSITION_TARGET",
					Message:  fmt.Sprintf("Transition from '%s' targets the %s state '%s'; only action states can be entered", state.ID, kind, transition.To),
					Location: location,
					Fix:      RemoveInvalidTransition(state.ID, transition.To),
				})
			case targets[transition.To]:
				errors = append(errors, ValidationError{
					Code:     "DUPLICATE_TRANSITION",
					Message:  fmt.Sprintf("State '%s' has more than one transition to '%s'", state.ID, transition.To),
					Location: location,
					Fix:      RemoveDuplicateTransition(state.ID, transition.To),
				})
			}

			targets[transition.To] = true
		}
	}

	return RuleResult{Errors: errors}
}

// unreachableStateRule checks for action states that no path from the entry
// or any state leads to.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *unreachableStateRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	reachable := Reachable(config)

	for _, state := range config.States {
		if !isActionState(state) || state.ID == "" || reachable[state.ID] {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("State '%s' cannot be reached from the entry or any state", state.ID),
			Location: Location{State: state.ID},
			Fix:      RemoveUnreachableState(state.ID),
		})
	}

	return RuleResult{Warnings: warnings}
}

// Reachable returns the IDs reachable by following transitions from the entry
// and any states. Both seeds are included.
func Reachable(config *statemachine.Config) map[string]bool {
	outgoing := make(map[string][]string, len(config.States))
	reachable := make(map[string]bool, len(config.States))

	var queue []string

	for _, state := range config.States {
		for _, transition := range state.Transitions {
			outgoing[state.ID] = append(outgoing[state.ID], transition.To)
		}

		if kind, ok := stateKind(state); ok && kind != statemachine.KindAction && !reachable[state.ID] {
			reachable[state.ID] = true
			queue = append(queue, state.ID)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range outgoing[current] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// emptyDisjunctionRule checks for OR terms without predicates. An empty OR is
// false, so the whole condition can never hold.
type emptyDisjunctionRule struct{}

func (r *emptyDisjunctionRule) Name() string {
	return "EmptyDisjunction"
}

func (r *emptyDisjunctionRule) Severity() Severity {
	return SeverityWarning
}

func (r *emptyDisjunctionRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	for _, state := range config.States {
		for _, transition := range state.Transitions {
			for i, term := range transition.Condition.And {
				if len(term.Or) > 0 {
					continue
				}

				warnings = append(warnings, ValidationWarning{
					Code:     "EMPTY_DISJUNCTION",
					Message:  fmt.Sprintf("Condition term %d of transition '%s' -> '%s' has no predicates; the transition never fires", i, state.ID, transition.To),
					Location: Location{State: state.ID, Target: transition.To},
				})
			}
		}
	}

	return RuleResult{Warnings: warnings}
}

// shadowedTransitionRule checks for transitions that can never fire under
// first-match because an earlier transition of the same state always wins.
type shadowedTransitionRule struct {
	policy statemachine.TransitionPolicy
}

// NewShadowedTransitionRule creates the shadowing check for the given
// transition policy. Nothing is shadowed under every-match.
func NewShadowedTransitionRule(policy statemachine.TransitionPolicy) Rule {
	return &shadowedTransitionRule{policy: policy}
}

func (r *shadowedTransitionRule) Name() string {
	return "ShadowedTransition"
}

func (r *shadowedTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *shadowedTransitionRule) Check(config *statemachine.Config) RuleResult {
	if r.policy != statemachine.FirstMatch {
		return RuleResult{}
	}

	var warnings []ValidationWarning

	for _, state := range config.States {
		alwaysTarget := ""
		seen := make(map[string]string, len(state.Transitions))

		for _, transition := range state.Transitions {
			location := Location{State: state.ID, Target: transition.To}

			if alwaysTarget != "" {
				warnings = append(warnings, ValidationWarning{
					Code:     "SHADOWED_TRANSITION",
					Message:  fmt.Sprintf("Transition '%s' -> '%s' never fires: the earlier transition to '%s' is always true", state.ID, transition.To, alwaysTarget),
					Location: location,
				})

				continue
			}

			if len(transition.Condition.And) == 0 {
				alwaysTarget = transition.To

				continue
			}

			key := conditionKey(transition.Condition)
			if earlier, ok := seen[key]; ok {
				warnings = append(warnings, ValidationWarning{
					Code:     "SHADOWED_TRANSITION",
					Message:  fmt.Sprintf("Transition '%s' -> '%s' never fires: the earlier transition to '%s' has the same condition", state.ID, transition.To, earlier),
					Location: location,
				})

				continue
			}

			seen[key] = transition.To
		}
	}

	return RuleResult{Warnings: warnings}
}

func conditionOf(config statemachine.ConditionConfig) statemachine.Condition {
	terms := make([]statemachine.Disjunction, len(config.And))

	for i, term := range config.And {
		preds := make([]statemachine.Predicate, len(term.Or))
		for j, pc := range term.Or {
			preds[j] = statemachine.Predicate{Kind: pc.Predicate, Parameters: pc.Parameters, Negate: pc.Negate}
		}

		terms[i] = statemachine.Either(preds...)
	}

	return statemachine.When(terms...)
}

func conditionKey(config statemachine.ConditionConfig) string {
	return conditionOf(config).String()
}

// vocabularyRule checks predicates and actions against what the host's
// collaborators handle. An unhandled predicate is vacuously true and an
// unhandled action is silently dropped.
type vocabularyRule struct {
	predicates map[statemachine.PredicateKind]bool
	actions    map[statemachine.ActionKind]bool
}

// NewVocabularyRule creates a rule warning about predicate and action kinds
// outside the handled sets. A nil set disables that half of the check.
func NewVocabularyRule(predicates []statemachine.PredicateKind, actions []statemachine.ActionKind) Rule {
	rule := &vocabularyRule{}

	if predicates != nil {
		rule.predicates = make(map[statemachine.PredicateKind]bool, len(predicates))
		for _, kind := range predicates {
			rule.predicates[kind] = true
		}
	}

	if actions != nil {
		rule.actions = make(map[statemachine.ActionKind]bool, len(actions))
		for _, kind := range actions {
			rule.actions[kind] = true
		}
	}

	return rule
}

func (r *vocabularyRule) Name() string {
	return "Vocabulary"
}

func (r *vocabularyRule) Severity() Severity {
	return SeverityWarning
}

func (r *vocabularyRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	reported := make(map[string]bool)

	report := func(code, kind, stateID, message string) {
		key := code + "/" + stateID + "/" + kind
		if reported[key] {
			return
		}

		reported[key] = true

		warnings = append(warnings, ValidationWarning{
			Code:     code,
			Message:  message,
			Location: Location{State: stateID},
		})
	}

	for _, state := range config.States {
		if r.actions != nil {
			for _, actions := range [][]statemachine.ActionConfig{state.OnEnter, state.OnTick, state.OnExit} {
				for _, action := range actions {
					if !r.actions[action.Action] {
						report("UNHANDLED_ACTION", action.Action.String(), state.ID,
							fmt.Sprintf("State '%s' dispatches %s, which no performer handles", state.ID, action.Action))
					}
				}
			}
		}

		if r.predicates == nil {
			continue
		}

		for _, transition := range state.Transitions {
			for _, term := range transition.Condition.And {
				for _, pred := range term.Or {
					if !r.predicates[pred.Predicate] {
						report("UNHANDLED_PREDICATE", pred.Predicate.String(), state.ID,
							fmt.Sprintf("State '%s' checks %s, which no evaluator answers; it is always true", state.ID, pred.Predicate))
					}
				}
			}
		}
	}

	return RuleResult{Warnings: warnings}
}
