package testing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Matcher errors.
var (
	ErrNoMatchersPassed   = errors.New("no matchers passed")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrWrongCurrentState  = errors.New("unexpected current state")
	ErrActionNotPerformed = errors.New("action was not performed")
)

// Matcher defines an assertion matcher interface.
type Matcher interface {
	Match(tc *TestController) (bool, error)
	Description() string
}

// StateWasVisited creates a matcher that checks if a state was entered.
func StateWasVisited(id string) Matcher {
	return &stateVisitedMatcher{id: id}
}

type stateVisitedMatcher struct {
	id string
}

func (m *stateVisitedMatcher) Match(tc *TestController) (bool, error) {
	if slices.Contains(tc.Entered(), m.id) {
		return true, nil
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.id)
}

func (m *stateVisitedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.id)
}

// TransitionWasTaken creates a matcher that checks if a switch occurred. An
// empty from matches the switch made by Start.
func TransitionWasTaken(from, to string) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from string
	to   string
}

func (m *transitionTakenMatcher) Match(tc *TestController) (bool, error) {
	for _, entry := range tc.trace {
		if entry.Kind == statemachine.HookTransition && entry.From == m.from && entry.State == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// CurrentStateIs creates a matcher on the controller's current state.
func CurrentStateIs(id string) Matcher {
	return &currentStateMatcher{id: id}
}

type currentStateMatcher struct {
	id string
}

func (m *currentStateMatcher) Match(tc *TestController) (bool, error) {
	current := tc.CurrentState()
	if current != nil && current.ID() == m.id {
		return true, nil
	}

	return false, fmt.Errorf("%w: want '%s', have %v", ErrWrongCurrentState, m.id, current)
}

func (m *currentStateMatcher) Description() string {
	return fmt.Sprintf("current state should be '%s'", m.id)
}

// ActionWasPerformed creates a matcher that checks the recording performer saw
// an action with the given kind and parameters.
func ActionWasPerformed(kind statemachine.ActionKind, params ...string) Matcher {
	return &actionPerformedMatcher{call: Call{Kind: kind, Params: params}}
}

type actionPerformedMatcher struct {
	call Call
}

func (m *actionPerformedMatcher) Match(tc *TestController) (bool, error) {
	for _, call := range tc.Performer.Calls() {
		if call.Kind == m.call.Kind && slices.Equal(call.Params, m.call.Params) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: %s", ErrActionNotPerformed, m.call)
}

func (m *actionPerformedMatcher) Description() string {
	return fmt.Sprintf("action %s should be performed", m.call)
}

// All creates a matcher that requires all sub-matchers to pass.
func All(matchers ...Matcher) Matcher {
	return &allMatcher{matchers: matchers}
}

type allMatcher struct {
	matchers []Matcher
}

func (m *allMatcher) Match(tc *TestController) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(tc)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any(matchers ...Matcher) Matcher {
	return &anyMatcher{matchers: matchers}
}

type anyMatcher struct {
	matchers []Matcher
}

func (m *anyMatcher) Match(tc *TestController) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(tc)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher) Description() string {
	return "at least one matcher should pass"
}
