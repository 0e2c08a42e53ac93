package testing

import (
	"testing"

	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	t.Parallel()

	RunScenario(t, FlagScenario())
	RunScenario(t, SelfLoopScenario())
	RunScenario(t, GuardDeathScenario())
}

func TestNewTestController(t *testing.T) {
	t.Parallel()

	tc := NewTestController(t, MustBuild(t, CommonGraphs.Flag()))

	assert.NotNil(t, tc.Controller)
	assert.False(t, tc.Started())
	assert.Empty(t, tc.Trace())
	assert.Len(t, tc.ActionPerformers(), 1)
	assert.Len(t, tc.PredicateEvaluators(), 1)
}

func TestTrace(t *testing.T) {
	t.Parallel()

	tc := NewTestController(t, MustBuild(t, CommonGraphs.Flag()))
	tc.Set(Flag, true)
	tc.Start()
	tc.Tick()

	var rendered []string
	for _, entry := range tc.Trace() {
		rendered = append(rendered, entry.String())
	}

	assert.Equal(t, []string{
		"0 dispatch A enter",
		"0 enter A",
		"0 transition ->A",
		"0 dispatch A tick",
		"0 dispatch A exit",
		"0 exit A",
		"0 dispatch B enter",
		"0 enter B",
		"0 transition A->B",
		"0 tick B",
	}, rendered)
	assert.Equal(t, 1, tc.Ticks())
	assert.Equal(t, []string{"A", "B"}, tc.Entered())
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	tc := NewTestController(t, MustBuild(t, CommonGraphs.Flag()))
	tc.Set(Flag, false)
	tc.Start()
	tc.Tick()

	tests := []struct {
		name    string
		matcher Matcher
		pass    bool
		err     error
	}{
		{"visited", StateWasVisited("A"), true, nil},
		{"not visited", StateWasVisited("B"), false, ErrStateNotVisited},
		{"start switch", TransitionWasTaken("", "A"), true, nil},
		{"no switch", TransitionWasTaken("A", "B"), false, ErrTransitionNotTaken},
		{"current", CurrentStateIs("A"), true, nil},
		{"wrong current", CurrentStateIs("B"), false, ErrWrongCurrentState},
		{"performed", ActionWasPerformed(statemachine.ActionPrintMessage, "A", "tick"), true, nil},
		{"not performed", ActionWasPerformed(statemachine.ActionPrintMessage, "B", "tick"), false, ErrActionNotPerformed},
		{"all", All(StateWasVisited("A"), CurrentStateIs("A")), true, nil},
		{"all fails", All(StateWasVisited("A"), CurrentStateIs("B")), false, ErrWrongCurrentState},
		{"any", Any(CurrentStateIs("B"), CurrentStateIs("A")), true, nil},
		{"any fails", Any(CurrentStateIs("B"), StateWasVisited("B")), false, ErrNoMatchersPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := tt.matcher.Match(tc)
			assert.Equal(t, tt.pass, ok)
			assert.NotEmpty(t, tt.matcher.Description())

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStubEvaluator(t *testing.T) {
	t.Parallel()

	eval := NewStubEvaluator().Set(Flag, true)

	value, ok := eval.Evaluate(Flag, nil)
	assert.True(t, ok)
	assert.True(t, value)

	_, ok = eval.Evaluate(statemachine.PredicateDieEvent, nil)
	assert.False(t, ok)

	eval.Unset(Flag)

	_, ok = eval.Evaluate(Flag, nil)
	assert.False(t, ok)
	assert.Equal(t, 3, eval.Queries())
}

func TestRecordingPerformer(t *testing.T) {
	t.Parallel()

	rec := NewRecordingPerformer()
	params := []string{"Attack"}

	rec.PerformAction(statemachine.ActionPlayAnimation, params)
	params[0] = "changed"

	rec.PerformAction(statemachine.ActionPrintMessage, []string{"hello", "world"})

	require.Len(t, rec.Calls(), 2)
	assert.Equal(t, "PlayAnimation(Attack)", rec.Calls()[0].String())
	assert.Equal(t, []string{"hello world"}, rec.Messages())

	rec.Reset()
	assert.Empty(t, rec.Calls())
}
