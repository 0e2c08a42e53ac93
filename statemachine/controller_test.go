package statemachine_test

import (
	"context"
	"testing"

	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/rainbowassets/gamefsm/statemachine"
	smtest "github.com/rainbowassets/gamefsm/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerLifecycle(t *testing.T) {
	t.Parallel()

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.Flag()))
	ctx := context.Background()

	require.ErrorIs(t, tc.Controller.Tick(ctx), statemachine.ErrNotStarted)
	require.ErrorIs(t, tc.Controller.SwitchState(ctx, "B"), statemachine.ErrNotStarted)
	assert.Nil(t, tc.CurrentState())

	tc.Start()
	tc.AssertCurrentState("A")
	tc.AssertMessages("A enter")
	assert.True(t, tc.Started())
	assert.True(t, tc.CurrentState().Active())

	require.ErrorIs(t, tc.Controller.Start(ctx), statemachine.ErrAlreadyStarted)

	tc.Set(smtest.Flag, false).Tick()
	tc.AssertCurrentState("A")
	tc.AssertMessages("A enter", "A tick")

	tc.Set(smtest.Flag, true).Tick()
	tc.AssertCurrentState("B")
	tc.AssertMessages("A enter", "A tick", "A tick", "A exit", "B enter")

	tc.TickN(2)
	tc.AssertMessages("A enter", "A tick", "A tick", "A exit", "B enter", "B tick", "B tick")
	tc.AssertTransitionTaken("A", "B")

	a, err := tc.Graph().GetState("A")
	require.NoError(t, err)
	assert.False(t, a.Active())

	require.NoError(t, tc.Stop(ctx))
	assert.False(t, tc.Started())
	assert.Nil(t, tc.CurrentState())
	assert.Equal(t, "B exit", tc.Performer.Messages()[7])
	require.ErrorIs(t, tc.Stop(ctx), statemachine.ErrNotStarted)

	tc.Start()
	tc.AssertCurrentState("A")
}

func TestControllerSelfTransition(t *testing.T) {
	t.Parallel()

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.SelfLoop()))
	tc.Start()
	tc.Set(smtest.Flag, true).TickN(2)

	tc.AssertMessages(
		"A enter",
		"A tick", "A exit", "A enter",
		"A tick", "A exit", "A enter",
	)
	tc.AssertTransitionTaken("A", "A")
}

func TestControllerAnyState(t *testing.T) {
	t.Parallel()

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.Guard()))
	tc.Start()

	tc.Set(statemachine.PredicateCanPatrol, true).
		Set(statemachine.PredicateAtWaypoint, false).
		Set(statemachine.PredicateDieEvent, false).
		Tick()
	tc.AssertCurrentState("patrol")

	tc.Set(statemachine.PredicateDieEvent, true).Tick()
	tc.AssertCurrentState("dead")

	// Any transitions are checked every tick, so a lasting condition re-enters.
	tc.Tick()
	tc.AssertCurrentState("dead")

	tc.AssertMessages(
		"idle enter",
		"idle tick", "idle exit", "patrol enter",
		"patrol tick", "patrol exit", "dead enter",
		"dead tick", "dead exit", "dead enter",
	)
}

func TestControllerAnyStateAfterSwitch(t *testing.T) {
	t.Parallel()

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.Guard()))
	tc.Start()

	tc.Set(statemachine.PredicateCanPatrol, true).
		Set(statemachine.PredicateAtWaypoint, false).
		Set(statemachine.PredicateDieEvent, true).
		Tick()

	tc.AssertCurrentState("dead")
	tc.AssertMessages(
		"idle enter",
		"idle tick", "idle exit", "patrol enter", "patrol exit", "dead enter",
	)
}

func multiMatchGraph() *statemachine.Builder {
	flag := statemachine.When(statemachine.Either(statemachine.Is(smtest.Flag)))

	return statemachine.NewBuilder("multi").
		State("A", "A", smtest.Lifecycle("A")...).
		State("B", "B", smtest.Lifecycle("B")...).
		State("C", "C", smtest.Lifecycle("C")...).
		Entry("A").
		Transition("A", "B", flag).
		Transition("A", "C", flag)
}

func TestControllerTransitionPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   statemachine.TransitionPolicy
		final    string
		messages []string
	}{
		{
			name:     "first match",
			policy:   statemachine.FirstMatch,
			final:    "B",
			messages: []string{"A enter", "A tick", "A exit", "B enter"},
		},
		{
			name:     "every match",
			policy:   statemachine.EveryMatch,
			final:    "C",
			messages: []string{"A enter", "A tick", "A exit", "B enter", "B exit", "C enter"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tc := smtest.NewTestController(t, smtest.MustBuild(t, multiMatchGraph()),
				statemachine.WithTransitionPolicy(tt.policy))
			assert.Equal(t, tt.policy, tc.TransitionPolicy())

			tc.Start()
			tc.Set(smtest.Flag, true).Tick()

			tc.AssertCurrentState(tt.final)
			tc.AssertMessages(tt.messages...)
		})
	}
}

// TestControllerPolicyFromEnv sets process environment.
//
//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestControllerPolicyFromEnv(t *testing.T) {
	graph := smtest.MustBuild(t, multiMatchGraph())

	t.Setenv("FSM_TRANSITION_POLICY", "EVERY")

	ctrl, err := statemachine.NewController(graph, statemachine.WithLogger(statemachine.NopLogger{}))
	require.NoError(t, err)
	assert.Equal(t, statemachine.EveryMatch, ctrl.TransitionPolicy())

	t.Setenv("FSM_TRANSITION_POLICY", "random")

	_, err = statemachine.NewController(graph, statemachine.WithLogger(statemachine.NopLogger{}))
	require.ErrorIs(t, err, envutil.ErrNotAllowed)

	ctrl, err = statemachine.NewController(graph,
		statemachine.WithLogger(statemachine.NopLogger{}),
		statemachine.WithTransitionPolicy(statemachine.FirstMatch))
	require.NoError(t, err)
	assert.Equal(t, statemachine.FirstMatch, ctrl.TransitionPolicy())
}

func TestControllerRefusesBadSwitch(t *testing.T) {
	t.Parallel()

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.Flag()))
	tc.Start()

	ctx := context.Background()

	err := tc.SwitchState(ctx, "ghost")
	require.ErrorIs(t, err, statemachine.ErrStateNotFound)

	var terr *statemachine.TransitionError

	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "A", terr.From)
	assert.Equal(t, "ghost", terr.To)

	require.ErrorIs(t, tc.SwitchState(ctx, statemachine.EntryStateID), statemachine.ErrInvalidTarget)
	require.ErrorIs(t, tc.SwitchState(ctx, statemachine.AnyStateID), statemachine.ErrInvalidTarget)

	tc.AssertCurrentState("A")
	tc.AssertMessages("A enter")

	require.NoError(t, tc.SwitchState(ctx, "B"))
	tc.AssertCurrentState("B")
}

func TestControllerCloneIsolation(t *testing.T) {
	t.Parallel()

	template := smtest.MustBuild(t, smtest.CommonGraphs.Flag())

	first := smtest.NewTestController(t, template, statemachine.WithAgentID("first"))
	second := smtest.NewTestController(t, template, statemachine.WithAgentID("second"))

	assert.NotSame(t, first.Graph(), second.Graph())
	assert.NotSame(t, template, first.Graph())
	assert.Equal(t, "first", first.AgentID())

	first.Start()
	second.Start()

	first.Set(smtest.Flag, true).Tick()
	second.Set(smtest.Flag, false).Tick()

	first.AssertCurrentState("B")
	second.AssertCurrentState("A")

	for _, state := range template.GetStates() {
		assert.False(t, state.Active(), "template state %s must stay inactive", state.ID())
	}

	secondA, err := second.Graph().GetState("A")
	require.NoError(t, err)
	assert.True(t, secondA.Active())

	firstA, err := first.Graph().GetState("A")
	require.NoError(t, err)
	assert.False(t, firstA.Active())
}

func TestControllerVacuousTruth(t *testing.T) {
	t.Parallel()

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.Flag()))
	tc.Start()

	// Nobody answers Flag, so the transition passes.
	tc.Tick()
	tc.AssertCurrentState("B")
	assert.Positive(t, tc.Evaluator.Queries())
}

func TestNewControllerRejectsInvalidGraph(t *testing.T) {
	t.Parallel()

	_, err := statemachine.NewController(statemachine.NewGraph("broken"),
		statemachine.WithLogger(statemachine.NopLogger{}))
	require.ErrorIs(t, err, statemachine.ErrMissingEntryState)
}

// damageSensor raises DamageTakenEvent through a one-shot event.
type damageSensor struct {
	hit     *statemachine.Event
	chooser statemachine.Chooser
}

func newDamageSensor() *damageSensor {
	return &damageSensor{hit: statemachine.NewEvent("damage")}
}

func (d *damageSensor) Events() []*statemachine.Event {
	return []*statemachine.Event{d.hit}
}

func (d *damageSensor) Evaluate(kind statemachine.PredicateKind, _ []string) (bool, bool) {
	if kind != statemachine.PredicateDamageTakenEvent {
		return false, false
	}

	return d.hit.WasRaised(), true
}

func (d *damageSensor) UseChooser(chooser statemachine.Chooser) {
	d.chooser = chooser
}

func TestControllerEvents(t *testing.T) {
	t.Parallel()

	damaged := statemachine.Is(statemachine.PredicateDamageTakenEvent)

	graph := smtest.MustBuild(t, statemachine.NewBuilder("flinch").
		State("calm", "Calm", smtest.Lifecycle("calm")...).
		State("hurt", "Hurt", smtest.Lifecycle("hurt")...).
		Entry("calm").
		Transition("calm", "hurt", statemachine.When(statemachine.Either(damaged))).
		Transition("hurt", "calm", statemachine.When(statemachine.Either(damaged.Not()))))

	sensor := newDamageSensor()
	tc := smtest.NewTestController(t, graph,
		statemachine.WithCollaborators(sensor),
		statemachine.WithChooser(statemachine.FirstChooser{}))

	assert.Equal(t, statemachine.FirstChooser{}, sensor.chooser)
	assert.Len(t, tc.Events(), 1)
	assert.Len(t, tc.PredicateEvaluators(), 2)

	tc.Start()
	tc.Tick()
	tc.AssertCurrentState("calm")

	sensor.hit.Raise()
	assert.False(t, sensor.hit.WasRaised())

	tc.Tick()
	tc.AssertCurrentState("hurt")
	assert.False(t, sensor.hit.WasRaised(), "event is cleared at the end of the tick")

	tc.Tick()
	tc.AssertCurrentState("calm")
}

func TestControllerHooks(t *testing.T) {
	t.Parallel()

	var kinds []statemachine.HookKind

	tc := smtest.NewTestController(t, smtest.MustBuild(t, smtest.CommonGraphs.Flag()),
		statemachine.WithAgentID("guard-1"),
		statemachine.WithHook(func(_ context.Context, event statemachine.HookEvent) {
			assert.Equal(t, "guard-1", event.AgentID)

			kinds = append(kinds, event.Kind)
		}))

	tc.Start()
	tc.Set(smtest.Flag, false).Tick()

	assert.Equal(t, []statemachine.HookKind{
		statemachine.HookDispatch,
		statemachine.HookEnter,
		statemachine.HookTransition,
		statemachine.HookDispatch,
		statemachine.HookTick,
	}, kinds)
	assert.Equal(t, "transition", statemachine.HookTransition.String())
}
