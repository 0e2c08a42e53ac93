package demo

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/rainbowassets/gamefsm/statemachine/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stepDt = 500 * time.Millisecond

func TestSampleGraphs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"guard", "player"}, Loader().ListAvailable())

	rules := append(validator.DefaultRules(), validator.NewVocabularyRule(HandledPredicates(), HandledActions()))

	for _, name := range []string{"guard", "player"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			graph, err := LoadGraph(name)
			require.NoError(t, err)
			assert.Equal(t, name, graph.Name)

			result := validator.ValidateWithRules(statemachine.NewConfig(graph), rules)
			assert.True(t, result.Valid, result.String())
			assert.Empty(t, result.Warnings, result.String())
		})
	}

	_, err := LoadGraph("missing")
	require.Error(t, err)
}

type agent struct {
	ctrl          *statemachine.Controller
	collaborators []any
}

func newAgent(t *testing.T, graphName string, collaborators []any) *agent {
	t.Helper()

	graph, err := LoadGraph(graphName)
	require.NoError(t, err)

	ctrl, err := statemachine.NewController(graph,
		statemachine.WithAgentID(graphName),
		statemachine.WithLogger(statemachine.NopLogger{}),
		statemachine.WithTransitionPolicy(statemachine.FirstMatch),
		statemachine.WithChooser(statemachine.FirstChooser{}),
		statemachine.WithCollaborators(collaborators...))
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(context.Background()))

	return &agent{ctrl: ctrl, collaborators: collaborators}
}

func (a *agent) step(t *testing.T) {
	t.Helper()

	for _, collaborator := range a.collaborators {
		if updater, ok := collaborator.(statemachine.Updater); ok {
			updater.Update(stepDt)
		}
	}

	require.NoError(t, a.ctrl.Tick(context.Background()))

	for _, collaborator := range a.collaborators {
		if late, ok := collaborator.(statemachine.LateUpdater); ok {
			late.LateUpdate()
		}
	}
}

func (a *agent) state() string {
	return a.ctrl.CurrentState().ID()
}

// stepUntil steps at most limit times and fails unless the agent reaches id.
func (a *agent) stepUntil(t *testing.T, id string, limit int) {
	t.Helper()

	for range limit {
		if a.state() == id {
			return
		}

		a.step(t)
	}

	require.Equal(t, id, a.state())
}

func TestGuardScenario(t *testing.T) {
	t.Parallel()

	player := NewPlayer(Vec3{X: 100}, slogt.New(t))
	guard := NewGuard([]Vec3{{}, {X: 10}}, player, slogt.New(t))
	guard.Patroller.WithDwell(time.Second)

	a := newAgent(t, "guard", guard.Collaborators())
	assert.Equal(t, "idle", a.state())
	assert.Equal(t, "Idle", guard.Animator.Clip())

	a.step(t)
	assert.Equal(t, "patrol", a.state(), "a fresh guard patrols at once")
	assert.Equal(t, "Walk", guard.Animator.Clip())

	a.step(t)
	assert.Equal(t, "idle", a.state(), "already standing on the first waypoint")

	a.step(t)
	assert.Equal(t, "idle", a.state(), "dwelling")

	a.step(t)
	assert.Equal(t, "patrol", a.state())

	a.step(t)
	a.stepUntil(t, "idle", 20)
	assert.Less(t, guard.Nav.Position().Distance(Vec3{X: 10}), DefaultDestinationTolerance)

	player.Nav.Teleport(Vec3{X: 13})
	a.step(t)
	assert.Equal(t, "chase", a.state())
	assert.Equal(t, "Run", guard.Animator.Clip())

	a.stepUntil(t, "attack", 5)
	assert.Equal(t, "Attack", guard.Animator.Clip())
	assert.False(t, guard.Nav.Moving())

	a.stepUntil(t, "strike", 5)
	assert.InDelta(t, 0.5, player.Health.Fraction(), 1e-9, "the swing lands at the end of the attack clip")

	a.stepUntil(t, "chase", 2)

	guard.Health.TakeDamage(30)
	a.step(t)
	assert.Equal(t, "hurt", a.state())
	assert.Equal(t, "Hit", guard.Animator.Clip())

	guard.Health.TakeDamage(100)
	a.step(t)
	assert.Equal(t, "dead", a.state())
	assert.Equal(t, "Death", guard.Animator.Clip())
	assert.False(t, guard.Nav.Enabled())

	for range 3 {
		a.step(t)
	}

	assert.Equal(t, "dead", a.state(), "events are one-shot")
}

func TestGuardLosesSight(t *testing.T) {
	t.Parallel()

	player := NewPlayer(Vec3{X: 5}, slogt.New(t))
	guard := NewGuard([]Vec3{{}, {X: -10}}, player, slogt.New(t))
	guard.Fighter.WithSuspicion(time.Second)

	a := newAgent(t, "guard", guard.Collaborators())

	a.step(t)
	assert.Equal(t, "chase", a.state())

	player.Nav.Teleport(Vec3{X: 50})
	a.step(t)
	assert.Equal(t, "suspicious", a.state())
	assert.Equal(t, "LookAround", guard.Animator.Clip())

	a.stepUntil(t, "patrol", 5)
}

func TestPlayerScenario(t *testing.T) {
	t.Parallel()

	player := NewPlayer(Vec3{}, slogt.New(t))
	player.Input.SetAxis(0, 1)

	a := newAgent(t, "player", player.Collaborators())
	assert.Equal(t, "explore", a.state())
	assert.Equal(t, "Locomotion", player.Animator.Clip())

	for range 3 {
		a.step(t)
	}

	assert.Greater(t, player.Position().Z, 0.0)
	assert.Zero(t, player.Position().X)

	player.Input.Press("Attack")
	a.step(t)
	assert.Equal(t, "attack", a.state())
	assert.Equal(t, "Attack", player.Animator.Clip())

	a.step(t)
	assert.Equal(t, "explore", a.state())

	player.Health.TakeDamage(DefaultMaxHealth)
	a.step(t)
	assert.Equal(t, "dead", a.state())
	assert.True(t, player.IsDead())
}
