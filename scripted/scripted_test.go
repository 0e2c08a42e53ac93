package scripted

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterScript = `
perform = func(action, params) {
	if is_undefined(state.count) {
		state.count = 0
	}

	state.count = state.count + 1
	state.last = action

	if len(params) > 0 {
		state.param = params[0]
	}
}

evaluate = func(predicate, params) {
	if predicate == "CanPatrol" {
		return !is_undefined(state.count) && state.count >= 2
	}

	if predicate == "AtWaypoint" {
		return true
	}
}
`

func TestCollaborator(t *testing.T) {
	t.Parallel()

	c, err := Compile("counter", counterScript)
	require.NoError(t, err)
	assert.Equal(t, "counter", c.Name())

	result, ok := c.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.True(t, ok)
	assert.False(t, result)

	result, ok = c.Evaluate(statemachine.PredicateAtWaypoint, nil)
	assert.True(t, ok)
	assert.True(t, result)

	_, ok = c.Evaluate(statemachine.PredicateDieEvent, nil)
	assert.False(t, ok, "undefined means not handled")

	c.PerformAction(statemachine.ActionPlayAnimation, []string{"Idle"})
	c.PerformAction(statemachine.ActionFreeLook, nil)

	state := c.State()
	assert.Equal(t, int64(2), state["count"])
	assert.Equal(t, "FreeLook", state["last"])
	assert.Equal(t, "Idle", state["param"])

	result, ok = c.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.True(t, ok)
	assert.True(t, result)
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()

	c, err := Compile("counter", counterScript)
	require.NoError(t, err)

	c.PerformAction(statemachine.ActionFreeLook, nil)

	clone, err := c.Clone()
	require.NoError(t, err)
	clone.PerformAction(statemachine.ActionFreeLook, nil)
	clone.PerformAction(statemachine.ActionFreeLook, nil)

	assert.Equal(t, int64(1), c.State()["count"])
	assert.Equal(t, int64(2), clone.State()["count"])
}

type lastChooser struct{}

func (lastChooser) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}

	return options[len(options)-1]
}

func TestChoose(t *testing.T) {
	t.Parallel()

	c, err := Compile("chooser", `perform = func(action, params) { state.picked = choose(params) }`)
	require.NoError(t, err)

	c.PerformAction(statemachine.ActionPlayAnimation, []string{"Wave", "Shrug", "Yawn"})
	assert.Equal(t, "Wave", c.State()["picked"])

	c.UseChooser(lastChooser{})
	c.PerformAction(statemachine.ActionPlayAnimation, []string{"Wave", "Shrug", "Yawn"})
	assert.Equal(t, "Yawn", c.State()["picked"])

	clone, err := c.Clone()
	require.NoError(t, err)
	clone.PerformAction(statemachine.ActionPlayAnimation, []string{"Wave", "Shrug"})
	assert.Equal(t, "Shrug", clone.State()["picked"])
}

func TestPartialScripts(t *testing.T) {
	t.Parallel()

	performOnly, err := Compile("perform-only", `perform = func(action, params) { log("performing", action) }`)
	require.NoError(t, err)

	performOnly.PerformAction(statemachine.ActionFreeLook, nil)

	_, ok := performOnly.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.False(t, ok)

	empty, err := Compile("empty", "")
	require.NoError(t, err)

	empty.PerformAction(statemachine.ActionFreeLook, nil)

	_, ok = empty.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.False(t, ok)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	_, err := Compile("syntax", `perform = func(action, params) {`)
	require.ErrorIs(t, err, ErrScriptFailed)

	_, err = Compile("imports-os", `os := import("os")`)
	require.ErrorIs(t, err, ErrScriptFailed)

	broken, err := Compile("broken", `evaluate = func(predicate, params) { return params[5] + 1 }`)
	require.NoError(t, err)

	result, ok := broken.Evaluate(statemachine.PredicateCanPatrol, []string{"x"})
	assert.False(t, ok)
	assert.False(t, result)

	_, err = Load(filepath.Join(t.TempDir(), "missing.tengo"))
	require.Error(t, err)
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	c, err := Compile("spin", `perform = func(action, params) { for {} }`, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		defer close(done)

		c.PerformAction(statemachine.ActionFreeLook, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("script call was not aborted")
	}
}

func TestLoadDrivesController(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "patrol.tengo")
	require.NoError(t, os.WriteFile(path, []byte(counterScript), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "patrol", c.Name())

	graph, err := statemachine.NewBuilder("scripted").
		State("idle", "Idle",
			statemachine.OnEnter(statemachine.Act(statemachine.ActionPlayAnimation, "Idle")),
			statemachine.OnTick(statemachine.Act(statemachine.ActionFreeLook))).
		State("patrol", "Patrol").
		Entry("idle").
		Transition("idle", "patrol", statemachine.When(statemachine.Either(statemachine.Is(statemachine.PredicateCanPatrol)))).
		Build()
	require.NoError(t, err)

	ctrl, err := statemachine.NewController(graph,
		statemachine.WithLogger(statemachine.NopLogger{}),
		statemachine.WithTransitionPolicy(statemachine.FirstMatch),
		statemachine.WithCollaborators(c))
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx))
	assert.Equal(t, "idle", ctrl.CurrentState().ID())

	require.NoError(t, ctrl.Tick(ctx))
	assert.Equal(t, "patrol", ctrl.CurrentState().ID())
	assert.Equal(t, int64(2), c.State()["count"])
}
