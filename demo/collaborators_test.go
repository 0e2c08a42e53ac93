package demo

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moveCall struct {
	destination Vec3
	speed       float64
}

// recordingNav is a Navigator that records commands and never moves.
type recordingNav struct {
	position Vec3
	enabled  bool
	moves    []moveCall
	stops    int
}

func newRecordingNav() *recordingNav {
	return &recordingNav{enabled: true}
}

func (n *recordingNav) MoveTo(destination Vec3, speed float64) {
	n.moves = append(n.moves, moveCall{destination, speed})
}

func (n *recordingNav) Stop()                   { n.stops++ }
func (n *recordingNav) Position() Vec3          { return n.position }
func (n *recordingNav) SetEnabled(enabled bool) { n.enabled = enabled }
func (n *recordingNav) Enabled() bool           { return n.enabled }

type staticTarget struct {
	position Vec3
	dead     bool
}

func (t staticTarget) Position() Vec3 { return t.position }
func (t staticTarget) IsDead() bool   { return t.dead }

func TestHealth(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	health := NewHealth(0, nav)
	assert.InDelta(t, 1.0, health.Fraction(), 1e-9)

	health.TakeDamage(30)
	assert.InDelta(t, 0.7, health.Fraction(), 1e-9)
	assert.False(t, health.IsDead())

	result, ok := health.Evaluate(statemachine.PredicateDamageTakenEvent, nil)
	assert.True(t, ok)
	assert.False(t, result, "not visible before the tick latches it")

	require.True(t, health.OnDamageTaken().Latch())

	result, _ = health.Evaluate(statemachine.PredicateDamageTakenEvent, nil)
	assert.True(t, result)

	result, _ = health.Evaluate(statemachine.PredicateDieEvent, nil)
	assert.False(t, result)

	health.TakeDamage(-5)
	health.TakeDamage(0)
	assert.InDelta(t, 0.7, health.Fraction(), 1e-9)

	health.TakeDamage(500)
	assert.True(t, health.IsDead())
	assert.Zero(t, health.Fraction())
	assert.False(t, nav.enabled, "dying disables navigation")
	assert.False(t, health.OnDamageTaken().Latch(), "the killing hit raises only DieEvent")

	require.True(t, health.OnDie().Latch())

	result, _ = health.Evaluate(statemachine.PredicateDieEvent, nil)
	assert.True(t, result)

	health.OnDie().Clear()
	health.TakeDamage(10)
	assert.False(t, health.OnDie().Latch(), "a dead agent cannot die again")

	_, ok = health.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.False(t, ok)
	assert.Len(t, health.Events(), 2)
}

func TestWeapon(t *testing.T) {
	t.Parallel()

	target := NewHealth(DefaultMaxHealth, nil)
	weapon := DefaultWeapon()

	weapon.Hit(target)
	assert.InDelta(t, 0.5, target.Fraction(), 1e-9)

	weapon.Hit(target)
	assert.True(t, target.IsDead())
}

func TestMover(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	mover := NewMover(nav)

	mover.MoveTo(Vec3{X: 1}, 0.5)
	mover.MoveTo(Vec3{X: 2}, 3)
	mover.MoveTo(Vec3{X: 3}, -1)

	assert.Equal(t, []moveCall{
		{Vec3{X: 1}, 3},
		{Vec3{X: 2}, 6},
		{Vec3{X: 3}, 0},
	}, nav.moves)

	nav.enabled = false
	mover.MoveTo(Vec3{X: 4}, 1)
	assert.Len(t, nav.moves, 3)

	assert.True(t, mover.AtDestination(Vec3{X: 0.5}))
	assert.False(t, mover.AtDestination(Vec3{X: 1}))

	mover.PerformAction(statemachine.ActionCancelMovement, nil)
	mover.PerformAction(statemachine.ActionFreeLook, nil)
	assert.Equal(t, 1, nav.stops)

	assert.Equal(t, 12.0, NewMover(nav).WithMaxSpeed(12).maxSpeed)
}

func TestPatroller(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	patroller := NewPatroller(NewMover(nav), []Vec3{{}, {X: 10}}).WithDwell(time.Second)

	canPatrol, ok := patroller.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.True(t, ok)
	assert.True(t, canPatrol, "a fresh patroller does not wait")

	patroller.PerformAction(statemachine.ActionMoveToWaypoint, nil)
	require.Len(t, nav.moves, 1)
	assert.Equal(t, Vec3{}, nav.moves[0].destination)
	assert.InDelta(t, DefaultMaxSpeed*DefaultPatrolSpeedFraction, nav.moves[0].speed, 1e-9)

	atWaypoint, _ := patroller.Evaluate(statemachine.PredicateAtWaypoint, nil)
	assert.True(t, atWaypoint)

	waypoint, _ := patroller.Waypoint()
	assert.Equal(t, Vec3{X: 10}, waypoint)

	canPatrol, _ = patroller.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.False(t, canPatrol, "arriving restarts the dwell timer")

	patroller.Update(600 * time.Millisecond)
	canPatrol, _ = patroller.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.False(t, canPatrol)

	patroller.Update(400 * time.Millisecond)
	canPatrol, _ = patroller.Evaluate(statemachine.PredicateCanPatrol, nil)
	assert.True(t, canPatrol)

	atWaypoint, _ = patroller.Evaluate(statemachine.PredicateAtWaypoint, nil)
	assert.False(t, atWaypoint)

	nav.position = Vec3{X: 9.5}
	atWaypoint, _ = patroller.Evaluate(statemachine.PredicateAtWaypoint, nil)
	assert.True(t, atWaypoint)

	waypoint, _ = patroller.Waypoint()
	assert.Equal(t, Vec3{}, waypoint, "the path is closed")

	_, ok = patroller.Evaluate(statemachine.PredicateDieEvent, nil)
	assert.False(t, ok)
}

func TestPatrollerEmptyPath(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	patroller := NewPatroller(NewMover(nav), nil)

	patroller.PerformAction(statemachine.ActionMoveToWaypoint, nil)
	assert.Empty(t, nav.moves)

	atWaypoint, ok := patroller.Evaluate(statemachine.PredicateAtWaypoint, nil)
	assert.True(t, ok)
	assert.False(t, atWaypoint)
}

func TestFighter(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	target := staticTarget{position: Vec3{X: 5}}
	fighter := NewFighter(NewMover(nav), target).WithSuspicion(time.Second)

	inChase, ok := fighter.Evaluate(statemachine.PredicatePlayerInChaseRange, nil)
	assert.True(t, ok)
	assert.True(t, inChase)

	inAttack, _ := fighter.Evaluate(statemachine.PredicatePlayerInAttackRange, nil)
	assert.False(t, inAttack)

	fighter.PerformAction(statemachine.ActionChasePlayer, nil)
	assert.Equal(t, []moveCall{{Vec3{X: 5}, DefaultMaxSpeed}}, nav.moves)

	fighter.Update(999 * time.Millisecond)
	finished, _ := fighter.Evaluate(statemachine.PredicateSuspicionFinished, nil)
	assert.False(t, finished)

	fighter.Update(time.Millisecond)
	finished, _ = fighter.Evaluate(statemachine.PredicateSuspicionFinished, nil)
	assert.True(t, finished, "suspicion ends once the full time has passed")

	fighter.Evaluate(statemachine.PredicatePlayerInChaseRange, nil)
	finished, _ = fighter.Evaluate(statemachine.PredicateSuspicionFinished, nil)
	assert.False(t, finished, "seeing the target restarts suspicion")

	fighter.SetTarget(staticTarget{position: Vec3{X: 0.5}, dead: true})
	inAttack, _ = fighter.Evaluate(statemachine.PredicatePlayerInAttackRange, nil)
	assert.False(t, inAttack, "dead targets are ignored")

	fighter.SetTarget(staticTarget{position: Vec3{X: 0.5}})
	inAttack, _ = fighter.Evaluate(statemachine.PredicatePlayerInAttackRange, nil)
	assert.True(t, inAttack)

	fighter.SetTarget(staticTarget{position: Vec3{X: DefaultChaseRange}})
	inChase, _ = fighter.Evaluate(statemachine.PredicatePlayerInChaseRange, nil)
	assert.True(t, inChase, "the chase range is inclusive")

	fighter.SetTarget(staticTarget{position: Vec3{X: DefaultAttackRange}})
	inAttack, _ = fighter.Evaluate(statemachine.PredicatePlayerInAttackRange, nil)
	assert.True(t, inAttack, "the attack range is inclusive")

	fighter.SetTarget(staticTarget{position: Vec3{X: DefaultChaseRange + 0.01}})
	inChase, _ = fighter.Evaluate(statemachine.PredicatePlayerInChaseRange, nil)
	assert.False(t, inChase)

	fighter.SetTarget(nil)
	fighter.PerformAction(statemachine.ActionChasePlayer, nil)
	assert.Len(t, nav.moves, 1)

	inChase, _ = fighter.Evaluate(statemachine.PredicatePlayerInChaseRange, nil)
	assert.False(t, inChase)
}

// dummy is a Target that records the damage it takes.
type dummy struct {
	staticTarget
	taken []float64
}

func (d *dummy) TakeDamage(damage float64) {
	d.taken = append(d.taken, damage)
}

func TestFighterHit(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	target := &dummy{staticTarget: staticTarget{position: Vec3{X: DefaultAttackRange}}}
	fighter := NewFighter(NewMover(nav), target).WithWeapon(Weapon{Damage: 20})

	fighter.PerformAction(ActionHit, nil)
	assert.Empty(t, target.taken, "damage waits for LateUpdate")

	fighter.LateUpdate()
	assert.Equal(t, []float64{20}, target.taken)

	fighter.LateUpdate()
	assert.Len(t, target.taken, 1, "every swing lands once")

	target.position = Vec3{X: DefaultAttackRange + 0.5}
	fighter.PerformAction(ActionHit, nil)
	fighter.LateUpdate()
	assert.Len(t, target.taken, 1, "out of reach")

	target.position = Vec3{}
	target.dead = true
	fighter.PerformAction(ActionHit, nil)
	fighter.LateUpdate()
	assert.Len(t, target.taken, 1, "dead targets are left alone")

	fighter.SetTarget(staticTarget{})
	fighter.PerformAction(ActionHit, nil)
	fighter.LateUpdate()
	assert.Len(t, target.taken, 1, "targets without health cannot be hit")

	player := NewPlayer(Vec3{X: 0.5}, slog.New(slog.DiscardHandler))
	fighter.SetTarget(player)
	fighter.PerformAction(ActionHit, nil)
	fighter.LateUpdate()
	assert.InDelta(t, 0.8, player.Health.Fraction(), 1e-9)
	assert.True(t, player.Health.OnDamageTaken().Latch())
}

func TestAnimationPlayer(t *testing.T) {
	t.Parallel()

	anim := NewSimAnimator(map[string]time.Duration{"Wave": 200 * time.Millisecond})
	player := NewAnimationPlayer(anim)

	player.PerformAction(statemachine.ActionPlayAnimation, []string{"Wave", "Shrug"})
	assert.Equal(t, "Wave", anim.Clip())

	player.PerformAction(statemachine.ActionPlayAnimation, nil)
	player.PerformAction(statemachine.ActionFreeLook, []string{"Shrug"})
	assert.Equal(t, []string{"Wave"}, anim.Played())

	over, ok := player.Evaluate(statemachine.PredicateAnimationOver, []string{"Wave"})
	assert.True(t, ok)
	assert.False(t, over)

	anim.Update(200 * time.Millisecond)
	over, _ = player.Evaluate(statemachine.PredicateAnimationOver, []string{"Wave"})
	assert.True(t, over)

	over, ok = player.Evaluate(statemachine.PredicateAnimationOver, nil)
	assert.True(t, ok)
	assert.False(t, over)

	_, ok = player.Evaluate(statemachine.PredicateAtWaypoint, nil)
	assert.False(t, ok)

	player.UseChooser(statemachine.NewSeededChooser(7))

	for range 20 {
		player.PerformAction(statemachine.ActionPlayAnimation, []string{"Wave", "Shrug"})
	}

	assert.Subset(t, []string{"Wave", "Shrug"}, anim.Played())
	assert.Contains(t, anim.Played()[1:], "Shrug")
}

func TestInputReader(t *testing.T) {
	t.Parallel()

	input := NewSimInput()
	reader := NewInputReader(input)

	input.Press("Attack")

	pressed, ok := reader.Evaluate(statemachine.PredicateInputActionPressed, []string{"Attack"})
	assert.True(t, ok)
	assert.False(t, pressed, "presses show up after the next update")

	input.Update(time.Millisecond)

	pressed, _ = reader.Evaluate(statemachine.PredicateInputActionPressed, []string{"Attack"})
	assert.True(t, pressed)

	pressed, _ = reader.Evaluate(statemachine.PredicateInputActionPressed, []string{"Jump"})
	assert.False(t, pressed)

	pressed, ok = reader.Evaluate(statemachine.PredicateInputActionPressed, nil)
	assert.True(t, ok)
	assert.False(t, pressed)

	input.Update(time.Millisecond)

	pressed, _ = reader.Evaluate(statemachine.PredicateInputActionPressed, []string{"Attack"})
	assert.False(t, pressed)

	_, ok = reader.Evaluate(statemachine.PredicateDieEvent, nil)
	assert.False(t, ok)
}

func TestFreeLooker(t *testing.T) {
	t.Parallel()

	nav := newRecordingNav()
	nav.position = Vec3{X: 1, Y: 2, Z: 3}
	input := NewSimInput()
	camera := FixedCamera{RightDir: Vec3{X: 1}, ForwardDir: Vec3{Y: 0.5, Z: 1}}
	looker := NewFreeLooker(NewMover(nav), input, camera)

	looker.PerformAction(statemachine.ActionFreeLook, nil)
	assert.Empty(t, nav.moves, "no stick input, no movement")

	input.SetAxis(1, 1)
	looker.PerformAction(statemachine.ActionFreeLook, nil)
	looker.PerformAction(statemachine.ActionChasePlayer, nil)

	require.Len(t, nav.moves, 1)
	assert.Equal(t, moveCall{Vec3{X: 2, Y: 2, Z: 4}, DefaultMaxSpeed}, nav.moves[0])
}

func TestMessagePrinter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printer := NewMessagePrinter(slog.New(slog.NewTextHandler(&buf, nil)))

	printer.PerformAction(statemachine.ActionPrintMessage, []string{"guard", "died"})
	printer.PerformAction(statemachine.ActionFreeLook, []string{"ignored"})

	assert.Contains(t, buf.String(), `msg="guard died"`)
	assert.NotContains(t, buf.String(), "ignored")
	assert.NotNil(t, NewMessagePrinter(nil).log)
}

func TestSimNavigator(t *testing.T) {
	t.Parallel()

	nav := NewSimNavigator(Vec3{})

	nav.MoveTo(Vec3{X: 10}, 4)
	assert.True(t, nav.Moving())

	nav.Update(time.Second)
	assert.Equal(t, Vec3{X: 4}, nav.Position())

	nav.Update(2 * time.Second)
	assert.Equal(t, Vec3{X: 10}, nav.Position())
	assert.False(t, nav.Moving())

	nav.MoveTo(Vec3{}, 4)
	nav.Stop()
	nav.Update(time.Second)
	assert.Equal(t, Vec3{X: 10}, nav.Position())

	nav.SetEnabled(false)
	nav.MoveTo(Vec3{}, 4)
	assert.False(t, nav.Moving())

	nav.Teleport(Vec3{Z: 1})
	assert.Equal(t, Vec3{Z: 1}, nav.Position())
}
