package demo

import (
	"log/slog"
	"time"
)

// Guard bundles the collaborators of a simulated guard.
type Guard struct {
	Nav       *SimNavigator
	Animator  *SimAnimator
	Health    *Health
	Mover     *Mover
	Patroller *Patroller
	Fighter   *Fighter
	Animation *AnimationPlayer
	Printer   *MessagePrinter
}

// NewGuard places a guard at the first waypoint of path. target may be nil.
func NewGuard(path []Vec3, target Target, log *slog.Logger) *Guard {
	var start Vec3
	if len(path) > 0 {
		start = path[0]
	}

	nav := NewSimNavigator(start)
	anim := NewSimAnimator(nil)
	mover := NewMover(nav)

	return &Guard{
		Nav:       nav,
		Animator:  anim,
		Health:    NewHealth(DefaultMaxHealth, nav),
		Mover:     mover,
		Patroller: NewPatroller(mover, path),
		Fighter:   NewFighter(mover, target),
		Animation: NewAnimationPlayer(anim),
		Printer:   NewMessagePrinter(log),
	}
}

// Collaborators lists the guard's parts in update order.
func (g *Guard) Collaborators() []any {
	return []any{g.Nav, g.Animator, g.Health, g.Mover, g.Patroller, g.Fighter, g.Animation, g.Printer}
}

// Player bundles the collaborators of a simulated player.
type Player struct {
	Nav       *SimNavigator
	Animator  *SimAnimator
	Input     *SimInput
	Health    *Health
	Mover     *Mover
	Looker    *FreeLooker
	Reader    *InputReader
	Animation *AnimationPlayer
	Printer   *MessagePrinter
}

// NewPlayer places a player at position with the default camera.
func NewPlayer(position Vec3, log *slog.Logger) *Player {
	nav := NewSimNavigator(position)
	anim := NewSimAnimator(map[string]time.Duration{"Attack": 500 * time.Millisecond, "AttackAlt": 500 * time.Millisecond})
	input := NewSimInput()
	mover := NewMover(nav)

	return &Player{
		Nav:       nav,
		Animator:  anim,
		Input:     input,
		Health:    NewHealth(DefaultMaxHealth, nav),
		Mover:     mover,
		Looker:    NewFreeLooker(mover, input, DefaultCamera()),
		Reader:    NewInputReader(input),
		Animation: NewAnimationPlayer(anim),
		Printer:   NewMessagePrinter(log),
	}
}

// Position makes Player a Target.
func (p *Player) Position() Vec3 {
	return p.Nav.Position()
}

func (p *Player) IsDead() bool {
	return p.Health.IsDead()
}

// TakeDamage makes Player Damageable.
func (p *Player) TakeDamage(damage float64) {
	p.Health.TakeDamage(damage)
}

// Collaborators lists the player's parts in update order.
func (p *Player) Collaborators() []any {
	return []any{p.Nav, p.Animator, p.Input, p.Health, p.Mover, p.Looker, p.Reader, p.Animation, p.Printer}
}
