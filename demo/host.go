// Package demo holds the gameplay collaborators of the sample guard and
// player agents. They talk to the host engine only through the small
// interfaces below, so the same agents run inside an engine or in the
// headless simulation types of this package.
package demo

import "time"

// Navigator moves an agent over the navigation surface.
type Navigator interface {
	MoveTo(destination Vec3, speed float64)
	Stop()
	Position() Vec3
	SetEnabled(enabled bool)
	Enabled() bool
}

// Animator plays animation clips. TagFinished reports whether the clip
// tagged tag has played to its end.
type Animator interface {
	CrossFade(clip string, fade time.Duration)
	TagFinished(tag string) bool
}

// InputSource reads player input. Axis is the move stick.
type InputSource interface {
	WasPressed(action string) bool
	Axis() (x, y float64)
}

// Camera provides the view basis used to turn stick input into a world
// direction.
type Camera interface {
	Right() Vec3
	Forward() Vec3
}

// Target is something a Fighter can chase.
type Target interface {
	Position() Vec3
	IsDead() bool
}

// Damageable takes weapon hits.
type Damageable interface {
	TakeDamage(damage float64)
}
