package demo

import "github.com/rainbowassets/gamefsm/statemachine"

// Mover defaults.
const (
	DefaultMaxSpeed             = 6.0
	DefaultDestinationTolerance = 1.0
)

// Mover issues movement commands with a speed given as a fraction of its
// maximum speed. It performs CancelMovement.
type Mover struct {
	nav       Navigator
	maxSpeed  float64
	tolerance float64
}

var _ statemachine.ActionPerformer = (*Mover)(nil)

// NewMover creates a Mover with the default speed and tolerance.
func NewMover(nav Navigator) *Mover {
	return &Mover{
		nav:       nav,
		maxSpeed:  DefaultMaxSpeed,
		tolerance: DefaultDestinationTolerance,
	}
}

// WithMaxSpeed returns m with a different top speed.
func (m *Mover) WithMaxSpeed(speed float64) *Mover {
	m.maxSpeed = speed

	return m
}

// MoveTo heads for destination at speedFraction (clamped to [0,1]) of the
// maximum speed. It does nothing while navigation is disabled.
func (m *Mover) MoveTo(destination Vec3, speedFraction float64) {
	if !m.nav.Enabled() {
		return
	}

	m.nav.MoveTo(destination, m.maxSpeed*clamp01(speedFraction))
}

// AtDestination reports whether the agent is within tolerance of
// destination.
func (m *Mover) AtDestination(destination Vec3) bool {
	return m.nav.Position().Distance(destination) < m.tolerance
}

// Position is the agent's current position.
func (m *Mover) Position() Vec3 {
	return m.nav.Position()
}

func (m *Mover) PerformAction(kind statemachine.ActionKind, _ []string) {
	if kind == statemachine.ActionCancelMovement {
		m.nav.Stop()
	}
}
