package demo

import (
	"sync"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// DefaultMaxHealth is the health of a fresh agent.
const DefaultMaxHealth = 100

// Health tracks hit points and raises DamageTakenEvent or DieEvent on every
// hit. Dying disables navigation.
type Health struct {
	mu      sync.Mutex
	max     float64
	current float64
	nav     Navigator

	damaged *statemachine.Event
	died    *statemachine.Event
}

var (
	_ statemachine.PredicateEvaluator = (*Health)(nil)
	_ statemachine.EventSource        = (*Health)(nil)
)

// NewHealth creates a Health at max. nav may be nil.
func NewHealth(maxHealth float64, nav Navigator) *Health {
	if maxHealth <= 0 {
		maxHealth = DefaultMaxHealth
	}

	return &Health{
		max:     maxHealth,
		current: maxHealth,
		nav:     nav,
		damaged: statemachine.NewEvent("DamageTaken"),
		died:    statemachine.NewEvent("Die"),
	}
}

// TakeDamage removes hit points, never going below zero. Hits on a dead
// agent are ignored.
func (h *Health) TakeDamage(damage float64) {
	h.mu.Lock()

	if h.current == 0 || damage <= 0 {
		h.mu.Unlock()

		return
	}

	h.current = max(h.current-damage, 0)
	dead := h.current == 0

	h.mu.Unlock()

	if dead {
		if h.nav != nil {
			h.nav.SetEnabled(false)
		}

		h.died.Raise()

		return
	}

	h.damaged.Raise()
}

// IsDead reports whether health reached zero.
func (h *Health) IsDead() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.current == 0
}

// Fraction is current over max health.
func (h *Health) Fraction() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.current / h.max
}

// OnDamageTaken is raised by every hit that does not kill.
func (h *Health) OnDamageTaken() *statemachine.Event {
	return h.damaged
}

// OnDie is raised by the killing hit.
func (h *Health) OnDie() *statemachine.Event {
	return h.died
}

func (h *Health) Events() []*statemachine.Event {
	return []*statemachine.Event{h.damaged, h.died}
}

func (h *Health) Evaluate(kind statemachine.PredicateKind, _ []string) (bool, bool) {
	switch kind { //nolint:exhaustive
	case statemachine.PredicateDamageTakenEvent:
		return h.damaged.WasRaised(), true
	case statemachine.PredicateDieEvent:
		return h.died.WasRaised(), true
	default:
		return false, false
	}
}

// Weapon deals a fixed amount of damage per hit.
type Weapon struct {
	Damage float64
}

// DefaultWeapon hits for half of a fresh agent's health.
func DefaultWeapon() Weapon {
	return Weapon{Damage: 50}
}

// Hit applies the weapon's damage to target.
func (w Weapon) Hit(target Damageable) {
	target.TakeDamage(w.Damage)
}
