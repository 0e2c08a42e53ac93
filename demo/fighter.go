package demo

import (
	"math"
	"sync"
	"time"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// ActionHit swings the fighter's weapon at its target.
var ActionHit = statemachine.RegisterActionKind("Hit") //nolint:gochecknoglobals

// Fighter defaults.
const (
	DefaultChaseRange         = 10.0
	DefaultAttackRange        = 1.0
	DefaultChaseSpeedFraction = 1.0
	DefaultSuspicionTime      = 3 * time.Second
)

// Fighter chases a target. Seeing the target inside either range restarts
// the suspicion timer; SuspicionFinished holds once the target has been out
// of sight for the suspicion time.
//
// A Hit action aims at the target while it is inside the attack range; the
// damage lands in LateUpdate, after every agent of the step has ticked.
type Fighter struct {
	mu            sync.Mutex
	mover         *Mover
	target        Target
	weapon        Weapon
	chaseRange    float64
	attackRange   float64
	speedFraction float64
	suspicion     time.Duration
	sinceSeen     time.Duration
	swings        []Damageable
}

var (
	_ statemachine.ActionPerformer    = (*Fighter)(nil)
	_ statemachine.PredicateEvaluator = (*Fighter)(nil)
	_ statemachine.Updater            = (*Fighter)(nil)
	_ statemachine.LateUpdater        = (*Fighter)(nil)
)

// NewFighter creates a Fighter with the default weapon chasing target.
// target may be nil and set later with SetTarget.
func NewFighter(mover *Mover, target Target) *Fighter {
	return &Fighter{
		mover:         mover,
		target:        target,
		weapon:        DefaultWeapon(),
		chaseRange:    DefaultChaseRange,
		attackRange:   DefaultAttackRange,
		speedFraction: DefaultChaseSpeedFraction,
		suspicion:     DefaultSuspicionTime,
		sinceSeen:     time.Duration(math.MaxInt64),
	}
}

// WithSuspicion returns f with a different suspicion time.
func (f *Fighter) WithSuspicion(d time.Duration) *Fighter {
	f.suspicion = d

	return f
}

// WithWeapon returns f armed with weapon.
func (f *Fighter) WithWeapon(weapon Weapon) *Fighter {
	f.weapon = weapon

	return f
}

// SetTarget replaces the chased target.
func (f *Fighter) SetTarget(target Target) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.target = target
}

func (f *Fighter) Update(dt time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sinceSeen < time.Duration(math.MaxInt64)-dt {
		f.sinceSeen += dt
	}
}

// LateUpdate deals the damage of the swings aimed since the last call.
func (f *Fighter) LateUpdate() {
	f.mu.Lock()
	swings := f.swings
	f.swings = nil
	f.mu.Unlock()

	for _, target := range swings {
		f.weapon.Hit(target)
	}
}

func (f *Fighter) PerformAction(kind statemachine.ActionKind, _ []string) {
	switch kind { //nolint:exhaustive
	case statemachine.ActionChasePlayer:
		f.mu.Lock()
		target := f.target
		f.mu.Unlock()

		if target != nil {
			f.mover.MoveTo(target.Position(), f.speedFraction)
		}
	case ActionHit:
		f.swing()
	}
}

// swing aims a hit at the target if it can take damage and stands inside the
// attack range.
func (f *Fighter) swing() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.target == nil || f.target.IsDead() {
		return
	}

	damageable, ok := f.target.(Damageable)
	if !ok || f.mover.Position().Distance(f.target.Position()) > f.attackRange {
		return
	}

	f.swings = append(f.swings, damageable)
}

func (f *Fighter) Evaluate(kind statemachine.PredicateKind, _ []string) (bool, bool) {
	switch kind { //nolint:exhaustive
	case statemachine.PredicatePlayerInChaseRange:
		return f.inRange(f.chaseRange), true
	case statemachine.PredicatePlayerInAttackRange:
		return f.inRange(f.attackRange), true
	case statemachine.PredicateSuspicionFinished:
		f.mu.Lock()
		defer f.mu.Unlock()

		return f.sinceSeen >= f.suspicion, true
	default:
		return false, false
	}
}

// inRange is false for a missing or dead target. A hit restarts the
// suspicion timer.
func (f *Fighter) inRange(r float64) bool {
	f.mu.Lock()
	target := f.target
	f.mu.Unlock()

	if target == nil || target.IsDead() {
		return false
	}

	if f.mover.Position().Distance(target.Position()) > r {
		return false
	}

	f.mu.Lock()
	f.sinceSeen = 0
	f.mu.Unlock()

	return true
}
