package demo

import (
	"math"
	"sync"
	"time"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Patroller defaults.
const (
	DefaultPatrolSpeedFraction = 0.6
	DefaultWaypointDwell       = 3 * time.Second
)

// Patroller walks a closed path of waypoints and rests at each one for a
// dwell time.
type Patroller struct {
	mu            sync.Mutex
	mover         *Mover
	path          []Vec3
	index         int
	speedFraction float64
	dwell         time.Duration
	sinceArrived  time.Duration
}

var (
	_ statemachine.ActionPerformer    = (*Patroller)(nil)
	_ statemachine.PredicateEvaluator = (*Patroller)(nil)
	_ statemachine.Updater            = (*Patroller)(nil)
)

// NewPatroller creates a patroller over path. It may patrol immediately.
func NewPatroller(mover *Mover, path []Vec3) *Patroller {
	return &Patroller{
		mover:         mover,
		path:          append([]Vec3(nil), path...),
		speedFraction: DefaultPatrolSpeedFraction,
		dwell:         DefaultWaypointDwell,
		sinceArrived:  time.Duration(math.MaxInt64),
	}
}

// WithDwell returns p with a different rest time at each waypoint.
func (p *Patroller) WithDwell(d time.Duration) *Patroller {
	p.dwell = d

	return p
}

// Waypoint is the waypoint the patroller is heading for. ok is false for an
// empty path.
func (p *Patroller) Waypoint() (Vec3, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.path) == 0 {
		return Vec3{}, false
	}

	return p.path[p.index], true
}

func (p *Patroller) Update(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sinceArrived < time.Duration(math.MaxInt64)-dt {
		p.sinceArrived += dt
	}
}

func (p *Patroller) PerformAction(kind statemachine.ActionKind, _ []string) {
	if kind != statemachine.ActionMoveToWaypoint {
		return
	}

	if waypoint, ok := p.Waypoint(); ok {
		p.mover.MoveTo(waypoint, p.speedFraction)
	}
}

func (p *Patroller) Evaluate(kind statemachine.PredicateKind, _ []string) (bool, bool) {
	switch kind { //nolint:exhaustive
	case statemachine.PredicateAtWaypoint:
		return p.arrive(), true
	case statemachine.PredicateCanPatrol:
		p.mu.Lock()
		defer p.mu.Unlock()

		return p.sinceArrived >= p.dwell, true
	default:
		return false, false
	}
}

// arrive reports whether the current waypoint is reached. Reaching it moves
// on to the next waypoint and restarts the dwell timer.
func (p *Patroller) arrive() bool {
	waypoint, ok := p.Waypoint()
	if !ok || !p.mover.AtDestination(waypoint) {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.index = (p.index + 1) % len(p.path)
	p.sinceArrived = 0

	return true
}
