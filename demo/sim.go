package demo

import (
	"sync"
	"time"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// SimNavigator is a Navigator moving in straight lines at the commanded
// speed. It advances in Update.
type SimNavigator struct {
	mu          sync.Mutex
	position    Vec3
	destination Vec3
	speed       float64
	moving      bool
	enabled     bool
}

var (
	_ Navigator            = (*SimNavigator)(nil)
	_ statemachine.Updater = (*SimNavigator)(nil)
)

// NewSimNavigator creates an enabled navigator standing at position.
func NewSimNavigator(position Vec3) *SimNavigator {
	return &SimNavigator{position: position, enabled: true}
}

func (n *SimNavigator) MoveTo(destination Vec3, speed float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}

	n.destination = destination
	n.speed = speed
	n.moving = true
}

func (n *SimNavigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.moving = false
}

func (n *SimNavigator) Position() Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.position
}

// Moving reports whether a destination is still ahead.
func (n *SimNavigator) Moving() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.moving
}

func (n *SimNavigator) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.enabled = enabled
	if !enabled {
		n.moving = false
	}
}

func (n *SimNavigator) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.enabled
}

// Teleport puts the agent at position and stops it.
func (n *SimNavigator) Teleport(position Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.position = position
	n.moving = false
}

func (n *SimNavigator) Update(dt time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.moving || !n.enabled {
		return
	}

	step := n.speed * dt.Seconds()
	remaining := n.destination.Sub(n.position)

	if distance := remaining.Len(); step >= distance {
		n.position = n.destination
		n.moving = false
	} else {
		n.position = n.position.Add(remaining.Scale(step / distance))
	}
}

// DefaultClipLength is the length of clips SimAnimator has no length for.
const DefaultClipLength = time.Second

// SimAnimator is an Animator whose clips finish after a fixed length. The
// tag of a clip is its name.
type SimAnimator struct {
	mu      sync.Mutex
	lengths map[string]time.Duration
	clip    string
	elapsed time.Duration
	played  []string
}

var (
	_ Animator             = (*SimAnimator)(nil)
	_ statemachine.Updater = (*SimAnimator)(nil)
)

// NewSimAnimator creates an animator with the given clip lengths.
func NewSimAnimator(lengths map[string]time.Duration) *SimAnimator {
	l := make(map[string]time.Duration, len(lengths))
	for clip, length := range lengths {
		l[clip] = length
	}

	return &SimAnimator{lengths: l}
}

func (a *SimAnimator) CrossFade(clip string, _ time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clip = clip
	a.elapsed = 0
	a.played = append(a.played, clip)
}

func (a *SimAnimator) TagFinished(tag string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.clip == tag && a.elapsed >= a.length(tag)
}

// Clip is the clip playing now.
func (a *SimAnimator) Clip() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.clip
}

// Played lists every clip started, in order.
func (a *SimAnimator) Played() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.played...)
}

func (a *SimAnimator) Update(dt time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.clip != "" {
		a.elapsed += dt
	}
}

func (a *SimAnimator) length(clip string) time.Duration {
	if l, ok := a.lengths[clip]; ok {
		return l
	}

	return DefaultClipLength
}

// SimInput is an InputSource fed by code. A press is visible during the
// step after it, from one Update to the next.
type SimInput struct {
	mu      sync.Mutex
	pending map[string]bool
	frame   map[string]bool
	x, y    float64
}

var (
	_ InputSource          = (*SimInput)(nil)
	_ statemachine.Updater = (*SimInput)(nil)
)

func NewSimInput() *SimInput {
	return &SimInput{pending: map[string]bool{}, frame: map[string]bool{}}
}

// Press queues a press of action for the next step.
func (i *SimInput) Press(action string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pending[action] = true
}

// SetAxis holds the move stick at (x, y) until changed.
func (i *SimInput) SetAxis(x, y float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.x, i.y = x, y
}

func (i *SimInput) WasPressed(action string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.frame[action]
}

func (i *SimInput) Axis() (float64, float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.x, i.y
}

func (i *SimInput) Update(time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.frame, i.pending = i.pending, map[string]bool{}
}

// FixedCamera is a Camera that never moves.
type FixedCamera struct {
	RightDir   Vec3
	ForwardDir Vec3
}

// DefaultCamera looks down +Z with +X to the right.
func DefaultCamera() FixedCamera {
	return FixedCamera{RightDir: Vec3{X: 1}, ForwardDir: Vec3{Z: 1}}
}

func (c FixedCamera) Right() Vec3 {
	return c.RightDir
}

func (c FixedCamera) Forward() Vec3 {
	return c.ForwardDir
}
