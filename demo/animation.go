package demo

import (
	"sync"
	"time"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// DefaultCrossFade is the blend time between clips.
const DefaultCrossFade = 100 * time.Millisecond

// AnimationPlayer performs PlayAnimation and answers AnimationOver. With
// several parameters PlayAnimation plays one of them picked by the
// controller's chooser.
type AnimationPlayer struct {
	mu       sync.Mutex
	animator Animator
	fade     time.Duration
	chooser  statemachine.Chooser
}

var (
	_ statemachine.ActionPerformer    = (*AnimationPlayer)(nil)
	_ statemachine.PredicateEvaluator = (*AnimationPlayer)(nil)
	_ statemachine.ChooserAware       = (*AnimationPlayer)(nil)
)

// NewAnimationPlayer creates a player on animator.
func NewAnimationPlayer(animator Animator) *AnimationPlayer {
	return &AnimationPlayer{
		animator: animator,
		fade:     DefaultCrossFade,
		chooser:  statemachine.FirstChooser{},
	}
}

func (a *AnimationPlayer) UseChooser(chooser statemachine.Chooser) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.chooser = chooser
}

func (a *AnimationPlayer) PerformAction(kind statemachine.ActionKind, params []string) {
	if kind != statemachine.ActionPlayAnimation || len(params) == 0 {
		return
	}

	a.mu.Lock()
	clip := a.chooser.Choose(params)
	a.mu.Unlock()

	a.animator.CrossFade(clip, a.fade)
}

// Evaluate answers AnimationOver(tag). Without a tag nothing is over.
func (a *AnimationPlayer) Evaluate(kind statemachine.PredicateKind, params []string) (bool, bool) {
	if kind != statemachine.PredicateAnimationOver {
		return false, false
	}

	if len(params) == 0 {
		return false, true
	}

	return a.animator.TagFinished(params[0]), true
}
