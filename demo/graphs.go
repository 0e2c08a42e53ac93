package demo

import (
	"embed"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Graphs holds the sample guard and player graphs under graphs/.
//
//go:embed graphs/*.yaml
var Graphs embed.FS

// Loader lists and loads the sample graphs by name.
func Loader() *statemachine.DirLoader {
	return statemachine.NewDirLoader(Graphs, "graphs")
}

// LoadGraph builds the sample graph called name, e.g. "guard".
func LoadGraph(name string) (*statemachine.Graph, error) {
	return statemachine.LoadGraphFromFS(Graphs, "graphs/"+name+".yaml")
}

// HandledActions lists the action kinds the collaborators of this package
// perform.
func HandledActions() []statemachine.ActionKind {
	return []statemachine.ActionKind{
		statemachine.ActionFreeLook,
		statemachine.ActionPlayAnimation,
		statemachine.ActionMoveToWaypoint,
		statemachine.ActionCancelMovement,
		statemachine.ActionChasePlayer,
		statemachine.ActionPrintMessage,
		ActionHit,
	}
}

// HandledPredicates lists the predicate kinds the collaborators of this
// package answer.
func HandledPredicates() []statemachine.PredicateKind {
	return []statemachine.PredicateKind{
		statemachine.PredicateInputActionPressed,
		statemachine.PredicateAnimationOver,
		statemachine.PredicateAtWaypoint,
		statemachine.PredicateCanPatrol,
		statemachine.PredicateDamageTakenEvent,
		statemachine.PredicateDieEvent,
		statemachine.PredicatePlayerInChaseRange,
		statemachine.PredicatePlayerInAttackRange,
		statemachine.PredicateSuspicionFinished,
	}
}
