package statemachine

import (
	"context"
)

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	collaborators []any
	performers    []ActionPerformer
	evaluators    []PredicateEvaluator
	logger        Logger
	chooser       Chooser
	seed          *uint64
	agentID       string
	policy        *TransitionPolicy
	hooks         []Hook
}

// WithCollaborators registers collaborators. Each one is sorted by the
// interfaces it implements: ActionPerformer, PredicateEvaluator, EventSource
// and ChooserAware. Order is kept, and it is the order performers are called
// and evaluators are asked.
func WithCollaborators(collaborators ...any) Option {
	return func(o *controllerOptions) {
		o.collaborators = append(o.collaborators, collaborators...)
	}
}

// WithPerformers registers action performers.
func WithPerformers(performers ...ActionPerformer) Option {
	return func(o *controllerOptions) {
		o.performers = append(o.performers, performers...)
	}
}

// WithEvaluators registers predicate evaluators.
func WithEvaluators(evaluators ...PredicateEvaluator) Option {
	return func(o *controllerOptions) {
		o.evaluators = append(o.evaluators, evaluators...)
	}
}

// WithLogger sets the logging hooks. The default logs through the logger package.
func WithLogger(logger Logger) Option {
	return func(o *controllerOptions) {
		o.logger = logger
	}
}

// WithChooser sets the random source handed to ChooserAware collaborators.
func WithChooser(chooser Chooser) Option {
	return func(o *controllerOptions) {
		o.chooser = chooser
	}
}

// WithRandSeed makes random choices reproducible. Ignored when WithChooser is
// also given.
func WithRandSeed(seed uint64) Option {
	return func(o *controllerOptions) {
		o.seed = &seed
	}
}

// WithAgentID names the agent in logs, spans and hooks.
func WithAgentID(id string) Option {
	return func(o *controllerOptions) {
		o.agentID = id
	}
}

// WithTransitionPolicy overrides FSM_TRANSITION_POLICY.
func WithTransitionPolicy(policy TransitionPolicy) Option {
	return func(o *controllerOptions) {
		o.policy = &policy
	}
}

// WithHook registers a hook called on every controller event.
func WithHook(hook Hook) Option {
	return func(o *controllerOptions) {
		o.hooks = append(o.hooks, hook)
	}
}

// HookKind identifies what a HookEvent reports.
type HookKind int

const (
	HookEnter HookKind = iota
	HookExit
	HookTransition
	HookDispatch
	HookTick
)

func (k HookKind) String() string {
	switch k {
	case HookEnter:
		return "enter"
	case HookExit:
		return "exit"
	case HookTransition:
		return "transition"
	case HookDispatch:
		return "dispatch"
	case HookTick:
		return "tick"
	default:
		return "unknown"
	}
}

// HookEvent describes one controller event. State is the state entered,
// exited, dispatching or current; From is set for transitions.
type HookEvent struct {
	Kind    HookKind
	AgentID string
	State   *State
	From    *State
	Phase   Phase
	Actions []Action
}

// Hook observes controller events. Hooks run synchronously inside the tick
// and must not call back into the controller.
type Hook func(ctx context.Context, event HookEvent)
