package statemachine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/rainbowassets/gamefsm/logger"
	"go.opentelemetry.io/otel/attribute"
)

// Controller drives one agent: it owns a private clone of a graph, the
// collaborators gathered at construction and the current state. A controller
// is not safe for concurrent use; run each agent's ticks on one goroutine at a
// time.
type Controller struct {
	graph      *Graph
	agentID    string
	performers []ActionPerformer
	evaluators []PredicateEvaluator
	events     []*Event
	dispatcher *Dispatcher
	policy     TransitionPolicy
	logger     Logger
	hooks      []Hook

	current *State
	started bool
}

var _ Runtime = (*Controller)(nil)

// NewController validates template and binds a clone of it to the given
// collaborators. The template itself is never modified.
func NewController(template *Graph, opts ...Option) (*Controller, error) {
	options := &controllerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	ctx := logger.WithAgent(context.Background(), options.agentID)

	if options.logger == nil {
		options.logger = NewDefaultLogger()
	}

	if err := template.Validate(); err != nil {
		configurationErrorsTotal.WithLabelValues(sanitizeGraph(template.Name), reasonInvalidGraph).Inc()
		options.logger.ConfigurationError(ctx, template.Name, err)

		return nil, err
	}

	policy, err := resolvePolicy(ctx, options.policy)
	if err != nil {
		return nil, err
	}

	chooser := options.chooser
	if chooser == nil {
		if options.seed != nil {
			chooser = NewSeededChooser(*options.seed)
		} else {
			chooser = NewRandomChooser(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec
		}
	}

	ctrl := &Controller{
		graph:      template.Clone(),
		agentID:    options.agentID,
		performers: options.performers,
		evaluators: options.evaluators,
		dispatcher: NewDispatcher(chooser),
		policy:     policy,
		logger:     options.logger,
		hooks:      options.hooks,
	}

	for _, collaborator := range options.collaborators {
		ctrl.register(collaborator)
	}

	return ctrl, nil
}

func resolvePolicy(ctx context.Context, explicit *TransitionPolicy) (TransitionPolicy, error) {
	if explicit != nil {
		return *explicit, nil
	}

	name, err := envutil.OneOf(ctx, "FSM_TRANSITION_POLICY", []string{"first", "every"},
		envutil.Default("first")).Value()
	if err != nil {
		return FirstMatch, err
	}

	return ParseTransitionPolicy(name)
}

func (c *Controller) register(collaborator any) {
	if performer, ok := collaborator.(ActionPerformer); ok {
		c.performers = append(c.performers, performer)
	}

	if evaluator, ok := collaborator.(PredicateEvaluator); ok {
		c.evaluators = append(c.evaluators, evaluator)
	}

	if source, ok := collaborator.(EventSource); ok {
		c.events = append(c.events, source.Events()...)
	}

	if aware, ok := collaborator.(ChooserAware); ok {
		aware.UseChooser(c.dispatcher.Chooser())
	}
}

// Start switches to the state the entry state points at. There is no exit
// before the first enter.
func (c *Controller) Start(ctx context.Context) (err error) {
	if c.started {
		return ErrAlreadyStarted
	}

	ctx = c.context(ctx)

	ctx, span := startSpan(ctx, "fsm.start", c)
	defer func() { endSpan(span, err) }()

	target, err := c.graph.entry.EntryTarget()
	if err != nil {
		return c.configurationError(ctx, reasonInvalidGraph, err)
	}

	if err := c.switchTo(ctx, c.graph.entry.ID(), target); err != nil {
		return err
	}

	c.started = true

	return nil
}

// Tick runs one scheduling step: latch collaborator events, tick the current
// state, tick the any state, then clear the events. The any state is ticked
// even when the current state already switched in this tick.
func (c *Controller) Tick(ctx context.Context) (err error) {
	if !c.started {
		return ErrNotStarted
	}

	ctx = c.context(ctx)

	ctx, span := startSpan(ctx, "fsm.tick", c, attribute.String("state", c.current.ID()))
	defer func() { endSpan(span, err) }()

	start := time.Now()

	for _, event := range c.events {
		event.Latch()
	}

	current := c.current
	currentErr := current.Tick(ctx, c)
	anyErr := c.graph.any.Tick(ctx, c)

	for _, event := range c.events {
		event.Clear()
	}

	tickDuration.WithLabelValues(sanitizeGraph(c.graph.Name)).Observe(time.Since(start).Seconds())
	c.notify(ctx, HookEvent{Kind: HookTick, State: c.current})

	return errors.Join(currentErr, anyErr)
}

// SwitchState exits the current state and enters the state with the given ID.
// The target is resolved first: a missing target, or an entry or any state,
// is reported as a configuration error and the current state is kept.
func (c *Controller) SwitchState(ctx context.Context, id string) error {
	if !c.started {
		return ErrNotStarted
	}

	return c.switchTo(c.context(ctx), sanitizeState(c.current), id)
}

func (c *Controller) switchTo(ctx context.Context, fromID, id string) (err error) {
	target, err := c.graph.GetState(id)
	if err != nil {
		return c.configurationError(ctx, reasonMissingState, WrapTransitionError(fromID, id, err))
	}

	if !target.kind.Switchable() {
		return c.configurationError(ctx, reasonInvalidTarget, WrapTransitionError(fromID, id, ErrInvalidTarget))
	}

	ctx, span := startSpan(ctx, "fsm.switch", c,
		attribute.String("from", fromID),
		attribute.String("to", id),
	)
	defer func() { endSpan(span, err) }()

	from := c.current
	if from != nil {
		from.Exit(ctx, c)
		c.logger.StateExited(ctx, c.graph.Name, from)
		c.notify(ctx, HookEvent{Kind: HookExit, State: from})
	}

	c.current = target

	target.Enter(ctx, c)
	stateEntriesTotal.WithLabelValues(sanitizeGraph(c.graph.Name), target.ID()).Inc()
	c.logger.StateEntered(ctx, c.graph.Name, target)
	c.notify(ctx, HookEvent{Kind: HookEnter, State: target})

	transitionsTotal.WithLabelValues(sanitizeGraph(c.graph.Name), fromID, target.ID()).Inc()
	c.logger.TransitionFired(ctx, c.graph.Name, from, target)
	c.notify(ctx, HookEvent{Kind: HookTransition, State: target, From: from})

	return nil
}

// Stop exits the current state and returns the controller to its unstarted
// condition. Pending events are dropped.
func (c *Controller) Stop(ctx context.Context) error {
	if !c.started {
		return ErrNotStarted
	}

	ctx = c.context(ctx)

	c.current.Exit(ctx, c)
	c.logger.StateExited(ctx, c.graph.Name, c.current)
	c.notify(ctx, HookEvent{Kind: HookExit, State: c.current})

	c.current = nil
	c.started = false

	for _, event := range c.events {
		event.Reset()
	}

	return nil
}

// Dispatch broadcasts actions to every performer.
func (c *Controller) Dispatch(ctx context.Context, state *State, phase Phase, actions []Action) {
	if len(actions) == 0 {
		return
	}

	calls := c.dispatcher.Perform(actions, c.performers)
	if calls > 0 {
		actionsDispatchedTotal.WithLabelValues(sanitizeGraph(c.graph.Name), string(phase)).Add(float64(calls))
	}

	c.notify(ctx, HookEvent{Kind: HookDispatch, State: state, Phase: phase, Actions: actions})
}

func (c *Controller) configurationError(ctx context.Context, reason string, err error) error {
	configurationErrorsTotal.WithLabelValues(sanitizeGraph(c.graph.Name), reason).Inc()
	c.logger.ConfigurationError(ctx, c.graph.Name, err)

	return err
}

func (c *Controller) notify(ctx context.Context, event HookEvent) {
	if len(c.hooks) == 0 {
		return
	}

	event.AgentID = c.agentID

	for _, hook := range c.hooks {
		hook(ctx, event)
	}
}

func (c *Controller) context(ctx context.Context) context.Context {
	if c.agentID == "" {
		return ctx
	}

	return logger.WithAgent(ctx, c.agentID)
}

// CurrentState returns the current state, or nil before Start.
func (c *Controller) CurrentState() *State {
	return c.current
}

// Graph returns the controller's private graph clone.
func (c *Controller) Graph() *Graph {
	return c.graph
}

// AgentID returns the agent name given with WithAgentID.
func (c *Controller) AgentID() string {
	return c.agentID
}

// Started reports whether Start succeeded and Stop has not been called since.
func (c *Controller) Started() bool {
	return c.started
}

// ActionPerformers returns the performers in call order.
func (c *Controller) ActionPerformers() []ActionPerformer {
	return c.performers
}

// PredicateEvaluators returns the evaluators in query order.
func (c *Controller) PredicateEvaluators() []PredicateEvaluator {
	return c.evaluators
}

// Events returns the one-shot events gathered from collaborators.
func (c *Controller) Events() []*Event {
	return c.events
}

// Dispatcher returns the action dispatcher.
func (c *Controller) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// TransitionPolicy returns the policy applied when several transitions match.
func (c *Controller) TransitionPolicy() TransitionPolicy {
	return c.policy
}
