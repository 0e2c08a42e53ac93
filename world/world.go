// Package world runs many agents side by side. Each step updates every
// agent's collaborators and ticks its controller on a shared worker pool;
// agents share no mutable state through the runtime, so they step
// concurrently.
package world

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"facette.io/natsort"
	"github.com/alitto/pond/v2"
	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/statemachine"
)

var (
	ErrClosed         = errors.New("world is closed")
	ErrDuplicateAgent = errors.New("agent already exists")
	ErrUnknownAgent   = errors.New("unknown agent")
	ErrAgentPanicked  = errors.New("agent panicked")
)

type options struct {
	name       string
	workers    int
	controller []statemachine.Option
}

// Option configures a World.
type Option func(*options)

// WithName labels the world's metrics and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithWorkers overrides FSM_WORKERS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithControllerOptions adds options to every controller the world builds.
func WithControllerOptions(opts ...statemachine.Option) Option {
	return func(o *options) {
		o.controller = append(o.controller, opts...)
	}
}

type agent struct {
	id            string
	template      string
	ctrl          *statemachine.Controller
	collaborators []any
	updaters      []statemachine.Updater
	late          []statemachine.LateUpdater
}

// World owns a set of agents and the pool that steps them.
type World struct {
	name    string
	ctrlOpt []statemachine.Option
	pool    pond.Pool

	mu     sync.RWMutex
	agents map[string]*agent
	closed bool
}

// New creates a world. The pool size comes from WithWorkers, else
// FSM_WORKERS, else GOMAXPROCS.
func New(ctx context.Context, opts ...Option) (*World, error) {
	o := &options{name: "world"}
	for _, opt := range opts {
		opt(o)
	}

	if o.workers == 0 {
		workers, err := envutil.Int(ctx, "FSM_WORKERS",
			envutil.Default(runtime.GOMAXPROCS(0)),
			envutil.Validate(envutil.Positive[int])).Value()
		if err != nil {
			return nil, err
		}

		o.workers = workers
	}

	if o.workers < 1 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", statemachine.ErrInvalidConfig, o.workers)
	}

	logger.Get(ctx).Debug("Initializing world", "world", o.name, "workers", o.workers)

	worldAgents.WithLabelValues(o.name).Set(0)

	return &World{
		name:    o.name,
		ctrlOpt: o.controller,
		pool:    pond.NewPool(o.workers),
		agents:  make(map[string]*agent),
	}, nil
}

// Spawn builds a controller for template, starts it and adds it as agent id.
// Collaborators are handed to the controller; those implementing
// statemachine.Updater are updated before every tick in the order given.
func (w *World) Spawn(ctx context.Context, id string, template *statemachine.Graph, collaborators ...any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if _, ok := w.agents[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
	}

	a := &agent{id: id, template: template.Name, collaborators: collaborators}

	for _, collaborator := range collaborators {
		if updater, ok := collaborator.(statemachine.Updater); ok {
			a.updaters = append(a.updaters, updater)
		}

		if late, ok := collaborator.(statemachine.LateUpdater); ok {
			a.late = append(a.late, late)
		}
	}

	ctrl, err := w.start(ctx, a, template)
	if err != nil {
		return err
	}

	a.ctrl = ctrl
	w.agents[id] = a

	worldAgents.WithLabelValues(w.name).Set(float64(len(w.agents)))

	return nil
}

func (w *World) start(ctx context.Context, a *agent, graph *statemachine.Graph) (*statemachine.Controller, error) {
	opts := make([]statemachine.Option, 0, len(w.ctrlOpt)+2)
	opts = append(opts, w.ctrlOpt...)
	opts = append(opts,
		statemachine.WithAgentID(a.id),
		statemachine.WithCollaborators(a.collaborators...))

	ctrl, err := statemachine.NewController(graph, opts...)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.id, err)
	}

	if err := ctrl.Start(ctx); err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.id, err)
	}

	return ctrl, nil
}

// Despawn stops agent id, running the exit actions of its current state,
// and removes it.
func (w *World) Despawn(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}

	delete(w.agents, id)
	worldAgents.WithLabelValues(w.name).Set(float64(len(w.agents)))

	return a.ctrl.Stop(ctx)
}

// Step advances every agent by dt in three phases. First every agent's
// updaters run, then every controller ticks, each phase on the pool and
// finished before the next starts, so a tick only sees other agents as they
// were after the whole update phase. Last, late updaters run one agent at a
// time in natural ID order. An agent whose update fails skips its tick. Step
// returns the errors of all phases joined.
func (w *World) Step(ctx context.Context, dt time.Duration) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	start := time.Now()

	ids := w.sortedIDs()
	updateErrs := w.runPhase(ctx, ids, func(a *agent) error {
		return a.update(dt)
	})

	ready := make([]string, 0, len(ids))
	for i, id := range ids {
		if updateErrs[i] == nil {
			ready = append(ready, id)
		}
	}

	tickErrs := w.runPhase(ctx, ready, func(a *agent) error {
		return a.tick(ctx)
	})

	errs := make([]error, 0, len(updateErrs)+len(tickErrs))
	errs = append(errs, updateErrs...)
	errs = append(errs, tickErrs...)

	for _, id := range ready {
		errs = append(errs, w.agents[id].lateUpdate())
	}

	stepDuration.WithLabelValues(w.name).Observe(time.Since(start).Seconds())

	err := errors.Join(errs...)
	if err != nil {
		stepErrorsTotal.WithLabelValues(w.name).Add(float64(countErrors(errs)))
	}

	return err
}

// runPhase runs fn for every agent in ids on the pool and waits for all of
// them. The result holds one error slot per ID.
func (w *World) runPhase(ctx context.Context, ids []string, fn func(a *agent) error) []error {
	errs := make([]error, len(ids))
	group := w.pool.NewGroupContext(ctx)

	for i, id := range ids {
		a := w.agents[id]

		group.Submit(func() {
			errs[i] = a.guard(func() error { return fn(a) })
		})
	}

	if err := group.Wait(); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func countErrors(errs []error) int {
	n := 0

	for _, err := range errs {
		if err != nil {
			n++
		}
	}

	return n
}

// guard turns a panic in fn into ErrAgentPanicked.
func (a *agent) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v\n%s", ErrAgentPanicked, a.id, r, debug.Stack())
		}
	}()

	return fn()
}

func (a *agent) update(dt time.Duration) error {
	for _, updater := range a.updaters {
		updater.Update(dt)
	}

	return nil
}

func (a *agent) tick(ctx context.Context) error {
	if err := a.ctrl.Tick(ctx); err != nil {
		return fmt.Errorf("agent %s: %w", a.id, err)
	}

	return nil
}

func (a *agent) lateUpdate() error {
	return a.guard(func() error {
		for _, late := range a.late {
			late.LateUpdate()
		}

		return nil
	})
}

// Run steps the world every interval until ctx is done. Step errors are
// logged and do not stop the loop.
func (w *World) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now

			if err := w.Step(ctx, dt); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}

				logger.Get(ctx).Error("World step failed", "world", w.name, "error", err)
			}
		}
	}
}

// Reload restarts every agent spawned from the template called name on graph.
// Each agent exits its current state and enters graph's starting state with
// the collaborators it already had. It returns the number of agents
// restarted. An agent whose restart fails keeps running the old graph.
func (w *World) Reload(ctx context.Context, name string, graph *statemachine.Graph) (int, error) {
	if err := graph.Validate(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	var (
		restarted int
		errs      []error
	)

	for _, id := range w.sortedIDs() {
		a := w.agents[id]
		if a.template != name {
			continue
		}

		if err := a.ctrl.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", id, err))

			continue
		}

		ctrl, err := w.start(ctx, a, graph)
		if err != nil {
			errs = append(errs, err)

			if restartErr := a.ctrl.Start(ctx); restartErr != nil {
				errs = append(errs, fmt.Errorf("agent %s: %w", id, restartErr))
			}

			continue
		}

		a.ctrl = ctrl
		a.template = graph.Name
		restarted++
	}

	if restarted > 0 {
		reloadsTotal.WithLabelValues(w.name, name).Add(float64(restarted))
		logger.Get(ctx).Info("Reloaded graph", "world", w.name, "template", name, "agents", restarted)
	}

	return restarted, errors.Join(errs...)
}

// Agents returns the agent IDs in natural order (guard2 before guard10).
func (w *World) Agents() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.sortedIDs()
}

func (w *World) sortedIDs() []string {
	ids := make([]string, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}

	natsort.Sort(ids)

	return ids
}

// Controller returns the controller of agent id.
func (w *World) Controller(id string) (*statemachine.Controller, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	a, ok := w.agents[id]
	if !ok {
		return nil, false
	}

	return a.ctrl, true
}

// States maps every agent to the ID of its current state.
func (w *World) States() map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	states := make(map[string]string, len(w.agents))
	for id, a := range w.agents {
		states[id] = a.ctrl.CurrentState().ID()
	}

	return states
}

// Close stops every agent and the worker pool. Calling it again is a no-op.
func (w *World) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	var errs []error

	for _, id := range w.sortedIDs() {
		if err := w.agents[id].ctrl.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", id, err))
		}
	}

	clear(w.agents)
	worldAgents.WithLabelValues(w.name).Set(0)

	w.pool.StopAndWait()

	return errors.Join(errs...)
}
