package dag

import (
	"context"
	"sync"

	"github.com/juju/errors"
)

// StepFunc is a plain step implementation. The start step receives a nil
// payload; every later step receives whatever its predecessor returned.
type StepFunc func(payload any) (any, Status, error)

// StepFuncContext is the context-aware form. Both kinds mix freely in one
// table; the runner hands its context to these.
type StepFuncContext func(ctx context.Context, payload any) (any, Status, error)

// Step binds a node name to its implementation.
type Step struct {
	Name string

	fn    StepFunc
	fnCtx StepFuncContext
}

// NewStep wraps a plain function as a runnable step.
func NewStep(name string, fn StepFunc) *Step {
	return &Step{Name: name, fn: fn}
}

// NewStepContext wraps a context-aware function as a runnable step.
func NewStepContext(name string, fn StepFuncContext) *Step {
	return &Step{Name: name, fnCtx: fn}
}

func (s *Step) invoke(ctx context.Context, payload any) (any, Status, error) {
	if s.fnCtx != nil {
		return s.fnCtx(ctx, payload)
	}
	if s.fn != nil {
		return s.fn(payload)
	}
	return nil, nil, errors.Errorf("step %q has no implementation", s.Name)
}

// Target is where a transition lands: the next Step, or a terminal
// ExitOutcome.
type Target interface {
	isTarget()
}

func (*Step) isTarget()       {}
func (ExitOutcome) isTarget() {}

// Table maps canonical state keys to their targets. Generated artifacts
// declare one; BuildTable assembles one at run time. Enumerated constants
// and raw keys are the same type, so both index it directly.
type Table map[StateKey]Target

// Registry maps node names to step implementations so a Table can be
// assembled without generated code.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]*Step
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]*Step)}
}

// Register adds a step under its name. Registering a name twice is an
// error.
func (r *Registry) Register(s *Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.steps[s.Name]; ok {
		return errors.AlreadyExistsf("step %q", s.Name)
	}
	r.steps[s.Name] = s
	return nil
}

// MustRegister is Register for package init wiring; it panics on
// duplicates.
func (r *Registry) MustRegister(s *Step) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Lookup returns the step registered under name.
func (r *Registry) Lookup(name string) (*Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[name]
	if !ok {
		return nil, errors.NotFoundf("step %q", name)
	}
	return s, nil
}

// Names returns the registered step names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.steps))
	for name := range r.steps {
		out = append(out, name)
	}
	return out
}

// BuildTable compiles a parsed graph into a runnable table, resolving node
// targets through the registry and exit targets through the graph's
// declared exits. It is the in-memory alternative to a generated artifact.
func BuildTable(g *TransitionGraph, reg *Registry) (Table, error) {
	table := make(Table, len(g.Transitions))
	for _, t := range g.Transitions {
		key := t.Key()
		if _, ok := table[key]; ok {
			return nil, errors.Errorf("duplicate state %q", key)
		}
		if t.IsExit() {
			e, ok := g.ResolveExit(t.ToTarget)
			if !ok {
				return nil, errors.NotFoundf("exit %q targeted by state %q", t.ExitName(), key)
			}
			table[key] = e.Ref
			continue
		}
		step, err := reg.Lookup(t.ToTarget)
		if err != nil {
			return nil, errors.Annotatef(err, "state %q", key)
		}
		table[key] = step
	}
	return table, nil
}
