package dag

import "github.com/mcuadros/go-defaults"

// StepCallback observes every executed step: the node name, the canonical
// state it resolved to, and the payload it returned. A non-nil error
// aborts the run and propagates to the caller like a step error.
type StepCallback func(node string, state StateKey, payload any) error

// RunOptions tune a single run.
type RunOptions struct {
	MaxIterations int  `default:"100"`
	Strict        bool `default:"true"`
	OnStep        StepCallback
}

// RunOption overrides one run option.
type RunOption func(*RunOptions)

// NewRunOptions builds options with the defaults applied, then the
// overrides in order.
func NewRunOptions(opts ...RunOption) *RunOptions {
	o := &RunOptions{}
	defaults.SetDefaults(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMaxIterations overrides the iteration ceiling.
func WithMaxIterations(n int) RunOption {
	return func(o *RunOptions) { o.MaxIterations = n }
}

// WithStrict toggles strict state checking. A non-strict run stops with a
// degraded result instead of failing when a step resolves to an unknown
// state.
func WithStrict(strict bool) RunOption {
	return func(o *RunOptions) { o.Strict = strict }
}

// WithOnStep installs a step observer.
func WithOnStep(cb StepCallback) RunOption {
	return func(o *RunOptions) { o.OnStep = cb }
}

// WithGraphOptions adopts the execution options a graph declares.
func WithGraphOptions(g GraphOptions) RunOption {
	return func(o *RunOptions) {
		o.MaxIterations = g.MaxIterations
		o.Strict = g.StrictStateCheck
	}
}
