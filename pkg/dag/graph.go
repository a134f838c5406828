package dag

import (
	"strings"

	"github.com/mcuadros/go-defaults"
)

// NodeDefinition declares one processing step: its dotted name plus the
// locator of the function that implements it.
type NodeDefinition struct {
	Name        string // dotted path, e.g. "sub.deep.process"
	Module      string // dotted package locator, e.g. "nodes.myflow.process"
	Function    string // exported function within Module
	Description string
}

// StateTransition is one edge of the graph: when FromNode resolves to
// FromState, control moves to ToTarget.
type StateTransition struct {
	FromNode  string
	FromState string // "<status>::<detail>"
	ToTarget  string // node name or canonical exit marker
}

// Key returns the canonical lookup key for this transition's source.
func (t StateTransition) Key() StateKey {
	return StateKey(t.FromNode + sep + t.FromState)
}

// IsExit reports whether the transition lands on an exit marker.
func (t StateTransition) IsExit() bool { return IsExitKey(t.ToTarget) }

// ExitName returns the name segment of an exit target, handling both the
// short "exit::<name>" and the canonical "exit::<color>::<name>" forms. It
// returns "" when the transition targets a node.
func (t StateTransition) ExitName() string {
	if !t.IsExit() {
		return ""
	}
	parts := strings.Split(t.ToTarget, sep)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// ExitDefinition declares a named terminal endpoint of the workflow.
//
// Name is the identifier the generator derives constants from; Ref is the
// canonical marker transitions resolve to. The two differ for exits
// declared in the node tree: "exit.success.done" is named "success_done"
// but referenced as "exit::green::done".
type ExitDefinition struct {
	Name        string
	Code        int // process exit code
	Color       string
	Description string
	Ref         ExitOutcome
}

// GraphOptions tune execution and validation of a graph.
type GraphOptions struct {
	MaxIterations       int  `yaml:"max_iterations" default:"100"`
	EnableLoopDetection bool `yaml:"enable_loop_detection" default:"true"`
	StrictStateCheck    bool `yaml:"strict_state_check" default:"true"`
}

// NewGraphOptions returns options with the standard defaults applied.
func NewGraphOptions() GraphOptions {
	var o GraphOptions
	defaults.SetDefaults(&o)
	return o
}

// TransitionGraph is the parsed, immutable form of a workflow definition.
// Slices preserve declaration order; generation output depends on it.
type TransitionGraph struct {
	Version     string
	Entrypoint  string
	Description string
	StartNode   string
	Nodes       []NodeDefinition
	Exits       []ExitDefinition
	Transitions []StateTransition
	Options     GraphOptions
}

// Node returns the definition for name, if declared.
func (g *TransitionGraph) Node(name string) (NodeDefinition, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeDefinition{}, false
}

// Exit returns the exit definition for name, if declared. Both the
// definition name and the canonical marker name are accepted.
func (g *TransitionGraph) Exit(name string) (ExitDefinition, bool) {
	for _, e := range g.Exits {
		if e.Name == name || e.Ref.ExitName() == name {
			return e, true
		}
	}
	return ExitDefinition{}, false
}

// ResolveExit resolves an exit-shaped transition target against the
// declared exits: the short "exit::<name>" form matches by name, the
// canonical three-segment form by marker.
func (g *TransitionGraph) ResolveExit(target string) (ExitDefinition, bool) {
	parts := strings.Split(target, sep)
	switch {
	case len(parts) == 2 && parts[0] == exitHead:
		return g.Exit(parts[1])
	case len(parts) == 3 && parts[0] == exitHead:
		for _, e := range g.Exits {
			if e.Ref == ExitOutcome(target) {
				return e, true
			}
		}
	}
	return ExitDefinition{}, false
}

// TransitionsFor returns all transitions leaving node, in declaration order.
func (g *TransitionGraph) TransitionsFor(node string) []StateTransition {
	var out []StateTransition
	for _, t := range g.Transitions {
		if t.FromNode == node {
			out = append(out, t)
		}
	}
	return out
}

// StatesFor returns the canonical keys declared for node, in declaration
// order.
func (g *TransitionGraph) StatesFor(node string) []StateKey {
	var out []StateKey
	for _, t := range g.Transitions {
		if t.FromNode == node {
			out = append(out, t.Key())
		}
	}
	return out
}
