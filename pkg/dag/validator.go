package dag

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding describes one defect discovered during validation.
type Finding struct {
	Severity Severity
	Code     string // stable identifier, e.g. "E003"
	Subject  string // offending node, exit or state
	Message  string
}

func (f Finding) String() string { return fmt.Sprintf("[%s] %s", f.Code, f.Message) }

// ValidationResult aggregates every finding of a validation pass. The
// validator itself never fails; callers decide what is fatal.
type ValidationResult struct {
	Findings []Finding
}

// Valid reports whether no error-severity findings were recorded.
func (r ValidationResult) Valid() bool { return len(r.Errors()) == 0 }

// Errors returns the error-severity findings.
func (r ValidationResult) Errors() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns the warning-severity findings.
func (r ValidationResult) Warnings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}

// Err returns nil for a usable graph, or a single error joining every
// error-severity finding.
func (r ValidationResult) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, f := range errs {
		msgs[i] = f.String()
	}
	return fmt.Errorf("graph validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

func (r *ValidationResult) errorf(code, subject, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{SeverityError, code, subject, fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(code, subject, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{SeverityWarning, code, subject, fmt.Sprintf(format, args...)})
}

// Validate checks a graph for structural defects. Every check runs and all
// findings are collected; nothing short-circuits on the first problem.
func Validate(g *TransitionGraph) ValidationResult {
	var r ValidationResult

	nodeNames := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeNames[n.Name] = true
	}

	// E001: the start node must be declared.
	if !nodeNames[g.StartNode] {
		r.errorf("E001", g.StartNode, "start node %q is not declared", g.StartNode)
	}

	// E002/E003: every transition endpoint must be declared.
	for _, t := range g.Transitions {
		if !nodeNames[t.FromNode] {
			r.errorf("E003", t.FromNode,
				"transition source %q is not declared (state %q)", t.FromNode, t.FromState)
		}
		if t.IsExit() {
			if _, ok := g.ResolveExit(t.ToTarget); !ok {
				r.errorf("E002", t.ExitName(),
					"transition targets undeclared exit %q (node %q, state %q)",
					t.ExitName(), t.FromNode, t.FromState)
			}
			continue
		}
		if !nodeNames[t.ToTarget] {
			r.errorf("E003", t.ToTarget,
				"transition targets undeclared node %q (node %q, state %q)",
				t.ToTarget, t.FromNode, t.FromState)
		}
	}

	// E004: every node needs at least one outgoing transition, or it
	// dead-ends at run time without reaching a defined exit.
	outgoing := make(map[string]int)
	for _, t := range g.Transitions {
		outgoing[t.FromNode]++
	}
	for _, n := range g.Nodes {
		if outgoing[n.Name] == 0 {
			r.errorf("E004", n.Name, "node %q has no outgoing transitions (dead end)", n.Name)
		}
	}

	// E005: no state may be declared twice for one node.
	seen := make(map[StateKey]bool)
	for _, t := range g.Transitions {
		key := t.Key()
		if seen[key] {
			r.errorf("E005", string(key),
				"node %q declares state %q more than once", t.FromNode, t.FromState)
		}
		seen[key] = true
	}

	reachable := reachableFrom(g)

	// W001: unreachable nodes are suspicious but not fatal.
	for _, n := range g.Nodes {
		if !reachable[n.Name] {
			r.warnf("W001", n.Name, "node %q is unreachable from start %q", n.Name, g.StartNode)
		}
	}

	// E006: a reachable node with no path to any exit loops forever.
	if g.Options.EnableLoopDetection {
		if stuck := stuckNodes(g, reachable); len(stuck) > 0 {
			sort.Strings(stuck)
			joined := strings.Join(stuck, ", ")
			r.errorf("E006", joined, "no exit reachable from: %s (possible infinite loop)", joined)
		}
	}

	// W002: nodes never used as a target are likely dead code.
	targeted := make(map[string]bool)
	for _, t := range g.Transitions {
		if !t.IsExit() {
			targeted[t.ToTarget] = true
		}
	}
	for _, n := range g.Nodes {
		if n.Name != g.StartNode && !targeted[n.Name] {
			r.warnf("W002", n.Name, "node %q is never used as a transition target", n.Name)
		}
	}

	// W003: fully disconnected nodes.
	for _, n := range g.Nodes {
		if outgoing[n.Name] == 0 && !targeted[n.Name] {
			r.warnf("W003", n.Name, "node %q has no transitions at all (orphan)", n.Name)
		}
	}

	return r
}

// reachableFrom returns the set of node names reachable from the start by
// following non-exit transitions forward. Cycles are fine; this is a
// closure, not an acyclicity check.
func reachableFrom(g *TransitionGraph) map[string]bool {
	visited := map[string]bool{}
	queue := []string{g.StartNode}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, t := range g.TransitionsFor(cur) {
			if !t.IsExit() && !visited[t.ToTarget] {
				queue = append(queue, t.ToTarget)
			}
		}
	}
	return visited
}

// stuckNodes returns the reachable nodes that cannot reach any exit, found
// by walking reversed edges from every exit transition source.
func stuckNodes(g *TransitionGraph, reachable map[string]bool) []string {
	canExit := map[string]bool{}
	var queue []string
	for _, t := range g.Transitions {
		if t.IsExit() && !canExit[t.FromNode] {
			canExit[t.FromNode] = true
			queue = append(queue, t.FromNode)
		}
	}
	reverse := map[string][]string{}
	for _, t := range g.Transitions {
		if !t.IsExit() {
			reverse[t.ToTarget] = append(reverse[t.ToTarget], t.FromNode)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, src := range reverse[cur] {
			if !canExit[src] {
				canExit[src] = true
				queue = append(queue, src)
			}
		}
	}
	var stuck []string
	for _, n := range g.Nodes {
		if reachable[n.Name] && !canExit[n.Name] {
			stuck = append(stuck, n.Name)
		}
	}
	return stuck
}

// ─── name validation ─────────────────────────────────────────────────────────

// NameCheck is the outcome of validating a user-supplied name against what
// the generator can turn into identifiers.
type NameCheck struct {
	Valid      bool
	Normalized string
	Problem    string
	Suggestion string
}

// CheckEntryName validates an entrypoint name: a single plain identifier
// with no dots or slashes, and not a language keyword.
func CheckEntryName(name string) NameCheck {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return NameCheck{Problem: "entrypoint name is empty", Suggestion: suggestName(name)}
	case strings.Contains(name, "/"):
		return NameCheck{
			Problem:    fmt.Sprintf("entrypoint name %q must not contain %q", name, "/"),
			Suggestion: suggestName(name),
		}
	case strings.Contains(name, "."):
		return NameCheck{
			Problem:    fmt.Sprintf("entrypoint name %q must not contain %q", name, "."),
			Suggestion: strings.ReplaceAll(name, ".", "_"),
		}
	case !token.IsIdentifier(name):
		return NameCheck{
			Problem:    fmt.Sprintf("entrypoint name %q is not a valid identifier", name),
			Suggestion: suggestName(name),
		}
	}
	return NameCheck{Valid: true, Normalized: name}
}

// CheckNodeName validates a dotted node name: each segment must be a plain
// identifier. Slashes are rejected with the dotted spelling suggested.
func CheckNodeName(name string) NameCheck {
	name = strings.TrimSpace(name)
	if name == "" {
		return NameCheck{Problem: "node name is empty", Suggestion: suggestName(name)}
	}
	if strings.Contains(name, "/") {
		return NameCheck{
			Problem:    fmt.Sprintf("node name %q must not contain %q (use dots for hierarchy)", name, "/"),
			Suggestion: strings.ReplaceAll(name, "/", "."),
		}
	}
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if token.IsIdentifier(seg) {
			continue
		}
		suggested := make([]string, len(segments))
		for i, s := range segments {
			if token.IsIdentifier(s) {
				suggested[i] = s
			} else {
				suggested[i] = suggestName(s)
			}
		}
		return NameCheck{
			Problem:    fmt.Sprintf("node name segment %q is not a valid identifier", seg),
			Suggestion: strings.Join(suggested, "."),
		}
	}
	return NameCheck{Valid: true, Normalized: name}
}

// suggestName proposes a usable replacement for an invalid name.
func suggestName(name string) string {
	if name == "" {
		return "unnamed"
	}
	if token.IsKeyword(name) {
		return name + "_"
	}
	s := strings.Map(func(r rune) rune {
		switch r {
		case '-', '/', ' ':
			return '_'
		}
		return r
	}, name)
	if allDigits(s) {
		return "exit_" + s
	}
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		return "n_" + s
	}
	return s
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
