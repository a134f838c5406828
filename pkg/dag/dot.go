package dag

import (
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
	"github.com/juju/errors"
)

// Fill colors for rendered nodes. Exits share the traffic-light palette of
// their color class, ordinary steps are neutral gray and the start node is
// highlighted blue.
const (
	startFill      = "#4A90D9"
	stepFill       = "#6C757D"
	exitGreenFill  = "#5CB85C"
	exitYellowFill = "#F0AD4E"
	exitRedFill    = "#D9534F"
)

// ExportDOT renders the graph in Graphviz DOT form: one ellipse per step,
// one box per exit and one labeled edge per transition. Output order
// follows declaration order, so identical input yields identical output.
func ExportDOT(g *TransitionGraph) (string, error) {
	gv := gographviz.NewGraph()
	root := quoteID(g.Entrypoint)
	if err := gv.SetName(root); err != nil {
		return "", errors.Trace(err)
	}
	if err := gv.SetDir(true); err != nil {
		return "", errors.Trace(err)
	}
	if err := gv.AddAttr(root, "rankdir", "TB"); err != nil {
		return "", errors.Trace(err)
	}

	added := make(map[string]bool)
	for _, n := range g.Nodes {
		fill := stepFill
		if n.Name == g.StartNode {
			fill = startFill
		}
		if err := gv.AddNode(root, quoteID(n.Name), nodeAttrs("ellipse", fill)); err != nil {
			return "", errors.Trace(err)
		}
		added[n.Name] = true
	}
	for _, e := range g.Exits {
		id := string(e.Ref)
		if err := gv.AddNode(root, quoteID(id), nodeAttrs("box", exitFill(e.Color))); err != nil {
			return "", errors.Trace(err)
		}
		added[id] = true
	}

	for _, t := range g.Transitions {
		to := t.ToTarget
		if t.IsExit() {
			if e, ok := g.ResolveExit(t.ToTarget); ok {
				to = string(e.Ref)
			}
		}
		// Dangling targets still get a node so the defect is visible in
		// the drawing rather than breaking it.
		if !added[to] {
			if err := gv.AddNode(root, quoteID(to), nodeAttrs("box", stepFill)); err != nil {
				return "", errors.Trace(err)
			}
			added[to] = true
		}
		attrs := map[string]string{"label": quoteID(t.FromState)}
		if err := gv.AddEdge(quoteID(t.FromNode), quoteID(to), true, attrs); err != nil {
			return "", errors.Trace(err)
		}
	}
	return gv.String(), nil
}

func nodeAttrs(shape, fill string) map[string]string {
	return map[string]string{
		"shape":     shape,
		"style":     "filled",
		"fillcolor": quoteID(fill),
		"fontcolor": quoteID("white"),
	}
}

func exitFill(color string) string {
	switch color {
	case ColorYellow:
		return exitYellowFill
	case ColorRed:
		return exitRedFill
	default:
		return exitGreenFill
	}
}

// quoteID wraps a DOT identifier in quotes. Names carry dots and colons,
// which are not legal in bare DOT IDs.
func quoteID(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
