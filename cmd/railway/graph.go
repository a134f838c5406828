package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aoisakanana/railway/pkg/dag"
)

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <workflow.yml>",
		Short: "Print a human-readable summary of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := dag.LoadFile(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				out, err := dag.ExportDOT(g)
				if err != nil {
					return err
				}
				fmt.Print(out)
			case "text", "":
				fmt.Print(renderText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// renderText produces the human-readable text summary. The start node is
// marked with an asterisk and transitions print in declaration order.
func renderText(g *dag.TransitionGraph) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Workflow: %s  (%d nodes, %d exits, %d transitions)\n",
		g.Entrypoint, len(g.Nodes), len(g.Exits), len(g.Transitions))
	if g.Description != "" {
		fmt.Fprintf(&sb, "%s\n", truncate(g.Description, 100))
	}

	maxName := 4 // minimum "node"
	for _, n := range g.Nodes {
		if len(n.Name) > maxName {
			maxName = len(n.Name)
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for _, n := range g.Nodes {
		marker := " "
		if n.Name == g.StartNode {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %-*s  %s.%s\n", marker, maxName, n.Name, n.Module, n.Function)
	}

	if len(g.Exits) > 0 {
		maxExit := 4
		for _, e := range g.Exits {
			if len(e.Name) > maxExit {
				maxExit = len(e.Name)
			}
		}
		fmt.Fprintf(&sb, "\nExits:\n")
		for _, e := range g.Exits {
			fmt.Fprintf(&sb, "  %-*s  %s  (code %d)\n", maxExit, e.Name, e.Ref, e.Code)
		}
	}

	fmt.Fprintf(&sb, "\nTransitions:\n")
	maxKey := 4
	for _, t := range g.Transitions {
		if len(t.Key()) > maxKey {
			maxKey = len(t.Key())
		}
	}
	for _, t := range g.Transitions {
		to := t.ToTarget
		if t.IsExit() {
			if e, ok := g.ResolveExit(t.ToTarget); ok {
				to = string(e.Ref)
			}
		}
		fmt.Fprintf(&sb, "  %-*s  →  %s\n", maxKey, t.Key(), to)
	}

	return sb.String()
}
