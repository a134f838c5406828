package dag_test

import (
	"strings"
	"testing"

	"github.com/aoisakanana/railway/pkg/dag"
)

func TestExportDOT(t *testing.T) {
	g, err := dag.Parse([]byte(deployWorkflow))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := dag.ExportDOT(g)
	if err != nil {
		t.Fatalf("ExportDOT: %v", err)
	}

	for _, want := range []string{
		`digraph "deploy"`,
		"rankdir=TB",
		`"fetch"`,
		`"checks.security.scan"`,
		`"exit::green::done"`,
		`"exit::red::ssh_handshake"`,
		`label="success::done"`,
		`label="failure::breach"`,
		"->",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}

	// Start node gets the highlight fill, exits their class colors.
	if !strings.Contains(out, `"#4A90D9"`) {
		t.Error("start fill color missing")
	}
	for _, fill := range []string{`"#5CB85C"`, `"#F0AD4E"`, `"#D9534F"`, `"#6C757D"`} {
		if !strings.Contains(out, fill) {
			t.Errorf("fill %s missing", fill)
		}
	}
}

func TestExportDOT_Deterministic(t *testing.T) {
	g, err := dag.Parse([]byte(deployWorkflow))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	first, err := dag.ExportDOT(g)
	if err != nil {
		t.Fatalf("ExportDOT: %v", err)
	}
	second, err := dag.ExportDOT(g)
	if err != nil {
		t.Fatalf("ExportDOT: %v", err)
	}
	if first != second {
		t.Error("two exports of one graph differ")
	}
}

func TestExportDOT_DanglingTargetStillDrawn(t *testing.T) {
	g := &dag.TransitionGraph{
		Entrypoint: "t",
		StartNode:  "a",
		Nodes:      []dag.NodeDefinition{{Name: "a"}},
		Transitions: []dag.StateTransition{
			{FromNode: "a", FromState: "success::done", ToTarget: "missing"},
		},
		Options: dag.NewGraphOptions(),
	}
	out, err := dag.ExportDOT(g)
	if err != nil {
		t.Fatalf("ExportDOT: %v", err)
	}
	if !strings.Contains(out, `"missing"`) {
		t.Errorf("dangling target not drawn:\n%s", out)
	}
}
