package dag

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strings"
)

// SkeletonSpec describes one stub step file to scaffold.
type SkeletonSpec struct {
	NodeName   string
	Module     string // dotted locator, decides the file location
	Function   string
	Entrypoint string
}

// SkeletonSpecs lists the stubs a graph needs, one per declared node, in
// declaration order. Exits need no implementation and have no spec.
func SkeletonSpecs(g *TransitionGraph) []SkeletonSpec {
	specs := make([]SkeletonSpec, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		specs = append(specs, SkeletonSpec{
			NodeName:   n.Name,
			Module:     n.Module,
			Function:   n.Function,
			Entrypoint: g.Entrypoint,
		})
	}
	return specs
}

// SkeletonPath returns the file path for a spec under root. The module
// locator becomes the package directory and the step lives in "<leaf>.go",
// mirroring how generated imports resolve the locator.
func SkeletonPath(spec SkeletonSpec, root string) string {
	rel := strings.ReplaceAll(spec.Module, ".", "/")
	return filepath.Join(root, rel, leafOf(spec.Module)+".go")
}

// RenderSkeleton renders a compilable stub implementation for a step. The
// stub reports success so a freshly scaffolded workflow runs end to end
// before any step is filled in.
func RenderSkeleton(spec SkeletonSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", packageIdent(leafOf(spec.Module)))
	fmt.Fprintf(&b, "import dag %q\n\n", dagImportPath)
	fmt.Fprintf(&b, "// %s implements the %q step of %s.\n", spec.Function, spec.NodeName, spec.Entrypoint)
	fmt.Fprintf(&b, "func %s(payload any) (any, dag.Status, error) {\n", spec.Function)
	fmt.Fprintf(&b, "\t// TODO: implement %s\n", spec.NodeName)
	fmt.Fprintf(&b, "\treturn payload, dag.Success(\"done\"), nil\n")
	fmt.Fprintf(&b, "}\n")
	return b.String()
}

func packageIdent(s string) string {
	id := strings.NewReplacer("-", "_", ".", "_").Replace(s)
	if !token.IsIdentifier(id) {
		id = "node_" + id
	}
	return id
}
