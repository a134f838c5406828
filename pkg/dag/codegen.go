package dag

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
	"time"
)

// dagImportPath is the engine package generated artifacts import.
const dagImportPath = "github.com/aoisakanana/railway/pkg/dag"

// Metadata records the provenance of a generated transitions artifact.
type Metadata struct {
	Version       string
	Entrypoint    string
	Description   string
	StartNode     string
	MaxIterations int
	Source        string
	GeneratedAt   string
}

// Generate renders the transitions artifact for a graph: the enumerated
// state constants, the exit constants, the transition table, the metadata
// record and the NextStep accessor, as one compilable source file.
//
// source names the definition the graph came from and appears in the
// header. packageBase is the import path prefix dotted module locators
// resolve under; locators that already contain "/" are used verbatim.
//
// Output is deterministic for a given graph and source except for the
// generation timestamp.
func Generate(g *TransitionGraph, source, packageBase string) (string, error) {
	if !token.IsIdentifier(g.Entrypoint) {
		return "", fmt.Errorf("entrypoint %q cannot name a generated package", g.Entrypoint)
	}

	states, err := stateMembers(g)
	if err != nil {
		return "", err
	}
	exits, err := exitMembers(g, states)
	if err != nil {
		return "", err
	}
	imports, err := importsFor(g, packageBase)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	title := exportedName(g.Entrypoint)

	var b strings.Builder
	writeHeader(&b, g, source, now)
	writeImports(&b, imports)
	writeStates(&b, g, title, states)
	writeExits(&b, title, exits)
	if err := writeTable(&b, g, states, exits, imports); err != nil {
		return "", err
	}
	writeMetadata(&b, g, source, now)
	if err := writeStart(&b, g, imports); err != nil {
		return "", err
	}
	writeNextStep(&b)
	return b.String(), nil
}

// ─── member and import resolution ────────────────────────────────────────────

type stateMember struct {
	key    StateKey
	member string
	target string // ToTarget of the last declaration for this key
}

// stateMembers derives one constant per distinct canonical key, in
// declaration order. Distinct keys that collapse to the same identifier are
// a generation error; a key declared twice keeps its last target, matching
// plain map construction.
func stateMembers(g *TransitionGraph) ([]stateMember, error) {
	var members []stateMember
	index := make(map[StateKey]int)
	byMember := make(map[string]StateKey)
	for _, t := range g.Transitions {
		key := t.Key()
		if i, ok := index[key]; ok {
			members[i].target = t.ToTarget
			continue
		}
		member, err := memberName(string(key))
		if err != nil {
			return nil, fmt.Errorf("state %q: %v", key, err)
		}
		if prev, ok := byMember[member]; ok {
			return nil, fmt.Errorf("states %q and %q both map to constant %s", prev, key, member)
		}
		byMember[member] = key
		index[key] = len(members)
		members = append(members, stateMember{key: key, member: member, target: t.ToTarget})
	}
	return members, nil
}

type exitMember struct {
	def    ExitDefinition
	member string
}

func exitMembers(g *TransitionGraph, states []stateMember) ([]exitMember, error) {
	taken := make(map[string]bool, len(states))
	for _, s := range states {
		taken[s.member] = true
	}
	var members []exitMember
	for _, e := range g.Exits {
		member, err := memberName(e.Name)
		if err != nil {
			return nil, fmt.Errorf("exit %q: %v", e.Name, err)
		}
		if taken[member] {
			return nil, fmt.Errorf("exit %q collides with constant %s", e.Name, member)
		}
		taken[member] = true
		members = append(members, exitMember{def: e, member: member})
	}
	return members, nil
}

// memberName renders the identifier for a generated constant. Dots in node
// names and the "::" separators both become underscores.
func memberName(s string) (string, error) {
	name := strings.ToUpper(strings.NewReplacer(sep, "_", ".", "_", "-", "_").Replace(s))
	if !token.IsIdentifier(name) {
		return "", fmt.Errorf("cannot derive an identifier from %q", s)
	}
	return name, nil
}

type importSpec struct {
	alias string
	path  string
}

// importsFor resolves the module locator of every node the artifact
// references: the start node and each transition target. Unreferenced
// nodes are skipped so the artifact carries no unused imports.
func importsFor(g *TransitionGraph, packageBase string) (map[string]importSpec, error) {
	var order []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	add(g.StartNode)
	for _, t := range g.Transitions {
		if !t.IsExit() {
			add(t.ToTarget)
		}
	}

	specs := make(map[string]importSpec, len(order))
	pathAlias := make(map[string]string)
	// "fmt" and "dag" are taken by the artifact's fixed imports.
	used := map[string]bool{"fmt": true, "dag": true}
	for _, name := range order {
		def, ok := g.Node(name)
		if !ok {
			return nil, fmt.Errorf("artifact references undeclared node %q", name)
		}
		path := modulePath(def.Module, packageBase)
		alias, ok := pathAlias[path]
		if !ok {
			alias = uniqueAlias(path, used)
			pathAlias[path] = alias
		}
		specs[name] = importSpec{alias: alias, path: path}
	}
	return specs, nil
}

// modulePath maps a dotted locator onto an import path.
func modulePath(module, base string) string {
	if strings.Contains(module, "/") {
		return module
	}
	p := strings.ReplaceAll(module, ".", "/")
	if base == "" {
		return p
	}
	return strings.TrimSuffix(base, "/") + "/" + p
}

func uniqueAlias(path string, used map[string]bool) string {
	leaf := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		leaf = path[i+1:]
	}
	alias := strings.NewReplacer("-", "_", ".", "_").Replace(leaf)
	if !token.IsIdentifier(alias) {
		alias = "pkg_" + alias
	}
	if !token.IsIdentifier(alias) {
		alias = "pkg"
	}
	base := alias
	for n := 2; used[alias]; n++ {
		alias = fmt.Sprintf("%s%d", base, n)
	}
	used[alias] = true
	return alias
}

// ─── section rendering ───────────────────────────────────────────────────────

func writeHeader(b *strings.Builder, g *TransitionGraph, source, now string) {
	fmt.Fprintf(b, "// Code generated by railway sync from %s; DO NOT EDIT.\n", source)
	fmt.Fprintf(b, "//\n")
	fmt.Fprintf(b, "// Workflow:  %s (version %s)\n", g.Entrypoint, g.Version)
	if g.Description != "" {
		fmt.Fprintf(b, "// %s\n", strings.ReplaceAll(g.Description, "\n", " "))
	}
	fmt.Fprintf(b, "// Generated: %s\n", now)
	fmt.Fprintf(b, "package %s\n\n", g.Entrypoint)
}

func writeImports(b *strings.Builder, imports map[string]importSpec) {
	fmt.Fprintf(b, "import (\n")
	fmt.Fprintf(b, "\t\"fmt\"\n")
	fmt.Fprintf(b, "\n")
	fmt.Fprintf(b, "\tdag %q\n", dagImportPath)
	paths := make(map[string]string, len(imports))
	var order []string
	for _, spec := range imports {
		if _, ok := paths[spec.path]; !ok {
			paths[spec.path] = spec.alias
			order = append(order, spec.path)
		}
	}
	sort.Strings(order)
	if len(order) > 0 {
		fmt.Fprintf(b, "\n")
	}
	for _, path := range order {
		fmt.Fprintf(b, "\t%s %q\n", paths[path], path)
	}
	fmt.Fprintf(b, ")\n\n")
}

func writeStates(b *strings.Builder, g *TransitionGraph, title string, states []stateMember) {
	typeName := title + "State"
	fmt.Fprintf(b, "// %s enumerates every state %s can resolve to.\n", typeName, g.Entrypoint)
	fmt.Fprintf(b, "type %s = dag.StateKey\n\n", typeName)
	if len(states) == 0 {
		return
	}
	width := 0
	for _, s := range states {
		if len(s.member) > width {
			width = len(s.member)
		}
	}
	fmt.Fprintf(b, "const (\n")
	for _, s := range states {
		fmt.Fprintf(b, "\t%-*s %s = %q\n", width, s.member, typeName, string(s.key))
	}
	fmt.Fprintf(b, ")\n\n")
}

func writeExits(b *strings.Builder, title string, exits []exitMember) {
	if len(exits) == 0 {
		return
	}
	width := 0
	for _, e := range exits {
		if len(e.member) > width {
			width = len(e.member)
		}
	}
	fmt.Fprintf(b, "// %s exit codes.\n", title)
	fmt.Fprintf(b, "const (\n")
	for _, e := range exits {
		fmt.Fprintf(b, "\t%-*s dag.ExitOutcome = %q\n", width, e.member, string(e.def.Ref))
	}
	fmt.Fprintf(b, ")\n\n")
}

func writeTable(b *strings.Builder, g *TransitionGraph, states []stateMember, exits []exitMember, imports map[string]importSpec) error {
	exitByRef := make(map[ExitOutcome]string, len(exits))
	for _, e := range exits {
		exitByRef[e.def.Ref] = e.member
	}
	width := 0
	for _, s := range states {
		if len(s.member) > width {
			width = len(s.member)
		}
	}
	fmt.Fprintf(b, "// TransitionTable maps every declared state to its target.\n")
	fmt.Fprintf(b, "var TransitionTable = dag.Table{\n")
	for _, s := range states {
		value, err := renderTarget(g, s.target, exitByRef, imports)
		if err != nil {
			return fmt.Errorf("state %q: %v", s.key, err)
		}
		fmt.Fprintf(b, "\t%-*s %s,\n", width+1, s.member+":", value)
	}
	fmt.Fprintf(b, "}\n\n")
	return nil
}

func renderTarget(g *TransitionGraph, target string, exitByRef map[ExitOutcome]string, imports map[string]importSpec) (string, error) {
	if IsExitKey(target) {
		ref := ExitOutcome(target)
		if e, ok := g.ResolveExit(target); ok {
			ref = e.Ref
		}
		if member, ok := exitByRef[ref]; ok {
			return member, nil
		}
		return fmt.Sprintf("dag.ExitOutcome(%q)", string(ref)), nil
	}
	spec, ok := imports[target]
	if !ok {
		return "", fmt.Errorf("no import resolved for node %q", target)
	}
	def, _ := g.Node(target)
	return fmt.Sprintf("dag.NewStep(%q, %s.%s)", target, spec.alias, def.Function), nil
}

func writeMetadata(b *strings.Builder, g *TransitionGraph, source, now string) {
	fmt.Fprintf(b, "// GraphMetadata records the provenance of this artifact.\n")
	fmt.Fprintf(b, "var GraphMetadata = dag.Metadata{\n")
	fmt.Fprintf(b, "\tVersion:       %q,\n", g.Version)
	fmt.Fprintf(b, "\tEntrypoint:    %q,\n", g.Entrypoint)
	fmt.Fprintf(b, "\tDescription:   %q,\n", g.Description)
	fmt.Fprintf(b, "\tStartNode:     %q,\n", g.StartNode)
	fmt.Fprintf(b, "\tMaxIterations: %d,\n", g.Options.MaxIterations)
	fmt.Fprintf(b, "\tSource:        %q,\n", source)
	fmt.Fprintf(b, "\tGeneratedAt:   %q,\n", now)
	fmt.Fprintf(b, "}\n\n")
}

func writeStart(b *strings.Builder, g *TransitionGraph, imports map[string]importSpec) error {
	spec, ok := imports[g.StartNode]
	if !ok {
		return fmt.Errorf("no import resolved for start node %q", g.StartNode)
	}
	def, ok := g.Node(g.StartNode)
	if !ok {
		return fmt.Errorf("start node %q is not declared", g.StartNode)
	}
	fmt.Fprintf(b, "// StartStep is the entry node, ready to hand to dag.Run.\n")
	fmt.Fprintf(b, "var StartStep = dag.NewStep(%q, %s.%s)\n\n", g.StartNode, spec.alias, def.Function)
	return nil
}

func writeNextStep(b *strings.Builder) {
	fmt.Fprintf(b, "// NextStep returns the target for state, or an error for states the\n")
	fmt.Fprintf(b, "// table does not declare.\n")
	fmt.Fprintf(b, "func NextStep(state dag.StateKey) (dag.Target, error) {\n")
	fmt.Fprintf(b, "\ttarget, ok := TransitionTable[state]\n")
	fmt.Fprintf(b, "\tif !ok {\n")
	fmt.Fprintf(b, "\t\treturn nil, fmt.Errorf(\"undefined state: %%s\", state)\n")
	fmt.Fprintf(b, "\t}\n")
	fmt.Fprintf(b, "\treturn target, nil\n")
	fmt.Fprintf(b, "}\n")
}
