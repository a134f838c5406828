package dag

import (
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Keys that mark a node mapping as a leaf declaration rather than a nested
// group.
var nodeLeafKeys = map[string]bool{
	"module":      true,
	"function":    true,
	"description": true,
}

// exitCategories maps the vocabulary of the reserved exit namespace to
// colors and process exit codes. Literal colors are accepted alongside the
// category names.
var exitCategories = map[string]struct {
	color string
	code  int
}{
	"success":   {ColorGreen, 0},
	"warning":   {ColorYellow, 0},
	"failure":   {ColorRed, 1},
	ColorGreen:  {ColorGreen, 0},
	ColorYellow: {ColorYellow, 0},
	ColorRed:    {ColorRed, 1},
}

// Parse decodes a workflow definition into a TransitionGraph. It is a pure
// function: same input, structurally identical graph, no file access. It
// rejects structural defects, an undeclared start node included; the
// remaining graph-level checks are Validate's job.
func Parse(src []byte) (*TransitionGraph, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, parseErrf("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, parseErrf("top level must be a mapping, got %s", nodeKindName(root))
	}

	fields := mappingFields(root)
	for _, key := range []string{"version", "entrypoint", "nodes", "start", "transitions"} {
		if fields[key] == nil {
			return nil, parseErrf("missing required key %q", key)
		}
	}

	g := &TransitionGraph{
		Version:    scalarValue(fields["version"]),
		Entrypoint: scalarValue(fields["entrypoint"]),
		StartNode:  scalarValue(fields["start"]),
		Options:    NewGraphOptions(),
	}
	if d := fields["description"]; d != nil {
		g.Description = scalarValue(d)
	}

	nodes, exits, err := parseNodes(fields["nodes"], g.Entrypoint)
	if err != nil {
		return nil, err
	}
	g.Nodes = nodes
	g.Exits = exits

	if _, ok := g.Node(g.StartNode); !ok {
		return nil, parseErrf("start node %q is not declared in nodes", g.StartNode)
	}

	if e := fields["exits"]; e != nil {
		declared, err := parseExits(e)
		if err != nil {
			return nil, err
		}
		g.Exits = append(g.Exits, declared...)
	}

	if o := fields["options"]; o != nil {
		if err := decodeOptions(o, &g.Options); err != nil {
			return nil, err
		}
	}

	transitions, err := parseTransitions(fields["transitions"], g)
	if err != nil {
		return nil, err
	}
	g.Transitions = transitions
	return g, nil
}

// parseNodes flattens the nested node tree into definitions. Entries under
// the reserved exit namespace become ExitDefinitions instead.
func parseNodes(root *yaml.Node, entrypoint string) ([]NodeDefinition, []ExitDefinition, error) {
	if root.Kind != yaml.MappingNode {
		return nil, nil, parseErrf("nodes must be a mapping, got %s", nodeKindName(root))
	}
	var nodes []NodeDefinition
	var exits []ExitDefinition
	err := walkNodeTree(root, "", func(name string, body *yaml.Node) error {
		if strings.HasPrefix(name, exitHead+".") {
			def, err := exitFromNodePath(name, body)
			if err != nil {
				return err
			}
			exits = append(exits, def)
			return nil
		}
		def, err := nodeFromEntry(name, body, entrypoint)
		if err != nil {
			return err
		}
		nodes = append(nodes, def)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, exits, nil
}

// walkNodeTree visits the nested node mapping depth-first in declaration
// order, calling leaf with each entry's full dotted name. A mapping counts
// as a leaf when it is empty or carries a reserved node key; any other
// mapping is a group and its children are visited with the dotted prefix.
func walkNodeTree(m *yaml.Node, prefix string, leaf func(name string, body *yaml.Node) error) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		body := m.Content[i+1]
		name := m.Content[i].Value
		if prefix != "" {
			name = prefix + "." + name
		}
		if isGroupNode(body) {
			if err := walkNodeTree(body, name, leaf); err != nil {
				return err
			}
			continue
		}
		if err := leaf(name, body); err != nil {
			return err
		}
	}
	return nil
}

func isGroupNode(body *yaml.Node) bool {
	if body.Kind != yaml.MappingNode || len(body.Content) == 0 {
		return false
	}
	for i := 0; i < len(body.Content); i += 2 {
		if nodeLeafKeys[body.Content[i].Value] {
			return false
		}
	}
	return true
}

func nodeFromEntry(name string, body *yaml.Node, entrypoint string) (NodeDefinition, error) {
	if name == exitHead {
		return NodeDefinition{}, parseErrf("node name %q is reserved for exits", exitHead)
	}
	def := NodeDefinition{Name: name}
	switch {
	case body.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(body.Content); i += 2 {
			k, v := body.Content[i].Value, body.Content[i+1]
			switch k {
			case "module":
				def.Module = scalarValue(v)
			case "function":
				def.Function = scalarValue(v)
			case "description":
				def.Description = scalarValue(v)
			default:
				return NodeDefinition{}, parseErrf("node %q has unknown key %q", name, k)
			}
		}
	case isNullNode(body):
		// bare declaration, locator filled by convention
	default:
		return NodeDefinition{}, parseErrf("node %q must be a mapping, got %s", name, nodeKindName(body))
	}
	if def.Module == "" {
		def.Module = "nodes." + entrypoint + "." + name
	}
	if def.Function == "" {
		def.Function = exportedName(leafOf(name))
	}
	return def, nil
}

// exitFromNodePath converts a declaration under the reserved exit namespace
// ("exit.success.done") into its ExitDefinition: the category selects color
// and process exit code, the remaining path is the exit's canonical name.
func exitFromNodePath(name string, body *yaml.Node) (ExitDefinition, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return ExitDefinition{}, parseErrf("exit node %q must follow exit.<category>.<name>", name)
	}
	cat, ok := exitCategories[parts[1]]
	if !ok {
		return ExitDefinition{}, parseErrf("exit node %q has unknown category %q", name, parts[1])
	}
	def := ExitDefinition{
		Name:  strings.Join(parts[1:], "_"),
		Code:  cat.code,
		Color: cat.color,
		Ref:   MakeExit(cat.color, strings.Join(parts[2:], "_")),
	}
	if body.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(body.Content); i += 2 {
			k, v := body.Content[i].Value, body.Content[i+1]
			switch k {
			case "description":
				def.Description = scalarValue(v)
			case "module", "function":
				// exits carry no implementation; locator keys are ignored
			default:
				return ExitDefinition{}, parseErrf("exit node %q has unknown key %q", name, k)
			}
		}
	}
	return def, nil
}

// parseExits reads the declared exits section: name -> {code, description}.
func parseExits(root *yaml.Node) ([]ExitDefinition, error) {
	if root.Kind != yaml.MappingNode {
		return nil, parseErrf("exits must be a mapping, got %s", nodeKindName(root))
	}
	var out []ExitDefinition
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i].Value, root.Content[i+1]
		var raw struct {
			Code        int    `yaml:"code"`
			Description string `yaml:"description"`
		}
		if !isNullNode(body) {
			if err := body.Decode(&raw); err != nil {
				return nil, parseErrf("exit %q: %v", name, err)
			}
		}
		color := colorForCode(raw.Code)
		out = append(out, ExitDefinition{
			Name:        name,
			Code:        raw.Code,
			Color:       color,
			Description: raw.Description,
			Ref:         MakeExit(color, name),
		})
	}
	return out, nil
}

func colorForCode(code int) string {
	if code == 0 {
		return ColorGreen
	}
	return ColorRed
}

// parseTransitions flattens the transition mapping (node -> state -> target)
// in declaration order. Exit targets are normalized to canonical markers.
func parseTransitions(root *yaml.Node, g *TransitionGraph) ([]StateTransition, error) {
	if root.Kind != yaml.MappingNode {
		return nil, parseErrf("transitions must be a mapping, got %s", nodeKindName(root))
	}
	var out []StateTransition
	for i := 0; i+1 < len(root.Content); i += 2 {
		from, body := root.Content[i].Value, root.Content[i+1]
		if IsExitKey(from) {
			return nil, parseErrf("exit %q cannot be a transition source", from)
		}
		if body.Kind != yaml.MappingNode {
			return nil, parseErrf("transitions for node %q must be a mapping, got %s", from, nodeKindName(body))
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			state, targetNode := body.Content[j].Value, body.Content[j+1]
			if len(strings.Split(state, sep)) != 2 {
				return nil, parseErrf("transition state %q for node %q: want \"<status>::<detail>\"", state, from)
			}
			if targetNode.Kind != yaml.ScalarNode {
				return nil, parseErrf("transition %s%s%s: target must be a scalar", from, sep, state)
			}
			target, err := normalizeTarget(targetNode.Value, g)
			if err != nil {
				return nil, err
			}
			out = append(out, StateTransition{FromNode: from, FromState: state, ToTarget: target})
		}
	}
	return out, nil
}

// normalizeTarget canonicalizes a transition target. Node names pass
// through. Dotted exit spellings become "::" markers with their category
// mapped to a color. The short "exit::<name>" form resolves against the
// declared exits when possible and is otherwise kept verbatim so the
// validator can flag it.
func normalizeTarget(target string, g *TransitionGraph) (string, error) {
	if !IsExitKey(target) {
		return target, nil
	}
	if target == exitHead {
		return "", parseErrf("transition target %q cannot be decomposed", target)
	}
	if strings.Contains(target, sep) {
		parts := strings.Split(target, sep)
		switch len(parts) {
		case 2:
			if e, ok := g.Exit(parts[1]); ok {
				return string(e.Ref), nil
			}
			return target, nil
		case 3:
			cat, ok := exitCategories[parts[1]]
			if !ok {
				return "", parseErrf("transition target %q has unknown exit color %q", target, parts[1])
			}
			return string(MakeExit(cat.color, parts[2])), nil
		}
		return "", parseErrf("transition target %q cannot be decomposed", target)
	}
	parts := strings.Split(target, ".")
	switch {
	case len(parts) == 2:
		if e, ok := g.Exit(parts[1]); ok {
			return string(e.Ref), nil
		}
		return exitHead + sep + parts[1], nil
	case len(parts) >= 3:
		cat, ok := exitCategories[parts[1]]
		if !ok {
			return "", parseErrf("transition target %q has unknown exit category %q", target, parts[1])
		}
		return string(MakeExit(cat.color, strings.Join(parts[2:], "_"))), nil
	}
	return "", parseErrf("transition target %q cannot be decomposed", target)
}

// decodeOptions overlays declared option values on the defaults. Absent
// keys keep their defaults; explicit false values survive.
func decodeOptions(n *yaml.Node, opts *GraphOptions) error {
	var raw struct {
		MaxIterations       *int  `yaml:"max_iterations"`
		EnableLoopDetection *bool `yaml:"enable_loop_detection"`
		StrictStateCheck    *bool `yaml:"strict_state_check"`
	}
	if err := n.Decode(&raw); err != nil {
		return parseErrf("options: %v", err)
	}
	if raw.MaxIterations != nil {
		opts.MaxIterations = *raw.MaxIterations
	}
	if raw.EnableLoopDetection != nil {
		opts.EnableLoopDetection = *raw.EnableLoopDetection
	}
	if raw.StrictStateCheck != nil {
		opts.StrictStateCheck = *raw.StrictStateCheck
	}
	return nil
}

// ─── yaml.Node helpers ───────────────────────────────────────────────────────

func mappingFields(m *yaml.Node) map[string]*yaml.Node {
	fields := make(map[string]*yaml.Node, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		fields[m.Content[i].Value] = m.Content[i+1]
	}
	return fields
}

// scalarValue returns the literal text of a scalar node, so "version: 1.0"
// keeps the spelling "1.0". Non-scalars return "".
func scalarValue(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func isNullNode(n *yaml.Node) bool {
	if n == nil || n.Kind == 0 {
		return true
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return true
	}
	return n.Kind == yaml.MappingNode && len(n.Content) == 0
}

func nodeKindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}

func leafOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// exportedName converts a snake_case leaf name to the exported identifier
// used by convention: "check_time" becomes "CheckTime".
func exportedName(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '.' || r == '-'
	}) {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
