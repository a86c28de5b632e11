// Package sheetdef loads stylesheet definitions from YAML or TOML documents
// and builds style.StyleSheet values from them.
package sheetdef

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition describes one stylesheet.
type Definition struct {
	Name    string            `yaml:"name"`
	Vars    map[string]string `yaml:"vars"`
	Include []string          `yaml:"include"`
	Rules   []RuleDef         `yaml:"rules"`
	Classes []ClassDef        `yaml:"classes"`
}

type RuleDef struct {
	Selectors  []string      `yaml:"selectors"`
	Set        Decls         `yaml:"set"`
	Colors     []ColorDef    `yaml:"colors"`
	Text       *string       `yaml:"text"`
	Transition *ShorthandDef `yaml:"transition"`
	Transform  *ShorthandDef `yaml:"transform"`
	Filter     *ShorthandDef `yaml:"filter"`
	Animation  *AnimationDef `yaml:"animation"`
	Flex       Decls         `yaml:"flex"`
	FlexItem   Decls         `yaml:"flexItem"`
	Grid       Decls         `yaml:"grid"`
	Hover      Decls         `yaml:"hover"`
	Active     Decls         `yaml:"active"`
	Focus      Decls         `yaml:"focus"`
	Pseudo     []PseudoDef   `yaml:"pseudo"`
	Nested     []RuleDef     `yaml:"nested"`
	Media      []MediaDef    `yaml:"media"`
	When       *WhenDef      `yaml:"when"`
}

// MediaDef is a rule scoped under a media query. It takes its selectors from
// the enclosing rule.
type MediaDef struct {
	Query   []string `yaml:"query"`
	RuleDef `yaml:",inline"`
}

type PseudoDef struct {
	Name string `yaml:"name"`
	Set  Decls  `yaml:"set"`
}

// ColorDef assigns a color to a property. When Ops are present Value must be
// parseable (hex, rgb() or a color name), the operations are applied in
// order and the result is clamped.
type ColorDef struct {
	Property string    `yaml:"property"`
	Value    string    `yaml:"value"`
	Ops      []ColorOp `yaml:"ops"`
}

type ColorOp struct {
	Op string  `yaml:"op"`
	By float64 `yaml:"by"`
}

// WhenDef includes the rule only when the variable Var equals Equals. Not
// inverts the test.
type WhenDef struct {
	Var    string `yaml:"var"`
	Equals string `yaml:"equals"`
	Not    bool   `yaml:"not"`
}

type ClassDef struct {
	Prefix string `yaml:"prefix"`
	Count  int    `yaml:"count"`
	Set    Decls  `yaml:"set"`
}

// Decl is a property with either a scalar value or a nested declaration
// list (keyframe steps).
type Decl struct {
	Key    string
	Value  string
	Nested Decls
}

// Decls keeps declarations in document order.
type Decls []Decl

func (d *Decls) UnmarshalYAML(n *yaml.Node) error {
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: declarations must be a mapping", n.Line)
	}
	out := make(Decls, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], resolveAlias(n.Content[i+1])
		switch value.Kind {
		case yaml.ScalarNode:
			if value.Tag == "!!null" {
				return fmt.Errorf("line %d: %s: value is missing", value.Line, key.Value)
			}
			out = append(out, Decl{Key: key.Value, Value: value.Value})
		case yaml.MappingNode:
			var nested Decls
			if err := nested.UnmarshalYAML(value); err != nil {
				return err
			}
			out = append(out, Decl{Key: key.Value, Nested: nested})
		default:
			return fmt.Errorf("line %d: %s: value must be a scalar or a mapping", value.Line, key.Value)
		}
	}
	*d = out
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// ShorthandDef is either raw CSS text or a mapping translated into the
// property's shorthand syntax.
type ShorthandDef struct {
	Raw   string
	Parts Decls
}

func (s *ShorthandDef) UnmarshalYAML(n *yaml.Node) error {
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode {
		s.Raw = n.Value
		return nil
	}
	return s.Parts.UnmarshalYAML(n)
}

// AnimationDef is either raw animation text or a structured animation with
// optional keyframes.
type AnimationDef struct {
	Raw            string `yaml:"-"`
	Name           string `yaml:"name"`
	Duration       string `yaml:"duration"`
	TimingFunction string `yaml:"timingFunction"`
	Delay          string `yaml:"delay"`
	IterationCount string `yaml:"iterationCount"`
	Direction      string `yaml:"direction"`
	FillMode       string `yaml:"fillMode"`
	PlayState      string `yaml:"playState"`
	Keyframes      Decls  `yaml:"keyframes"`
}

func (a *AnimationDef) UnmarshalYAML(n *yaml.Node) error {
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode {
		*a = AnimationDef{Raw: n.Value}
		return nil
	}
	type plain AnimationDef
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*a = AnimationDef(p)
	return nil
}
