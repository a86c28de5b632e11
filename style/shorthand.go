package style

import (
	"fmt"
	"strings"
)

// Shorthand is the value accepted by SetTransition, SetAnimation,
// SetTransform and SetFilter: either Raw text or one of the structured
// forms (Transitions, Functions, Animation).
type Shorthand interface {
	shorthand(property string) (string, error)
}

// Raw is a CSS value stored verbatim.
type Raw string

func (v Raw) shorthand(property string) (string, error) {
	if strings.TrimSpace(string(v)) == "" {
		return "", fmt.Errorf("%w: %s: empty value", ErrInvalidProperty, property)
	}
	return string(v), nil
}

// Transitions maps animated properties to their timing, e.g.
// {backgroundColor: "0.5s"} becomes "background-color 0.5s".
type Transitions Props

func (t Transitions) shorthand(property string) (string, error) {
	if property != "transition" {
		return "", fmt.Errorf("%w: %s does not accept transitions", ErrInvalidProperty, property)
	}
	if len(t) == 0 {
		return "", fmt.Errorf("%w: %s: no transitions", ErrInvalidProperty, property)
	}
	parts := make([]string, 0, len(t))
	for _, p := range t {
		timing, ok := toScalar(p.Value)
		if !ok || strings.TrimSpace(p.Key) == "" {
			return "", fmt.Errorf("%w: %s: %s: %#v", ErrInvalidProperty, property, p.Key, p.Value)
		}
		parts = append(parts, strings.TrimSpace(CamelToKebab(p.Key)+" "+timing))
	}
	return strings.Join(parts, ", "), nil
}

// Functions is a list of CSS functions with their arguments, used for
// transform and filter: {rotate: "45deg", scale: "1.5"} becomes
// "rotate(45deg) scale(1.5)". Function names are kept as given.
type Functions Props

func (f Functions) shorthand(property string) (string, error) {
	if property != "transform" && property != "filter" {
		return "", fmt.Errorf("%w: %s does not accept functions", ErrInvalidProperty, property)
	}
	if len(f) == 0 {
		return "", fmt.Errorf("%w: %s: no functions", ErrInvalidProperty, property)
	}
	parts := make([]string, 0, len(f))
	for _, p := range f {
		arg, ok := toScalar(p.Value)
		if !ok || strings.TrimSpace(p.Key) == "" {
			return "", fmt.Errorf("%w: %s: %s: %#v", ErrInvalidProperty, property, p.Key, p.Value)
		}
		parts = append(parts, p.Key+"("+arg+")")
	}
	return strings.Join(parts, " "), nil
}

// Keyframes maps step selectors ("0%", "from") to declarations.
type Keyframes []Keyframe

type Keyframe struct {
	Step  string
	Props Props
}

// Animation describes the animation shorthand. When Keyframes is not empty
// an "@keyframes <Name>" block is emitted together with the rule.
type Animation struct {
	Name           string
	Duration       string
	TimingFunction string
	Delay          string
	IterationCount string
	Direction      string
	FillMode       string
	PlayState      string
	Keyframes      Keyframes
}

func (a Animation) shorthand(property string) (string, error) {
	if property != "animation" {
		return "", fmt.Errorf("%w: %s does not accept animation", ErrInvalidProperty, property)
	}
	if strings.TrimSpace(a.Name) == "" {
		return "", fmt.Errorf("%w: %s: animation name is required", ErrInvalidProperty, property)
	}
	var parts []string
	for _, s := range []string{a.Name, a.Duration, a.TimingFunction, a.Delay, a.IterationCount, a.Direction, a.FillMode, a.PlayState} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

func (a Animation) steps() (*PropertyMap, error) {
	steps := NewPropertyMap()
	for _, kf := range a.Keyframes {
		if strings.TrimSpace(kf.Step) == "" {
			return nil, fmt.Errorf("%w: @keyframes %s: empty step", ErrInvalidProperty, a.Name)
		}
		if err := steps.Set(kf.Step, kf.Props); err != nil {
			return nil, fmt.Errorf("@keyframes %s: %w", a.Name, err)
		}
	}
	return steps, nil
}

// allow-lists for structured layout helpers: parameter -> css property
var (
	flexLayoutKeys = map[string]string{
		"display":      "display",
		"direction":    "flex-direction",
		"justify":      "justify-content",
		"align":        "align-items",
		"wrap":         "flex-wrap",
		"alignContent": "align-content",
		"flexGrow":     "flex-grow",
		"flexShrink":   "flex-shrink",
		"flexBasis":    "flex-basis",
		"order":        "order",
		"gap":          "gap",
	}
	flexItemKeys = map[string]string{
		"grow":      "flex-grow",
		"shrink":    "flex-shrink",
		"basis":     "flex-basis",
		"flex":      "flex",
		"order":     "order",
		"alignSelf": "align-self",
	}
	gridKeys = map[string]string{
		"display":      "display",
		"columns":      "grid-template-columns",
		"rows":         "grid-template-rows",
		"areas":        "grid-template-areas",
		"gap":          "gap",
		"rowGap":       "row-gap",
		"columnGap":    "column-gap",
		"autoFlow":     "grid-auto-flow",
		"autoColumns":  "grid-auto-columns",
		"autoRows":     "grid-auto-rows",
		"justifyItems": "justify-items",
		"alignItems":   "align-items",
		"placeItems":   "place-items",
	}
	// short alignment keywords expanded for flex containers
	alignAliases = map[string]string{
		"start":   "flex-start",
		"end":     "flex-end",
		"between": "space-between",
		"around":  "space-around",
		"evenly":  "space-evenly",
	}
	aliasedFlexProps = map[string]bool{
		"justify-content": true,
		"align-items":     true,
		"align-content":   true,
		"align-self":      true,
	}
)

// translate maps params through an allow-list, returning declarations and
// the names of ignored parameters.
func translate(params Props, allowed map[string]string, aliases bool) (Props, []string) {
	var (
		out     Props
		ignored []string
	)
	for _, p := range params {
		name, ok := allowed[p.Key]
		if !ok {
			ignored = append(ignored, p.Key)
			continue
		}
		value := p.Value
		if s, isString := value.(string); aliases && isString && aliasedFlexProps[name] {
			if alias, found := alignAliases[s]; found {
				value = alias
			}
		}
		out = append(out, Prop{Key: name, Value: value})
	}
	return out, ignored
}

func withDisplay(props Props, display string) Props {
	for _, p := range props {
		if p.Key == "display" {
			return props
		}
	}
	return append(Props{{Key: "display", Value: display}}, props...)
}
