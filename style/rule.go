package style

import (
	"fmt"
	stdcolor "image/color"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"dss/color"
)

type mediaRule struct {
	query string
	rule  *Rule
	seq   int
}

type keyframesBlock struct {
	name  string
	steps *PropertyMap
}

// Rule is a node of the stylesheet tree: selectors, declarations, nested
// rules and media variants.
//
// Builder methods return a Rule so calls can be chained. A call that fails
// validation is not applied, its error is recorded on the Rule it was
// invoked on and reported by Err and by StyleSheet.Compile.
type Rule struct {
	selectors []string
	props     *PropertyMap
	children  []*Rule
	media     []mediaRule
	keyframes []keyframesBlock
	cond      func(Env) bool
	parent    *Rule // non-owning, used for the condition chain only

	// seq is the registration position among the parent's children and
	// media rules, registered counts both.
	seq        int
	registered int

	log *zap.Logger
	err error
}

// NewRule creates a detached rule. Every selector must be a non-empty
// string, surrounding whitespace is dropped.
func NewRule(selectors ...string) (*Rule, error) {
	r := newRule(nil, selectors)
	return r, r.err
}

func newRule(log *zap.Logger, selectors []string) *Rule {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Rule{props: NewPropertyMap(), log: log}
	sels, err := validateSelectors(selectors)
	if err != nil {
		r.err = err
		return r
	}
	r.selectors = sels
	return r
}

func validateSelectors(selectors []string) ([]string, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("%w: no selectors", ErrInvalidSelector)
	}
	out := make([]string, 0, len(selectors))
	for i, s := range selectors {
		t := strings.TrimSpace(s)
		if t == "" {
			return nil, fmt.Errorf("%w: selector %d is empty", ErrInvalidSelector, i)
		}
		if strings.HasPrefix(t, "@") {
			out = append(out, t)
			continue
		}
		// a selector list is kept as separate selectors so nesting and
		// pseudo-classes reach every member
		parts := splitTopLevel(t)
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: selector %d is empty", ErrInvalidSelector, i)
		}
		out = append(out, parts...)
	}
	return out, nil
}

func (r *Rule) fail(err error) *Rule {
	r.err = multierr.Append(r.err, err)
	return r
}

// Err returns errors recorded on this rule (not its descendants).
func (r *Rule) Err() error {
	return r.err
}

// treeErr collects errors of the rule, its children and media rules.
func (r *Rule) treeErr() error {
	err := r.err
	for _, c := range r.children {
		err = multierr.Append(err, c.treeErr())
	}
	for _, m := range r.media {
		err = multierr.Append(err, m.rule.treeErr())
	}
	return err
}

// Selectors returns a copy of the rule's own selectors.
func (r *Rule) Selectors() []string {
	return append([]string(nil), r.selectors...)
}

// Properties returns the rule's property map.
func (r *Rule) Properties() *PropertyMap {
	return r.props
}

// Children returns nested and pseudo-class rules in creation order.
func (r *Rule) Children() []*Rule {
	return append([]*Rule(nil), r.children...)
}

// Parent returns the rule this one was nested in, nil for top level rules.
func (r *Rule) Parent() *Rule {
	return r.parent
}

// Set merges props into the rule. The call is atomic: when any entry is
// invalid nothing is applied and all offending entries are reported.
func (r *Rule) Set(props Props) *Rule {
	vals := make([]propValue, len(props))
	var err error
	for i, p := range props {
		v, e := toPropValue(p.Key, p.Value)
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		vals[i] = v
	}
	if err != nil {
		return r.fail(err)
	}
	for i, p := range props {
		if r.props.Has(p.Key) {
			r.log.Debug("Property overwritten", zap.Strings("selectors", r.selectors), zap.String("property", p.Key))
		}
		r.props.put(p.Key, vals[i])
	}
	return r
}

// SetMap is Set for a Go map, entries are applied in natural key order.
func (r *Rule) SetMap(props map[string]any) *Rule {
	return r.Set(FromMap(props))
}

// Declare sets a single property.
func (r *Rule) Declare(key string, value any) *Rule {
	return r.Set(Props{{Key: key, Value: value}})
}

// SetColor takes (color, property) pairs. A color may be a *color.Color,
// any image/color.Color, a hex string or another textual CSS color which is
// used verbatim.
func (r *Rule) SetColor(c any, property string, more ...any) *Rule {
	if len(more)%2 != 0 {
		return r.fail(fmt.Errorf("%w: color %v has no property", ErrUnsupportedColorFormat, more[len(more)-1]))
	}
	args := append([]any{c, property}, more...)
	props := make(Props, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		name, ok := args[i+1].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return r.fail(fmt.Errorf("%w: bad property name %#v", ErrInvalidProperty, args[i+1]))
		}
		value, err := resolveColor(args[i])
		if err != nil {
			return r.fail(fmt.Errorf("%s: %w", name, err))
		}
		props = append(props, Prop{Key: name, Value: value})
	}
	return r.Set(props)
}

func resolveColor(v any) (string, error) {
	switch c := v.(type) {
	case *color.Color:
		if c == nil {
			return "", fmt.Errorf("%w: nil color", ErrUnsupportedColorFormat)
		}
		return c.ToRGBA(), nil
	case color.Color:
		return c.ToRGBA(), nil
	case stdcolor.Color:
		return color.FromStd(c).ToRGBA(), nil
	case string:
		s := strings.TrimSpace(c)
		if s == "" {
			return "", fmt.Errorf("%w: empty color", ErrUnsupportedColorFormat)
		}
		if strings.HasPrefix(s, "#") {
			parsed, err := color.FromHex(s)
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrUnsupportedColorFormat, err)
			}
			return parsed.ToRGBA(), nil
		}
		return s, nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedColorFormat, v)
}

func (r *Rule) addChild(selectors []string) *Rule {
	child := newRule(r.log, selectors)
	child.parent = r
	child.seq = r.nextSeq()
	r.children = append(r.children, child)
	return child
}

// Nested creates a child rule for every combination of the rule's selectors
// with tokens. Tokens starting with "::" are appended directly, at-rule
// tokens such as "@keyframes spin" are kept as they are, others become
// descendants. The child is returned; keep a reference to r to
// continue on the parent.
func (r *Rule) Nested(tokens ...string) *Rule {
	toks, err := validateSelectors(tokens)
	if err != nil {
		child := r.addChild(nil)
		child.err = fmt.Errorf("nested: %w", err)
		return child
	}
	sels := make([]string, 0, len(toks)*len(r.selectors))
	for _, tok := range toks {
		if strings.HasPrefix(tok, "@") {
			sels = append(sels, tok)
			continue
		}
		for _, s := range r.selectors {
			if strings.HasPrefix(tok, "::") {
				sels = append(sels, s+tok)
			} else {
				sels = append(sels, s+" "+tok)
			}
		}
	}
	return r.addChild(sels)
}

// Media registers a rule with the same selectors scoped under an @media
// block and returns it. Several queries form one comma separated query list.
func (r *Rule) Media(query string, more ...string) *Rule {
	queries := append([]string{query}, more...)
	for i, q := range queries {
		queries[i] = strings.TrimSpace(q)
		if queries[i] == "" {
			r.fail(fmt.Errorf("%w: query %d is empty", ErrInvalidMediaQuery, i))
			// detached, styles set on it are never rendered
			m := newRule(r.log, r.selectors)
			m.parent = r
			return m
		}
	}
	m := newRule(r.log, r.selectors)
	m.parent = r
	r.media = append(r.media, mediaRule{query: strings.Join(queries, ", "), rule: m, seq: r.nextSeq()})
	return m
}

func (r *Rule) nextSeq() int {
	r.registered++
	return r.registered
}

// When makes the rule, its children and media rules conditional.
func (r *Rule) When(fn func() bool) *Rule {
	if fn == nil {
		return r.fail(fmt.Errorf("%w: nil condition", ErrInvalidProperty))
	}
	r.cond = func(Env) bool { return fn() }
	return r
}

// WhenBool is When with a constant.
func (r *Rule) WhenBool(b bool) *Rule {
	r.cond = func(Env) bool { return b }
	return r
}

// WhenEnv is When for conditions depending on the environment passed to
// StyleSheet.CompileEnv.
func (r *Rule) WhenEnv(fn func(Env) bool) *Rule {
	if fn == nil {
		return r.fail(fmt.Errorf("%w: nil condition", ErrInvalidProperty))
	}
	r.cond = fn
	return r
}

// SetText sets the content property to a quoted copy of text, for
// ::before and ::after rules.
func (r *Rule) SetText(text string) *Rule {
	return r.Declare("content", `"`+escapeDoubleQuoted(norm.NFC.String(text))+`"`)
}

// escapeDoubleQuoted escapes backslashes and double quotes for use inside a
// CSS string.
func escapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, c := range s {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func (r *Rule) setShorthand(property string, v Shorthand) *Rule {
	if v == nil {
		return r.fail(fmt.Errorf("%w: %s: no value", ErrInvalidProperty, property))
	}
	s, err := v.shorthand(property)
	if err != nil {
		return r.fail(err)
	}
	return r.Declare(property, s)
}

func (r *Rule) SetTransition(v Shorthand) *Rule {
	return r.setShorthand("transition", v)
}

func (r *Rule) SetTransform(v Shorthand) *Rule {
	return r.setShorthand("transform", v)
}

func (r *Rule) SetFilter(v Shorthand) *Rule {
	return r.setShorthand("filter", v)
}

// SetAnimation sets the animation property. An Animation carrying Keyframes
// also attaches the matching @keyframes block to the rule output.
func (r *Rule) SetAnimation(v Shorthand) *Rule {
	var anim *Animation
	switch a := v.(type) {
	case Animation:
		anim = &a
	case *Animation:
		if a == nil {
			return r.fail(fmt.Errorf("%w: animation: no value", ErrInvalidProperty))
		}
		anim = a
		v = *a
	}
	if anim == nil || len(anim.Keyframes) == 0 {
		return r.setShorthand("animation", v)
	}
	value, err := anim.shorthand("animation")
	if err != nil {
		return r.fail(err)
	}
	steps, err := anim.steps()
	if err != nil {
		return r.fail(err)
	}
	r.Declare("animation", value)
	r.keyframes = append(r.keyframes, keyframesBlock{name: strings.TrimSpace(anim.Name), steps: steps})
	return r
}

func (r *Rule) layout(method string, params Props, allowed map[string]string, display string) *Rule {
	props, ignored := translate(params, allowed, display != "grid")
	if len(ignored) > 0 {
		r.log.Warn("Ignoring unsupported layout parameters", zap.String("method", method), zap.Strings("selectors", r.selectors), zap.Strings("ignored", ignored))
	}
	if display != "" {
		props = withDisplay(props, display)
	}
	return r.Set(props)
}

// FlexLayout translates flex container parameters (direction, justify,
// align, wrap, alignContent, flexGrow, flexShrink, flexBasis, order, gap,
// display). Unknown parameters are ignored.
func (r *Rule) FlexLayout(params Props) *Rule {
	return r.layout("flexLayout", params, flexLayoutKeys, "flex")
}

// FlexItem translates flex item parameters (grow, shrink, basis, flex,
// order, alignSelf).
func (r *Rule) FlexItem(params Props) *Rule {
	return r.layout("flexItem", params, flexItemKeys, "")
}

// SetGrid translates grid container parameters (columns, rows, areas, gap,
// rowGap, columnGap, autoFlow, autoColumns, autoRows, justifyItems,
// alignItems, placeItems, display).
func (r *Rule) SetGrid(params Props) *Rule {
	return r.layout("setGrid", params, gridKeys, "grid")
}

func (r *Rule) Hover(props Props) *Rule {
	return r.SetPseudo("hover", props)
}

func (r *Rule) Active(props Props) *Rule {
	return r.SetPseudo("active", props)
}

func (r *Rule) Focus(props Props) *Rule {
	return r.SetPseudo("focus", props)
}

// SetPseudo adds a child rule for the pseudo-class name (with or without the
// leading colon) and returns r.
func (r *Rule) SetPseudo(name string, props Props) *Rule {
	name = strings.TrimSpace(name)
	if strings.Trim(name, ":") == "" {
		return r.fail(fmt.Errorf("%w: empty pseudo-class", ErrInvalidSelector))
	}
	if !strings.HasPrefix(name, ":") {
		name = ":" + name
	}
	sels := make([]string, len(r.selectors))
	for i, s := range r.selectors {
		sels[i] = s + name
	}
	child := r.addChild(sels)
	if child.Set(props); child.err != nil {
		r.fail(child.err)
		child.err = nil
	}
	return r
}
