package sheetdef

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dss/color"
	"dss/style"
)

var (
	ErrIncludeCycle = errors.New("include cycle")
	ErrDefinition   = errors.New("invalid definition")
)

// Builder turns definitions into stylesheets. Env.Vars override variables
// declared by definitions in templates. Conditions are evaluated later
// against the Env given to CompileEnv.
type Builder struct {
	env    style.Env
	log    *zap.Logger
	exp    *expander
	loaded []string
}

func NewBuilder(env style.Env, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{env: env, log: log.Named("sheetdef"), exp: newExpander()}
}

// BuildFile loads the definition in path, its includes first, and returns
// the resulting stylesheet together with the top definition. A definition
// reached through several includes contributes its rules once, at the first
// place it is included.
func (b *Builder) BuildFile(path string) (*style.StyleSheet, *Definition, error) {
	return b.buildFile(path, nil, make(map[string]bool))
}

// buildFile walks includes depth first. stack holds the current include
// chain, done every definition already combined into the tree.
func (b *Builder) buildFile(path string, stack []string, done map[string]bool) (*style.StyleSheet, *Definition, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to resolve definition path: %w", err)
	}
	if slices.Contains(stack, abs) {
		return nil, nil, fmt.Errorf("%w: %s", ErrIncludeCycle, abs)
	}
	stack = append(stack, abs)

	def, err := Load(abs)
	if err != nil {
		return nil, nil, err
	}
	if !slices.Contains(b.loaded, abs) {
		b.loaded = append(b.loaded, abs)
	}
	b.log.Debug("Definition loaded", zap.String("path", abs), zap.String("name", def.Name), zap.Int("rules", len(def.Rules)))

	ss := style.New(b.log)
	for _, inc := range def.Include {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		if incAbs, err := filepath.Abs(inc); err == nil && done[incAbs] && !slices.Contains(stack, incAbs) {
			b.log.Debug("Definition already included, skipping", zap.String("path", incAbs), zap.String("from", abs))
			continue
		}
		included, _, err := b.buildFile(inc, stack, done)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: include: %w", path, err)
		}
		if err := ss.Combine(included); err != nil {
			return nil, nil, err
		}
	}
	if err := b.Apply(ss, def); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	done[abs] = true
	return ss, def, nil
}

// Sources returns absolute paths of every definition file loaded so far,
// includes among them, in load order.
func (b *Builder) Sources() []string {
	return slices.Clone(b.loaded)
}

// Build creates a stylesheet from an already decoded definition. Includes
// are not processed.
func (b *Builder) Build(def *Definition) (*style.StyleSheet, error) {
	ss := style.New(b.log)
	if err := b.Apply(ss, def); err != nil {
		return nil, err
	}
	return ss, nil
}

// Apply adds rules and classes of def to ss. Template and structural errors
// are returned, invalid CSS input is recorded on the rules and reported by
// ss.Compile.
func (b *Builder) Apply(ss *style.StyleSheet, def *Definition) error {
	vars := make(map[string]string, len(def.Vars)+len(b.env.Vars))
	maps.Copy(vars, def.Vars)
	maps.Copy(vars, b.env.Vars)
	values := Values{Vars: vars, Env: b.env}

	var err error
	for i := range def.Rules {
		rd := &def.Rules[i]
		sels, e := b.strings(rd.Selectors, values)
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("rule %d: %w", i, e))
			continue
		}
		if e := b.applyRule(ss.Rule(sels...), rd, values, def.Vars); e != nil {
			err = multierr.Append(err, fmt.Errorf("rule %d (%v): %w", i, rd.Selectors, e))
		}
	}
	for i, cd := range def.Classes {
		if e := b.applyClasses(ss, cd, values); e != nil {
			err = multierr.Append(err, fmt.Errorf("classes %d (%s): %w", i, cd.Prefix, e))
		}
	}
	return err
}

func (b *Builder) applyClasses(ss *style.StyleSheet, cd ClassDef, values Values) error {
	var err error
	genErr := ss.GenerateClasses(style.ClassSpec{
		Prefix: cd.Prefix,
		Count:  cd.Count,
		Compute: func(i int) style.Props {
			v := values
			v.Index = i
			props, e := b.props(cd.Set, v)
			err = multierr.Append(err, e)
			return props
		},
	})
	return multierr.Append(err, genErr)
}

func (b *Builder) strings(in []string, values Values) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		x, err := b.exp.expand(s, values)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (b *Builder) props(decls Decls, values Values) (style.Props, error) {
	props := make(style.Props, 0, len(decls))
	for _, d := range decls {
		if d.Nested != nil {
			nested, err := b.props(d.Nested, values)
			if err != nil {
				return nil, err
			}
			props = append(props, style.Prop{Key: d.Key, Value: nested})
			continue
		}
		v, err := b.exp.expand(d.Value, values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Key, err)
		}
		props = append(props, style.Prop{Key: d.Key, Value: v})
	}
	return props, nil
}

// applyRule configures r from rd. declared holds the variables of the
// definition itself, conditions fall back to them when the environment
// passed to compilation lacks a variable.
func (b *Builder) applyRule(r *style.Rule, rd *RuleDef, values Values, declared map[string]string) error {
	var err error
	// setProps expands decls and hands them to apply, empty lists are skipped
	setProps := func(decls Decls, apply func(style.Props)) {
		if len(decls) == 0 {
			return
		}
		p, e := b.props(decls, values)
		if e != nil {
			err = multierr.Append(err, e)
			return
		}
		apply(p)
	}

	setProps(rd.Set, func(p style.Props) { r.Set(p) })
	for _, cd := range rd.Colors {
		if e := b.applyColor(r, cd, values); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if rd.Text != nil {
		text, e := b.exp.expand(*rd.Text, values)
		err = multierr.Append(err, e)
		if e == nil {
			r.SetText(text)
		}
	}
	if rd.Transition != nil {
		v, e := b.shorthand(rd.Transition, values, func(p style.Props) style.Shorthand { return style.Transitions(p) })
		err = multierr.Append(err, e)
		if e == nil {
			r.SetTransition(v)
		}
	}
	if rd.Transform != nil {
		v, e := b.shorthand(rd.Transform, values, func(p style.Props) style.Shorthand { return style.Functions(p) })
		err = multierr.Append(err, e)
		if e == nil {
			r.SetTransform(v)
		}
	}
	if rd.Filter != nil {
		v, e := b.shorthand(rd.Filter, values, func(p style.Props) style.Shorthand { return style.Functions(p) })
		err = multierr.Append(err, e)
		if e == nil {
			r.SetFilter(v)
		}
	}
	if rd.Animation != nil {
		v, e := b.animation(rd.Animation, values)
		err = multierr.Append(err, e)
		if e == nil {
			r.SetAnimation(v)
		}
	}
	setProps(rd.Flex, func(p style.Props) { r.FlexLayout(p) })
	setProps(rd.FlexItem, func(p style.Props) { r.FlexItem(p) })
	setProps(rd.Grid, func(p style.Props) { r.SetGrid(p) })
	setProps(rd.Hover, func(p style.Props) { r.Hover(p) })
	setProps(rd.Active, func(p style.Props) { r.Active(p) })
	setProps(rd.Focus, func(p style.Props) { r.Focus(p) })
	for _, pd := range rd.Pseudo {
		setProps(pd.Set, func(p style.Props) { r.SetPseudo(pd.Name, p) })
	}

	for i := range rd.Nested {
		nd := &rd.Nested[i]
		sels, e := b.strings(nd.Selectors, values)
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		err = multierr.Append(err, b.applyRule(r.Nested(sels...), nd, values, declared))
	}
	for i := range rd.Media {
		md := &rd.Media[i]
		if len(md.Selectors) > 0 {
			err = multierr.Append(err, fmt.Errorf("%w: media %v: selectors are taken from the enclosing rule", ErrDefinition, md.Query))
			continue
		}
		if len(md.Query) == 0 {
			err = multierr.Append(err, fmt.Errorf("%w: media without query", ErrDefinition))
			continue
		}
		queries, e := b.strings(md.Query, values)
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		err = multierr.Append(err, b.applyRule(r.Media(queries[0], queries[1:]...), &md.RuleDef, values, declared))
	}

	if w := rd.When; w != nil {
		if w.Var == "" {
			err = multierr.Append(err, fmt.Errorf("%w: condition without variable", ErrDefinition))
		} else {
			r.WhenEnv(func(env style.Env) bool {
				v, ok := env.Vars[w.Var]
				if !ok {
					v = declared[w.Var]
				}
				return (v == w.Equals) != w.Not
			})
		}
	}
	return err
}

func (b *Builder) applyColor(r *style.Rule, cd ColorDef, values Values) error {
	value, err := b.exp.expand(cd.Value, values)
	if err != nil {
		return fmt.Errorf("%s: %w", cd.Property, err)
	}
	if len(cd.Ops) == 0 {
		r.SetColor(value, cd.Property)
		return nil
	}
	c, err := color.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", cd.Property, err)
	}
	for _, op := range cd.Ops {
		if len(op.Op) != 1 {
			return fmt.Errorf("%w: %s: bad color operation %q", ErrDefinition, cd.Property, op.Op)
		}
		if err := c.Operate(op.Op[0], op.By); err != nil {
			return fmt.Errorf("%s: %w", cd.Property, err)
		}
	}
	r.SetColor(c.Clamp(), cd.Property)
	return nil
}

func (b *Builder) shorthand(sd *ShorthandDef, values Values, structured func(style.Props) style.Shorthand) (style.Shorthand, error) {
	if sd.Parts == nil {
		raw, err := b.exp.expand(sd.Raw, values)
		if err != nil {
			return nil, err
		}
		return style.Raw(raw), nil
	}
	props, err := b.props(sd.Parts, values)
	if err != nil {
		return nil, err
	}
	return structured(props), nil
}

func (b *Builder) animation(ad *AnimationDef, values Values) (style.Shorthand, error) {
	if ad.Raw != "" {
		raw, err := b.exp.expand(ad.Raw, values)
		if err != nil {
			return nil, err
		}
		return style.Raw(raw), nil
	}
	fields := []*string{&ad.Name, &ad.Duration, &ad.TimingFunction, &ad.Delay, &ad.IterationCount, &ad.Direction, &ad.FillMode, &ad.PlayState}
	expanded := make([]string, len(fields))
	for i, f := range fields {
		v, err := b.exp.expand(*f, values)
		if err != nil {
			return nil, err
		}
		expanded[i] = v
	}
	anim := style.Animation{
		Name:           expanded[0],
		Duration:       expanded[1],
		TimingFunction: expanded[2],
		Delay:          expanded[3],
		IterationCount: expanded[4],
		Direction:      expanded[5],
		FillMode:       expanded[6],
		PlayState:      expanded[7],
	}
	for _, step := range ad.Keyframes {
		if step.Nested == nil {
			return nil, fmt.Errorf("%w: keyframe %q must be a mapping", ErrDefinition, step.Key)
		}
		props, err := b.props(step.Nested, values)
		if err != nil {
			return nil, err
		}
		anim.Keyframes = append(anim.Keyframes, style.Keyframe{Step: step.Key, Props: props})
	}
	return anim, nil
}
