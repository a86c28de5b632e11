package style

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RuleSource is anything exposing an ordered list of top-level rules, it is
// what Combine accepts.
type RuleSource interface {
	Rules() []*Rule
}

// StyleSheet is an ordered collection of top-level rules. It is not safe for
// concurrent use.
type StyleSheet struct {
	rules []*Rule
	log   *zap.Logger
}

// New creates an empty stylesheet. Diagnostics go to log, which may be nil.
func New(log *zap.Logger) *StyleSheet {
	if log == nil {
		log = zap.NewNop()
	}
	return &StyleSheet{log: log.Named("style")}
}

// Rule creates a top-level rule and appends it to the sheet. Invalid
// selectors are recorded on the returned rule.
func (s *StyleSheet) Rule(selectors ...string) *Rule {
	r := newRule(s.log, selectors)
	s.rules = append(s.rules, r)
	return r
}

// Rules returns the top-level rules in order. The rules themselves are
// shared, not copied.
func (s *StyleSheet) Rules() []*Rule {
	rules := make([]*Rule, len(s.rules))
	copy(rules, s.rules)
	return rules
}

// Combine appends the rules of every source to the sheet. Rules are shared
// by reference, later changes to them show up in both sheets.
func (s *StyleSheet) Combine(sources ...RuleSource) error {
	var err error
	for i, src := range sources {
		if src == nil || isNilSource(src) {
			err = multierr.Append(err, fmt.Errorf("%w: argument %d is nil", ErrInvalidStyleSheetArgument, i))
			continue
		}
		rules := src.Rules()
		if rules == nil {
			err = multierr.Append(err, fmt.Errorf("%w: argument %d (%T) has no rule list", ErrInvalidStyleSheetArgument, i, src))
			continue
		}
		s.rules = append(s.rules, rules...)
	}
	return err
}

func isNilSource(src RuleSource) bool {
	ss, ok := src.(*StyleSheet)
	return ok && ss == nil
}

// ClassSpec describes a run of utility classes ".<Prefix>-1" to
// ".<Prefix>-<Count>". Compute, when set, wins over Properties.
type ClassSpec struct {
	Prefix     string
	Count      int
	Properties Props
	Compute    func(i int) Props
}

// GenerateClasses creates one rule per index as described by spec.
func (s *StyleSheet) GenerateClasses(spec ClassSpec) error {
	prefix := strings.TrimSpace(spec.Prefix)
	if prefix == "" {
		return fmt.Errorf("%w: empty class prefix", ErrInvalidSelector)
	}
	if spec.Count < 0 {
		return fmt.Errorf("%w: negative class count %d", ErrInvalidProperty, spec.Count)
	}
	var err error
	for i := 1; i <= spec.Count; i++ {
		props := spec.Properties
		if spec.Compute != nil {
			props = spec.Compute(i)
		}
		r := s.Rule(fmt.Sprintf(".%s-%d", strings.TrimPrefix(prefix, "."), i)).Set(props)
		err = multierr.Append(err, r.Err())
	}
	return err
}

// Err returns the errors recorded anywhere in the rule tree.
func (s *StyleSheet) Err() error {
	var err error
	for _, r := range s.rules {
		err = multierr.Append(err, r.treeErr())
	}
	return err
}

// Compile renders the sheet with a zero Env.
func (s *StyleSheet) Compile() (string, error) {
	return s.CompileEnv(Env{})
}

// CompileEnv renders the sheet, env is passed to WhenEnv conditions. Errors
// recorded while building are returned together with the output rendered
// from the valid part of the tree.
func (s *StyleSheet) CompileEnv(env Env) (string, error) {
	p := newPass(env, s.log)
	fragments := make([]*Fragment, 0, len(s.rules))
	for _, r := range s.rules {
		if f := p.fragment(r, ""); f != nil {
			fragments = append(fragments, f)
		}
	}
	css := Merge(fragments)
	s.log.Debug("Stylesheet compiled", zap.Int("rules", len(s.rules)), zap.Int("fragments", len(fragments)), zap.Int("size", len(css)))
	return css, s.Err()
}

// WriteTo compiles the sheet with a zero Env and writes it to w.
func (s *StyleSheet) WriteTo(w io.Writer) (int64, error) {
	css, err := s.Compile()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, css)
	return int64(n), err
}

// Dump returns an indented description of the rule tree for debugging.
func (s *StyleSheet) Dump() string {
	tw := newTreeWriter()
	tw.line(0, "StyleSheet (%d rules)", len(s.rules))
	for _, r := range s.rules {
		dumpRule(tw, 1, r)
	}
	return tw.String()
}

func dumpRule(tw *treeWriter, depth int, r *Rule) {
	tw.line(depth, "Rule %s", strings.Join(r.selectors, ", "))
	if r.cond != nil {
		tw.line(depth+1, "conditional")
	}
	for _, k := range r.props.keys {
		v, _ := r.props.Get(k)
		tw.text(depth+1, k, v)
	}
	for _, kf := range r.keyframes {
		tw.line(depth+1, "@keyframes %s (%d steps)", kf.name, kf.steps.Len())
	}
	for _, c := range r.children {
		dumpRule(tw, depth+1, c)
	}
	for _, m := range r.media {
		tw.line(depth+1, "@media %s", m.query)
		dumpRule(tw, depth+2, m.rule)
	}
	if r.err != nil {
		tw.text(depth+1, "error", r.err.Error())
	}
}
