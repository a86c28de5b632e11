package style

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Env is handed to conditions registered with WhenEnv. Conditions read the
// environment from here instead of from process globals.
type Env struct {
	ViewportWidth int
	Now           time.Time
	Vars          map[string]string
}

// Declaration is a combined selector with its rendered property list.
type Declaration struct {
	Selector   string
	Properties string
}

// MediaEntry is one rendered media body, lines separated by "\n".
type MediaEntry struct {
	Query string
	CSS   string
}

// Fragment is the serialized form of a rule subtree, consumed by the merge
// step.
type Fragment struct {
	Result    *Declaration
	Children  string // pre-rendered nested rules, newline separated
	Media     []MediaEntry
	Keyframes string
}

// pass is a single serialization walk. Conditions are evaluated at most once
// per rule and pass.
type pass struct {
	env  Env
	memo map[*Rule]bool
	log  *zap.Logger
}

func newPass(env Env, log *zap.Logger) *pass {
	if log == nil {
		log = zap.NewNop()
	}
	return &pass{env: env, memo: make(map[*Rule]bool), log: log}
}

// ToCSS serializes the rule subtree with a zero Env. It returns nil when the
// rule is excluded by a condition or has no usable selector.
func (r *Rule) ToCSS(parentSelector string) *Fragment {
	return newPass(Env{}, r.log).fragment(r, parentSelector)
}

func (p *pass) included(r *Rule) bool {
	for n := r; n != nil; n = n.parent {
		if n.cond == nil {
			continue
		}
		ok, seen := p.memo[n]
		if !seen {
			ok = n.cond(p.env)
			p.memo[n] = ok
		}
		if !ok {
			return false
		}
	}
	return true
}

func (p *pass) fragment(r *Rule, parentSelector string) *Fragment {
	if !p.included(r) {
		return nil
	}
	selector := combineSelectors(r.selectors, parentSelector)
	if strings.TrimSpace(selector) == "" {
		p.log.Warn("Rule has no selector, skipping", zap.String("parent", parentSelector))
		return nil
	}

	f := &Fragment{}
	if props := r.props.Render(); props != "" {
		f.Result = &Declaration{Selector: selector, Properties: props}
	}

	var (
		lines     []string
		keyframes []string
		media     []seqMedia
	)
	for _, child := range r.children {
		cf := p.fragment(child, selector)
		if cf == nil {
			continue
		}
		if cf.Result != nil {
			if isKeyframes(cf.Result.Selector) {
				lines = append(lines, renderKeyframes(cf.Result.Selector, child.props, p.log))
			} else {
				lines = append(lines, cf.Result.Selector+" { "+cf.Result.Properties+" }")
			}
		}
		if cf.Children != "" {
			lines = append(lines, cf.Children)
		}
		media = append(media, seqMedia{seq: child.seq, entries: cf.Media})
		if cf.Keyframes != "" {
			keyframes = append(keyframes, cf.Keyframes)
		}
	}
	f.Children = strings.Join(lines, "\n")

	for _, m := range r.media {
		mf := p.fragment(m.rule, selector)
		if mf == nil {
			continue
		}
		entries := make([]MediaEntry, 0, 1+len(mf.Media))
		var body []string
		if mf.Result != nil {
			body = append(body, mf.Result.Selector+" { "+mf.Result.Properties+" }")
		}
		if mf.Children != "" {
			body = append(body, mf.Children)
		}
		if len(body) > 0 {
			entries = append(entries, MediaEntry{Query: m.query, CSS: strings.Join(body, "\n")})
		}
		for _, inner := range mf.Media {
			entries = append(entries, MediaEntry{Query: joinQueries(m.query, inner.Query), CSS: inner.CSS})
		}
		media = append(media, seqMedia{seq: m.seq, entries: entries})
		if mf.Keyframes != "" {
			keyframes = append(keyframes, mf.Keyframes)
		}
	}
	// media bodies follow registration order of children and media rules
	slices.SortStableFunc(media, func(a, b seqMedia) int { return cmp.Compare(a.seq, b.seq) })
	for _, m := range media {
		f.Media = append(f.Media, m.entries...)
	}

	own := make([]string, 0, len(r.keyframes))
	for _, kf := range r.keyframes {
		own = append(own, renderKeyframes("@keyframes "+kf.name, kf.steps, p.log))
	}
	f.Keyframes = strings.Join(append(own, keyframes...), "\n")
	return f
}

type seqMedia struct {
	seq     int
	entries []MediaEntry
}

func isKeyframes(selector string) bool {
	return strings.HasPrefix(selector, "@keyframes")
}

// combineSelectors prefixes every own selector with every part of the
// parent selector list. Own selectors already carrying a parent part and
// at-rule selectors are used as is.
func combineSelectors(own []string, parent string) string {
	if strings.TrimSpace(parent) == "" {
		return strings.Join(own, ", ")
	}
	parts := splitTopLevel(parent)
	out := make([]string, 0, len(own)*len(parts))
	for _, s := range own {
		if strings.HasPrefix(s, "@") || containsAny(s, parts) {
			out = append(out, s)
			continue
		}
		for _, part := range parts {
			out = append(out, part+" "+s)
		}
	}
	return strings.Join(out, ", ")
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// splitTopLevel splits a comma separated list, ignoring commas inside
// parentheses and brackets.
func splitTopLevel(list string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if p := strings.TrimSpace(list[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(list[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// joinQueries combines an outer and an inner media query list, each pair
// joined with "and".
func joinQueries(outer, inner string) string {
	var out []string
	for _, o := range splitTopLevel(outer) {
		for _, i := range splitTopLevel(inner) {
			out = append(out, o+" and "+i)
		}
	}
	return strings.Join(out, ", ")
}

// renderKeyframes renders a keyframes block one step per entry:
//
//	@keyframes name {
//	0% {
//	    prop: value;
//	}
//	}
func renderKeyframes(selector string, steps *PropertyMap, log *zap.Logger) string {
	var b strings.Builder
	b.WriteString(selector)
	b.WriteString(" {\n")
	for _, step := range steps.keys {
		v := steps.values[step]
		if v.nested == nil {
			log.Warn("Ignoring keyframes entry without step body", zap.String("keyframes", selector), zap.String("entry", step))
			continue
		}
		b.WriteString(step)
		b.WriteString(" {\n")
		for _, k := range v.nested.keys {
			b.WriteString("    ")
			b.WriteString(CamelToKebab(k))
			b.WriteString(": ")
			b.WriteString(v.nested.values[k].scalar)
			b.WriteString(";\n")
		}
		b.WriteString("}\n")
	}
	b.WriteString("}")
	return b.String()
}
