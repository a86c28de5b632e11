package style

import "strings"

// accumulator is an insertion ordered key -> space joined text table.
type accumulator struct {
	keys []string
	text map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{text: make(map[string]string)}
}

func (a *accumulator) add(key, text string) {
	prev, ok := a.text[key]
	if !ok {
		a.keys = append(a.keys, key)
		a.text[key] = text
		return
	}
	a.text[key] = prev + " " + text
}

// Merge folds fragments into the final stylesheet text. Declarations of the
// same top-level selector are concatenated into one block, media bodies are
// gathered per query in registration order, media of nested rules included.
// Pre-rendered children follow as they are, then keyframes.
//
// Selectors are only merged between top-level fragments. A nested rule and
// a top-level rule with the same selector produce separate blocks.
func Merge(fragments []*Fragment) string {
	var (
		flat      = newAccumulator()
		media     = newAccumulator()
		children  []string
		keyframes []string
	)
	for _, f := range fragments {
		if f == nil {
			continue
		}
		if f.Result != nil {
			flat.add(f.Result.Selector, f.Result.Properties)
		}
		for _, m := range f.Media {
			media.add(m.Query, m.CSS)
		}
		if f.Children != "" {
			children = append(children, f.Children)
		}
		if f.Keyframes != "" {
			keyframes = append(keyframes, f.Keyframes)
		}
	}

	var b strings.Builder
	for _, sel := range flat.keys {
		b.WriteString(sel)
		b.WriteString(" { ")
		b.WriteString(flat.text[sel])
		b.WriteString(" }\n")
	}
	for _, q := range media.keys {
		b.WriteString("@media ")
		b.WriteString(q)
		b.WriteString(" {\n  ")
		b.WriteString(strings.ReplaceAll(media.text[q], "\n", "\n  "))
		b.WriteString("\n}\n")
	}
	for _, c := range children {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	for _, k := range keyframes {
		b.WriteString(k)
		b.WriteByte('\n')
	}
	return b.String()
}
