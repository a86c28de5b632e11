package style_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"dss/style"
)

func TestCompile_EndToEnd(t *testing.T) {
	ss := style.New(zap.NewNop())
	c := ss.Rule(".container").Set(style.Props{{Key: "padding", Value: "10px"}})
	c.Nested("h1").Set(style.Props{{Key: "color", Value: "blue"}})
	c.Media("(max-width: 768px)").Set(style.Props{{Key: "width", Value: "100%"}})

	got := compile(t, ss)
	flat := ".container { padding: 10px; }\n"
	media := "@media (max-width: 768px) {\n  .container { width: 100%; }\n}\n"
	child := ".container h1 { color: blue; }\n"
	if diff := cmp.Diff(flat+media+child, got); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
	iFlat, iMedia, iChild := strings.Index(got, flat), strings.Index(got, media), strings.Index(got, child)
	if iFlat < 0 || iMedia < 0 || iChild < 0 || iFlat >= iMedia || iMedia >= iChild {
		t.Errorf("unexpected block order: flat=%d media=%d children=%d", iFlat, iMedia, iChild)
	}
}

func TestCompile_MergesTopLevelSelectors(t *testing.T) {
	ss := style.New(nil)
	ss.Rule(".a").Set(style.Props{{Key: "color", Value: "red"}})
	ss.Rule(".b").Set(style.Props{{Key: "color", Value: "blue"}})
	ss.Rule(".a").Set(style.Props{{Key: "margin", Value: "0"}})

	want := ".a { color: red; margin: 0; }\n.b { color: blue; }\n"
	if got := compile(t, ss); got != want {
		t.Errorf("Compile() = %q, want %q", got, want)
	}
}

func TestCompile_NestedDuplicatesNotMerged(t *testing.T) {
	ss := style.New(nil)
	ss.Rule(".a .b").Set(style.Props{{Key: "color", Value: "red"}})
	ss.Rule(".a").Nested(".b").Set(style.Props{{Key: "margin", Value: "0"}})

	want := ".a .b { color: red; }\n.a .b { margin: 0; }\n"
	if got := compile(t, ss); got != want {
		t.Errorf("Compile() = %q, want %q", got, want)
	}
}

func TestCompile_MediaAggregation(t *testing.T) {
	ss := style.New(nil)
	ss.Rule(".box").Media("(max-width: 600px)").Set(style.Props{{Key: "color", Value: "red"}})
	ss.Rule(".box").Media("(max-width: 600px)").Set(style.Props{{Key: "fontSize", Value: "12px"}})
	ss.Rule(".other").Media("print").Set(style.Props{{Key: "display", Value: "none"}})

	want := "@media (max-width: 600px) {\n  .box { color: red; } .box { font-size: 12px; }\n}\n" +
		"@media print {\n  .other { display: none; }\n}\n"
	if diff := cmp.Diff(want, compile(t, ss)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_MediaVariants(t *testing.T) {
	ss := style.New(nil)
	card := ss.Rule(".card")
	card.Media("screen", "print").Set(style.Props{{Key: "margin", Value: "0"}}).
		Media("(min-width: 800px)").Set(style.Props{{Key: "margin", Value: "8px"}})
	card.Nested(".title").Media("(max-width: 400px)").Set(style.Props{{Key: "fontSize", Value: "14px"}})
	m := card.Media("(orientation: portrait)")
	m.Set(style.Props{{Key: "padding", Value: "0"}})
	m.Nested("img").Set(style.Props{{Key: "width", Value: "100%"}})

	want := "@media screen, print {\n  .card { margin: 0; }\n}\n" +
		"@media screen and (min-width: 800px), print and (min-width: 800px) {\n  .card { margin: 8px; }\n}\n" +
		"@media (max-width: 400px) {\n  .card .title { font-size: 14px; }\n}\n" +
		"@media (orientation: portrait) {\n  .card { padding: 0; }\n  .card img { width: 100%; }\n}\n"
	if diff := cmp.Diff(want, compile(t, ss)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_SharedMediaQueryKeepsRegistrationOrder(t *testing.T) {
	ss := style.New(nil)
	card := ss.Rule(".card")
	card.Media("(max-width: 600px)").Set(style.Props{{Key: "margin", Value: "0"}})
	card.Nested(".t").Media("(max-width: 600px)").Set(style.Props{{Key: "padding", Value: "0"}})
	card.Media("(max-width: 600px)").Set(style.Props{{Key: "border", Value: "none"}})

	want := "@media (max-width: 600px) {\n  .card { margin: 0; } .card .t { padding: 0; } .card { border: none; }\n}\n"
	if diff := cmp.Diff(want, compile(t, ss)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_Keyframes(t *testing.T) {
	ss := style.New(nil)
	ss.Rule(".spinner").SetAnimation(style.Animation{
		Name:           "spin",
		Duration:       "1s",
		TimingFunction: "linear",
		IterationCount: "infinite",
		Keyframes: style.Keyframes{
			{Step: "0%", Props: style.Props{{Key: "transform", Value: "rotate(0deg)"}}},
			{Step: "100%", Props: style.Props{{Key: "transform", Value: "rotate(360deg)"}}},
		},
	})

	want := ".spinner { animation: spin 1s linear infinite; }\n" +
		"@keyframes spin {\n0% {\n    transform: rotate(0deg);\n}\n100% {\n    transform: rotate(360deg);\n}\n}\n"
	if diff := cmp.Diff(want, compile(t, ss)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_KeyframesChild(t *testing.T) {
	ss := style.New(nil)
	ss.Rule(".pulse").Nested("@keyframes pulse").Set(style.Props{
		{Key: "0%", Value: style.Props{{Key: "opacity", Value: "0"}}},
		{Key: "100%", Value: style.Props{{Key: "opacity", Value: 1}, {Key: "backgroundColor", Value: "red"}}},
	})

	want := "@keyframes pulse {\n0% {\n    opacity: 0;\n}\n100% {\n    opacity: 1;\n    background-color: red;\n}\n}\n"
	if diff := cmp.Diff(want, compile(t, ss)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_TopLevelKeyframesInline(t *testing.T) {
	ss := style.New(nil)
	ss.Rule("@keyframes fade").Set(style.Props{
		{Key: "from", Value: style.Props{{Key: "opacity", Value: "0"}}},
		{Key: "to", Value: style.Props{{Key: "opacity", Value: "1"}}},
	})
	want := "@keyframes fade { from { opacity: 0; } to { opacity: 1; } }\n"
	if got := compile(t, ss); got != want {
		t.Errorf("Compile() = %q, want %q", got, want)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	ss := style.New(nil)
	r := ss.Rule(".a", ".b").Set(style.Props{{Key: "color", Value: "red"}})
	r.Nested("p").Set(style.Props{{Key: "margin", Value: "0"}})
	r.Media("print").Set(style.Props{{Key: "color", Value: "black"}})
	r.Hover(style.Props{{Key: "color", Value: "blue"}})

	first := compile(t, ss)
	second := compile(t, ss)
	if first != second {
		t.Errorf("Compile() is not idempotent:\n%s\n---\n%s", first, second)
	}
}

func TestCompile_ReflectsMutation(t *testing.T) {
	ss := style.New(nil)
	r := ss.Rule(".a").Set(style.Props{{Key: "color", Value: "red"}})
	_ = compile(t, ss)
	r.Set(style.Props{{Key: "color", Value: "blue"}})
	if got, want := compile(t, ss), ".a { color: blue; }\n"; got != want {
		t.Errorf("Compile() = %q, want %q", got, want)
	}
}

func TestCompile_InvalidRuleSkipped(t *testing.T) {
	ss := style.New(nil)
	ss.Rule(" ").Set(style.Props{{Key: "color", Value: "red"}})
	ss.Rule(".ok").Set(style.Props{{Key: "color", Value: "blue"}})

	css, err := ss.Compile()
	if !errors.Is(err, style.ErrInvalidSelector) {
		t.Errorf("Compile() error = %v, want ErrInvalidSelector", err)
	}
	if want := ".ok { color: blue; }\n"; css != want {
		t.Errorf("Compile() = %q, want %q", css, want)
	}
}

type fakeSource struct{ rules []*style.Rule }

func (f fakeSource) Rules() []*style.Rule { return f.rules }

func TestCombine(t *testing.T) {
	base := style.New(nil)
	base.Rule(".base").Set(style.Props{{Key: "margin", Value: "0"}})

	other := style.New(nil)
	shared := other.Rule(".other").Set(style.Props{{Key: "color", Value: "red"}})

	if err := base.Combine(other, style.New(nil)); err != nil {
		t.Fatalf("Combine() error = %v", err)
	}
	if n := len(base.Rules()); n != 2 {
		t.Fatalf("Rules() has %d rules, want 2", n)
	}

	// rules are shared, not copied
	shared.Set(style.Props{{Key: "color", Value: "blue"}})
	want := ".base { margin: 0; }\n.other { color: blue; }\n"
	if got := compile(t, base); got != want {
		t.Errorf("Compile() = %q, want %q", got, want)
	}
}

func TestCombine_InvalidArguments(t *testing.T) {
	ss := style.New(nil)
	var nilSheet *style.StyleSheet
	err := ss.Combine(nil, nilSheet, fakeSource{})
	if !errors.Is(err, style.ErrInvalidStyleSheetArgument) {
		t.Fatalf("Combine() error = %v, want ErrInvalidStyleSheetArgument", err)
	}
	if n := len(ss.Rules()); n != 0 {
		t.Errorf("invalid sources added %d rules", n)
	}

	r, _ := style.NewRule(".x")
	if err := ss.Combine(fakeSource{rules: []*style.Rule{r}}); err != nil {
		t.Errorf("Combine(custom source) error = %v", err)
	}
}

func TestGenerateClasses(t *testing.T) {
	ss := style.New(nil)
	err := ss.GenerateClasses(style.ClassSpec{
		Prefix: "m",
		Count:  3,
		Compute: func(i int) style.Props {
			return style.Props{{Key: "margin", Value: fmt.Sprintf("%dpx", i*4)}}
		},
	})
	if err != nil {
		t.Fatalf("GenerateClasses() error = %v", err)
	}
	err = ss.GenerateClasses(style.ClassSpec{
		Prefix:     ".hide",
		Count:      1,
		Properties: style.Props{{Key: "display", Value: "none"}},
	})
	if err != nil {
		t.Fatalf("GenerateClasses() error = %v", err)
	}

	want := ".m-1 { margin: 4px; }\n.m-2 { margin: 8px; }\n.m-3 { margin: 12px; }\n.hide-1 { display: none; }\n"
	if got := compile(t, ss); got != want {
		t.Errorf("Compile() = %q, want %q", got, want)
	}
}

func TestGenerateClasses_Invalid(t *testing.T) {
	ss := style.New(nil)
	if err := ss.GenerateClasses(style.ClassSpec{Count: 2}); !errors.Is(err, style.ErrInvalidSelector) {
		t.Errorf("empty prefix error = %v", err)
	}
	if err := ss.GenerateClasses(style.ClassSpec{Prefix: "p", Count: -1}); !errors.Is(err, style.ErrInvalidProperty) {
		t.Errorf("negative count error = %v", err)
	}
	err := ss.GenerateClasses(style.ClassSpec{Prefix: "p", Count: 1, Properties: style.Props{{Key: "x", Value: []int{}}}})
	if !errors.Is(err, style.ErrInvalidProperty) {
		t.Errorf("bad properties error = %v", err)
	}
}

func TestWriteTo(t *testing.T) {
	ss := style.New(nil)
	ss.Rule("body").Set(style.Props{{Key: "margin", Value: 0}})
	var buf bytes.Buffer
	n, err := ss.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if want := "body { margin: 0; }\n"; buf.String() != want || n != int64(len(want)) {
		t.Errorf("WriteTo() wrote %d bytes %q", n, buf.String())
	}

	ss.Rule("")
	if _, err := ss.WriteTo(&buf); !errors.Is(err, style.ErrInvalidSelector) {
		t.Errorf("WriteTo() error = %v, want ErrInvalidSelector", err)
	}
}

func TestDump(t *testing.T) {
	ss := style.New(nil)
	r := ss.Rule(".a").Set(style.Props{{Key: "color", Value: "red"}}).WhenBool(true)
	r.Nested("b").Set(style.Props{{Key: "fontWeight", Value: "bold"}})
	r.Media("print").Set(style.Props{{Key: "color", Value: "black"}})

	want := `StyleSheet (1 rules)
  Rule .a
    conditional
    color: "red"
    Rule .a b
      font-weight: "bold"
    @media print
      Rule .a
        color: "black"
`
	if diff := cmp.Diff(want, ss.Dump()); diff != "" {
		t.Errorf("Dump() mismatch (-want +got):\n%s", diff)
	}
}
