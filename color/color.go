// Package color implements the color value used by stylesheet rules.
//
// Arithmetic never clamps on its own: call Clamp after a sequence of
// operations and before the value is rendered.
package color

import (
	"errors"
	"fmt"
	stdcolor "image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

var (
	ErrDivisionByZero   = errors.New("division by zero")
	ErrUnknownOperation = errors.New("unknown color operation")
	ErrInvalidHex       = errors.New("invalid hexadecimal color")
	ErrInvalidRGB       = errors.New("invalid rgb color")
	ErrUnknownName      = errors.New("unknown color name")
)

// Supported arithmetic operations.
const (
	OpAdd byte = '+'
	OpSub byte = '-'
	OpMul byte = '*'
	OpDiv byte = '/'
	OpMod byte = '%'
)

// Color is an RGBA value. R, G and B are nominally in [0,255] and A in
// [0,1], but intermediate results of Operate may leave that range.
type Color struct {
	R, G, B float64
	A       float64
}

// New creates a color, alpha defaults to 1.
func New(r, g, b float64, a ...float64) *Color {
	c := &Color{R: r, G: g, B: b, A: 1}
	if len(a) > 0 {
		c.A = a[0]
	}
	return c
}

// FromHex parses "#rgb" or "#rrggbb".
func FromHex(hex string) (*Color, error) {
	s := strings.TrimSpace(hex)
	if !strings.HasPrefix(s, "#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, hex)
	}
	switch len(s) {
	case 4:
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	case 7:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, hex)
	}
	for i := 1; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHex, hex)
		}
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%2x%2x%2x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHex, hex, err)
	}
	return New(float64(r), float64(g), float64(b)), nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

var rgbPattern = regexp.MustCompile(`^rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*(\d*\.?\d+)\s*)?\)$`)

// FromRGB parses "rgb(r, g, b)" and "rgba(r, g, b, a)".
func FromRGB(rgb string) (*Color, error) {
	m := rgbPattern.FindStringSubmatch(strings.TrimSpace(rgb))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRGB, rgb)
	}
	var ch [3]float64
	for i := range ch {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidRGB, rgb, err)
		}
		ch[i] = v
	}
	c := New(ch[0], ch[1], ch[2])
	if m[4] != "" {
		a, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidRGB, rgb, err)
		}
		c.A = a
	}
	return c, nil
}

// FromName looks up a CSS named color ("rebeccapurple", "transparent").
func FromName(name string) (*Color, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "transparent" {
		return New(0, 0, 0, 0), nil
	}
	nc, ok := colornames.Map[n]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return New(float64(nc.R), float64(nc.G), float64(nc.B)), nil
}

// Parse accepts any of the textual forms understood by FromHex, FromRGB and
// FromName.
func Parse(s string) (*Color, error) {
	t := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(t, "#"):
		return FromHex(t)
	case strings.HasPrefix(strings.ToLower(t), "rgb"):
		return FromRGB(strings.ToLower(t))
	default:
		return FromName(t)
	}
}

// FromStd converts any image/color value.
func FromStd(c stdcolor.Color) *Color {
	n := stdcolor.NRGBAModel.Convert(c).(stdcolor.NRGBA)
	return New(float64(n.R), float64(n.G), float64(n.B), float64(n.A)/255)
}

// Operate applies op with operand to R, G and B in place. Alpha is left
// alone.
func (c *Color) Operate(op byte, operand float64) error {
	var fn func(float64) float64
	switch op {
	case OpAdd:
		fn = func(v float64) float64 { return v + operand }
	case OpSub:
		fn = func(v float64) float64 { return v - operand }
	case OpMul:
		fn = func(v float64) float64 { return v * operand }
	case OpDiv:
		if operand == 0 {
			return ErrDivisionByZero
		}
		fn = func(v float64) float64 { return v / operand }
	case OpMod:
		if operand == 0 {
			return ErrDivisionByZero
		}
		fn = func(v float64) float64 { return math.Mod(v, operand) }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	c.R, c.G, c.B = fn(c.R), fn(c.G), fn(c.B)
	return nil
}

// Clamp rounds R, G and B and bounds them to [0,255], A is bounded to [0,1].
func (c *Color) Clamp() *Color {
	c.R = clamp(math.Round(c.R), 0, 255)
	c.G = clamp(math.Round(c.G), 0, 255)
	c.B = clamp(math.Round(c.B), 0, 255)
	c.A = clamp(c.A, 0, 1)
	return c
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Clone returns an independent copy.
func (c *Color) Clone() *Color {
	cc := *c
	return &cc
}

// ToRGBA renders the compact CSS form used in generated stylesheets:
// "rgba(255,0,0,1)".
func (c *Color) ToRGBA() string {
	return ToColorString(c.R, c.G, c.B, c.A)
}

// String renders "rgba(255, 0, 0, 1)".
func (c *Color) String() string {
	return fmt.Sprintf("rgba(%s, %s, %s, %s)", num(c.R), num(c.G), num(c.B), num(c.A))
}

// RGBA implements image/color.Color. Channels are clamped on the fly, the
// receiver is not modified.
func (c *Color) RGBA() (r, g, b, a uint32) {
	cc := c.Clone().Clamp()
	return stdcolor.NRGBA{
		R: uint8(cc.R),
		G: uint8(cc.G),
		B: uint8(cc.B),
		A: uint8(math.Round(cc.A * 255)),
	}.RGBA()
}

// ToColorString renders channels as "rgba(r,g,b,a)".
func ToColorString(r, g, b, a float64) string {
	return "rgba(" + num(r) + "," + num(g) + "," + num(b) + "," + num(a) + ")"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
