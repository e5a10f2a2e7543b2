package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Palette.
const (
	PageColor      = "#03A9F4"
	TagColor       = "#4CAF50"
	RootColor      = "#E53935"
	HighlightColor = "#FFC107"
	TagEdgeColor   = "#81C784"
)

// Label wrap widths.
const (
	RootWrap  = 20
	OtherWrap = 15
)

// Edge widths.
const (
	NormalWidth = 1
	PathWidth   = 5
)

// lightenPerLevel is the percentage each level lightens page colors by.
const lightenPerLevel = 5

func (k Kind) shape() string {
	switch k {
	case KindTag:
		return "diamond"
	case KindRoot:
		return "square"
	default:
		return "dot"
	}
}

func (k Kind) size() int {
	if k == KindRoot {
		return 2
	}
	return 1
}

func (k Kind) wrap() int {
	if k == KindRoot {
		return RootWrap
	}
	return OtherWrap
}

// color returns the resting color of a node of kind k at level.
func (k Kind) color(level int) string {
	switch k {
	case KindTag:
		return TagColor
	case KindRoot:
		return RootColor
	default:
		return LightenHex(PageColor, lightenPerLevel*level)
	}
}

// highlightColor is the traceback color at level.
func highlightColor(level int) string {
	return LightenHex(HighlightColor, lightenPerLevel*level)
}

// linkEdgeColor is the color of a link edge pointing at level: the
// border shade of that level's page color.
func linkEdgeColor(level int) string {
	return Darken(LightenHex(PageColor, lightenPerLevel*level))
}

// restyle sets the resting appearance of n for its variant.
func restyle(n *Node) {
	n.Color = n.Kind.color(n.Level)
	n.Shape = n.Kind.shape()
	n.Size = n.Kind.size()
}

// relabel wraps text for n's variant.
func relabel(n *Node, text string) {
	n.Label = WordWrap(text, n.Kind.wrap())
}

// restyleEdge sets the resting appearance of e. target is the node e
// points at, if present.
func restyleEdge(e *Edge, target *Node) {
	e.Width = NormalWidth
	if e.Kind == EdgeTag {
		e.Color = TagEdgeColor
		e.Dashed = true
		return
	}
	level := e.Level
	if target != nil {
		level = target.Level
	}
	e.Color = linkEdgeColor(level)
	e.Dashed = false
}

// WordWrap breaks text on spaces so that no line exceeds limit runes
// unless a single word does.
func WordWrap(text string, limit int) string {
	lines := []string{""}
	for _, word := range strings.Split(text, " ") {
		last := lines[len(lines)-1]
		if utf8.RuneCountInString(last)+utf8.RuneCountInString(word) > limit {
			lines = append(lines, word)
			continue
		}
		lines[len(lines)-1] = last + " " + word
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Unwrap reverses WordWrap.
func Unwrap(label string) string {
	return strings.ReplaceAll(label, "\n", " ")
}

// LightenHex moves each channel of hex percent of the way to white.
// Percentages above 100 are clamped. Malformed input is returned as is.
func LightenHex(hex string, percent int) string {
	rgb, ok := parseHex(hex)
	if !ok {
		return hex
	}
	if percent > 100 {
		percent = 100
	}
	p := float64(percent) / 100
	for i, x := range rgb {
		rgb[i] = x + p*(255-x)
	}
	return formatHex(rgb)
}

// Darken returns the border shade of hex: saturation raised by a quarter
// and value lowered by a fifth.
func Darken(hex string) string {
	rgb, ok := parseHex(hex)
	if !ok {
		return hex
	}
	h, s, v := rgbToHSV(rgb[0]/255, rgb[1]/255, rgb[2]/255)
	r, g, b := hsvToRGB(h, math.Min(1, s*1.25), v*0.8)
	return formatHex([3]float64{r * 255, g * 255, b * 255})
}

func parseHex(hex string) ([3]float64, bool) {
	var rgb [3]float64
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return rgb, false
	}
	for i := range rgb {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return rgb, false
		}
		rgb[i] = float64(v)
	}
	return rgb, true
}

func formatHex(rgb [3]float64) string {
	return fmt.Sprintf("#%02x%02x%02x",
		int(math.Round(rgb[0])), int(math.Round(rgb[1])), int(math.Round(rgb[2])))
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	d := maxC - minC
	if maxC == 0 || d == 0 {
		return 0, 0, v
	}
	s = d / maxC
	switch maxC {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h /= 6
	if h < 0 {
		h++
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
