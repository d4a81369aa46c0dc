package menu

import (
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/features"
)

// Tool is the interaction mode selected from the radial menu.
type Tool string

const (
	// ToolNone is the empty selection: the menu was cancelled.
	ToolNone        Tool = ""
	ToolKeyboard    Tool = "KEYBOARD"
	ToolHighlighter Tool = "PAINTER_ALT"
	ToolMedia       Tool = "MEDIA"
	ToolPainter     Tool = "PAINTER"
)

// Tools lists every selectable tool.
var Tools = []Tool{ToolKeyboard, ToolHighlighter, ToolMedia, ToolPainter}

// ParseTool converts a tool name to a Tool.
func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}

// Sector is one of the four 90° wedges of the radial menu.
type Sector int

const (
	East Sector = iota
	South
	West
	North
)

func (s Sector) String() string {
	switch s {
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case North:
		return "north"
	}
	return fmt.Sprintf("sector(%d)", int(s))
}

// NormalizeAngle maps degrees onto [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// SectorOf resolves an angle in degrees, measured in image coordinates
// (y grows downward, so 90° points south). Each wedge is centered on a
// cardinal direction and is half-open: the low edge belongs to it, the high
// edge to its neighbour.
func SectorOf(deg float64) Sector {
	a := NormalizeAngle(deg)
	switch {
	case a >= 45 && a < 135:
		return South
	case a >= 135 && a < 225:
		return West
	case a >= 225 && a < 315:
		return North
	default:
		return East
	}
}

// Polar returns the angle in degrees [0, 360) and the distance of p
// relative to origin.
func Polar(origin, p features.Vec2) (angle, dist float64) {
	d := p.Sub(origin)
	return NormalizeAngle(math.Atan2(d.Y, d.X) * 180 / math.Pi), d.Len()
}

// Layout assigns a tool to each sector.
type Layout struct {
	East  Tool `yaml:"east" json:"east"`
	South Tool `yaml:"south" json:"south"`
	West  Tool `yaml:"west" json:"west"`
	North Tool `yaml:"north" json:"north"`
}

// DefaultLayout places the keyboard east and the painter north.
func DefaultLayout() Layout {
	return Layout{
		East:  ToolKeyboard,
		South: ToolHighlighter,
		West:  ToolMedia,
		North: ToolPainter,
	}
}

// Tool returns the tool placed in sector s.
func (l Layout) Tool(s Sector) Tool {
	switch s {
	case East:
		return l.East
	case South:
		return l.South
	case West:
		return l.West
	case North:
		return l.North
	}
	return ToolNone
}

// Validate checks that every sector holds a known tool.
func (l Layout) Validate() error {
	for _, s := range []Sector{East, South, West, North} {
		if _, err := ParseTool(string(l.Tool(s))); err != nil {
			return fmt.Errorf("layout %s: %w", s, err)
		}
	}
	return nil
}
