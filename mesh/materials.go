package mesh

import (
	"fmt"
	"image/color"
	"strings"
	"sync"
)

// Material tags carried by meshes. The exporter maps them to real shaders.
const (
	MaterialWall         = "wall"
	MaterialWallExterior = "wall-exterior"
	MaterialWoodFloor    = "wood-floor"
	MaterialDeckWood     = "deck-wood"
	MaterialTileWhite    = "tile-white"
	MaterialTileBeige    = "tile-beige"
	MaterialCeiling      = "ceiling"
	MaterialTrim         = "trim"
	MaterialDoorFrame    = "door-frame"
	MaterialDoorPanel    = "door-panel"
	MaterialDoorHandle   = "door-handle"
	MaterialWindowFrame  = "window-frame"
	MaterialWindowGlass  = "window-glass"
	MaterialMetalChrome  = "metal-chrome"
)

// Material is the flat description of a surface handed to the exporter
type Material struct {
	Name      string  `json:"name" yaml:"name"`
	Color     string  `json:"color" yaml:"color"` // "#RRGGBB"
	Alpha     float64 `json:"alpha" yaml:"alpha"`
	Roughness float64 `json:"roughness" yaml:"roughness"`
	Metallic  float64 `json:"metallic" yaml:"metallic"`
}

// NRGBA returns the material color with its alpha applied
func (m *Material) NRGBA() color.NRGBA {
	c, ok := parseHexColor(m.Color)
	if !ok {
		c = color.NRGBA{128, 128, 128, 255}
	}
	c.A = uint8(clamp(m.Alpha, 0, 1) * 255)
	return c
}

// MaterialOverride replaces parts of a palette entry from configuration
type MaterialOverride struct {
	Color     string   `yaml:"color,omitempty" json:"color,omitempty"`
	Alpha     *float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Roughness *float64 `yaml:"roughness,omitempty" json:"roughness,omitempty"`
	Metallic  *float64 `yaml:"metallic,omitempty" json:"metallic,omitempty"`
}

// DefaultPalette returns the built-in material definitions
func DefaultPalette() map[string]Material {
	return map[string]Material{
		MaterialWall:         {Color: "#F2EDE0", Alpha: 1, Roughness: 0.9},
		MaterialWallExterior: {Color: "#EBE6D9", Alpha: 1, Roughness: 0.85},
		MaterialWoodFloor:    {Color: "#996638", Alpha: 1, Roughness: 0.4},
		MaterialDeckWood:     {Color: "#805933", Alpha: 1, Roughness: 0.5},
		MaterialTileWhite:    {Color: "#F2F2ED", Alpha: 1, Roughness: 0.15},
		MaterialTileBeige:    {Color: "#E6D9BF", Alpha: 1, Roughness: 0.2},
		MaterialCeiling:      {Color: "#FFFFFF", Alpha: 1, Roughness: 0.95},
		MaterialTrim:         {Color: "#B38C59", Alpha: 1, Roughness: 0.35},
		MaterialDoorFrame:    {Color: "#59381F", Alpha: 1, Roughness: 0.4},
		MaterialDoorPanel:    {Color: "#B38C59", Alpha: 1, Roughness: 0.35},
		MaterialDoorHandle:   {Color: "#D9B34D", Alpha: 1, Roughness: 0.3, Metallic: 0.9},
		MaterialWindowFrame:  {Color: "#B38C59", Alpha: 1, Roughness: 0.35},
		MaterialWindowGlass:  {Color: "#CCE6FF", Alpha: 0.3, Roughness: 0.05},
		MaterialMetalChrome:  {Color: "#E6E6E6", Alpha: 1, Roughness: 0.1, Metallic: 1},
	}
}

// MaterialLibrary hands out one material handle per key for the lifetime of
// a single build. It replaces a process-wide material cache.
type MaterialLibrary struct {
	mu      sync.Mutex
	palette map[string]Material
	handles map[string]*Material
	order   []string
}

// NewMaterialLibrary creates a library from the default palette with the
// given overrides applied
func NewMaterialLibrary(overrides map[string]MaterialOverride) *MaterialLibrary {
	palette := DefaultPalette()
	for key, o := range overrides {
		m := palette[key]
		if m.Alpha == 0 && o.Alpha == nil {
			m.Alpha = 1
		}
		if o.Color != "" {
			m.Color = o.Color
		}
		if o.Alpha != nil {
			m.Alpha = *o.Alpha
		}
		if o.Roughness != nil {
			m.Roughness = *o.Roughness
		}
		if o.Metallic != nil {
			m.Metallic = *o.Metallic
		}
		palette[key] = m
	}
	return &MaterialLibrary{
		palette: palette,
		handles: make(map[string]*Material),
	}
}

// Get returns the handle for key, creating it on first use. Unknown keys get
// a neutral grey so a typo never drops geometry.
func (l *MaterialLibrary) Get(key string) *Material {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.handles[key]; ok {
		return h
	}
	def, ok := l.palette[key]
	if !ok {
		def = Material{Color: "#808080", Alpha: 1, Roughness: 0.5}
	}
	def.Name = key
	h := &def
	l.handles[key] = h
	l.order = append(l.order, key)
	return h
}

// Used returns the handles created so far, in first-use order
func (l *MaterialLibrary) Used() []*Material {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Material, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.handles[key])
	}
	return out
}

// parseHexColor parses "#RRGGBB" or "#RGB" into an opaque color
func parseHexColor(hex string) (color.NRGBA, bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	var r, g, b uint8
	switch len(hex) {
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.NRGBA{}, false
		}
	case 3:
		if _, err := fmt.Sscanf(hex, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.NRGBA{}, false
		}
		r, g, b = r*17, g*17, b*17
	default:
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, true
}
