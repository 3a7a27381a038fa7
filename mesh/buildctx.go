package mesh

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// QualityTier selects how much non-structural geometry a build emits
type QualityTier string

const (
	// TierBasic emits floors, ceilings and walls with their openings
	TierBasic QualityTier = "basic"
	// TierDetailed adds door and window fixtures, baseboards and deck planks
	TierDetailed QualityTier = "detailed"
)

// ParseQualityTier maps a flag or config value to a tier
func ParseQualityTier(s string) (QualityTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TierDetailed):
		return TierDetailed, nil
	case string(TierBasic):
		return TierBasic, nil
	}
	return "", fmt.Errorf("unknown quality tier %q (must be basic or detailed)", s)
}

// BuildOptions tunes a scene build
type BuildOptions struct {
	Tier               QualityTier                 `yaml:"tier" json:"tier"`
	WallThickness      float64                     `yaml:"wallThickness" json:"wallThickness"`
	AdjacencyTolerance float64                     `yaml:"adjacencyTolerance" json:"adjacencyTolerance"`
	KeyPrecision       *int                        `yaml:"keyPrecision,omitempty" json:"keyPrecision,omitempty"`
	SkipCeilings       bool                        `yaml:"skipCeilings" json:"skipCeilings"`
	StrictAdjacency    bool                        `yaml:"strictAdjacency" json:"strictAdjacency"`
	Materials          map[string]MaterialOverride `yaml:"materials,omitempty" json:"materials,omitempty"`
}

// DefaultBuildOptions returns the options used when nothing is configured
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Tier:               TierDetailed,
		WallThickness:      DefaultWallThickness,
		AdjacencyTolerance: DefaultAdjacencyTolerance,
	}
}

// withDefaults fills zero values
func (o BuildOptions) withDefaults() BuildOptions {
	if o.Tier == "" {
		o.Tier = TierDetailed
	}
	if o.WallThickness <= 0 {
		o.WallThickness = DefaultWallThickness
	}
	if o.AdjacencyTolerance <= 0 {
		o.AdjacencyTolerance = DefaultAdjacencyTolerance
	}
	return o
}

// keyPrecision returns the configured rounding for wall keys
func (o BuildOptions) keyPrecision() int {
	if o.KeyPrecision != nil && *o.KeyPrecision >= 0 {
		return *o.KeyPrecision
	}
	return DefaultKeyPrecision
}

// BuildContext is the scoped state of one synthesis run: options, the wall
// registry, the material handles and the warnings collected so far. Create
// one per build and drop it afterwards.
type BuildContext struct {
	Options   BuildOptions
	Registry  *WallRegistry
	Materials *MaterialLibrary

	mu       sync.Mutex
	warnings []Warning
	walls    []WallRecord
}

// NewBuildContext creates the state for a fresh build
func NewBuildContext(opts BuildOptions) *BuildContext {
	opts = opts.withDefaults()
	return &BuildContext{
		Options:   opts,
		Registry:  NewWallRegistry(opts.keyPrecision()),
		Materials: NewMaterialLibrary(opts.Materials),
	}
}

// Warn records a warning and logs it
func (c *BuildContext) Warn(kind WarningKind, roomID string, side WallSide, format string, args ...interface{}) {
	w := Warning{
		Kind:    kind,
		RoomID:  roomID,
		Side:    side,
		Message: fmt.Sprintf(format, args...),
	}
	log.Printf("Warning: %s", w)

	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

// Warnings returns a copy of the warnings collected so far
func (c *BuildContext) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *BuildContext) recordWall(w WallRecord) {
	c.mu.Lock()
	c.walls = append(c.walls, w)
	c.mu.Unlock()
}

// Walls returns the walls emitted so far, in build order
func (c *BuildContext) Walls() []WallRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WallRecord, len(c.walls))
	copy(out, c.walls)
	return out
}

// material returns the tag for key, registering the handle for the run
func (c *BuildContext) material(key string) string {
	return c.Materials.Get(key).Name
}
