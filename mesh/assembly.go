package mesh

import (
	"errors"
	"fmt"
	"math"
)

const (
	slabThickness = 0.02
	trimHeight    = 0.08
	trimDepth     = 0.015
	plankWidth    = 0.15
	plankGap      = 0.01
	plankInset    = 0.05
	plankHeight   = 0.025
)

// WallRecord describes one emitted wall for consumers that do not need the mesh
type WallRecord struct {
	Name       string           `json:"name"`
	RoomID     string           `json:"roomId"`
	Side       WallSide         `json:"side"`
	Key        string           `json:"key"`
	Start      Point            `json:"start"`
	End        Point            `json:"end"`
	Length     float64          `json:"length"`
	Height     float64          `json:"height"`
	Interior   bool             `json:"interior"`
	AdjacentID string           `json:"adjacentId,omitempty"`
	Opening    *ResolvedOpening `json:"opening,omitempty"`
}

// Assemble builds every mesh owned by room: floor, ceiling, its walls in
// front/back/left/right order and the fixtures in their openings. A wall
// already claimed in ctx by another room is skipped, so a shared wall is
// emitted exactly once with the opening either room defines for it.
// The only error is ErrAmbiguousAdjacency in strict mode.
func Assemble(room *Room, rooms []Room, ctx *BuildContext) ([]*Mesh, error) {
	var meshes []*Mesh

	meshes = append(meshes, buildFloor(room, ctx)...)
	if ceiling := buildCeiling(room, ctx); ceiling != nil {
		meshes = append(meshes, ceiling)
	}

	if room.OpenAir() {
		return meshes, nil
	}

	for _, side := range CardinalSides {
		wall, err := assembleWall(room, side, rooms, ctx)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, wall...)
	}

	if ctx.Options.Tier == TierDetailed {
		if trim := buildTrim(room, rooms, ctx); trim != nil {
			meshes = append(meshes, trim)
		}
	}
	return meshes, nil
}

// neighbor resolves the room across side, reporting ties. Open-air rooms
// never count as neighbors: a wall facing a deck is an exterior wall.
func neighbor(room *Room, side WallSide, rooms []Room, ctx *BuildContext, report bool) (*Room, error) {
	candidates := AdjacentCandidates(room, side, rooms, ctx.Options.AdjacencyTolerance)
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > 1 && report {
		if ctx.Options.StrictAdjacency {
			return nil, fmt.Errorf("room %s %s wall: %d candidate neighbors: %w",
				room.ID, side, len(candidates), ErrAmbiguousAdjacency)
		}
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		ctx.Warn(WarnUnresolvedAdjacencyTie, room.ID, side, "candidates %v, using %s", ids, ids[0])
	}
	if candidates[0].OpenAir() {
		return nil, nil
	}
	return candidates[0], nil
}

func assembleWall(room *Room, side WallSide, rooms []Room, ctx *BuildContext) ([]*Mesh, error) {
	p1, p2, _ := room.WallSegment(side)
	key := ctx.Registry.Key(p1, p2)
	if !ctx.Registry.TryClaim(key, room.ID) {
		return nil, nil
	}

	adjacent, err := neighbor(room, side, rooms, ctx, true)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("wall_%s_%s", room.ID, side)
	length := Distance(p1, p2)

	var resolved *ResolvedOpening
	if o := SelectOpening(room, side, adjacent); o != nil {
		if o.Ambiguous {
			ctx.Warn(WarnAmbiguousOpening, room.ID, side, "using the %s defined by room %s, ignoring the rest", o.Kind, o.RoomID)
		}
		if r, ok := o.Resolve(length, room.Height); ok {
			resolved = &r
		}
	}

	material := MaterialWallExterior
	if adjacent != nil {
		material = MaterialWall
	}

	wall, err := BuildWall(WallParams{
		Name:      name,
		Start:     p1,
		End:       p2,
		Height:    room.Height,
		Thickness: ctx.Options.WallThickness,
		Material:  ctx.material(material),
		Opening:   resolved,
	})
	if err != nil {
		if !errors.Is(err, ErrDegenerateWall) {
			ctx.Warn(WarnInvalidDimension, room.ID, side, "wall omitted: %v", err)
		}
		return nil, nil
	}

	rec := WallRecord{
		Name:     name,
		RoomID:   room.ID,
		Side:     side,
		Key:      key.String(),
		Start:    p1,
		End:      p2,
		Length:   length,
		Height:   room.Height,
		Interior: adjacent != nil,
		Opening:  resolved,
	}
	if adjacent != nil {
		rec.AdjacentID = adjacent.ID
	}
	ctx.recordWall(rec)

	meshes := []*Mesh{wall}
	if resolved != nil && ctx.Options.Tier == TierDetailed {
		frame, _, _ := WallFrame(p1, p2)
		meshes = append(meshes, BuildFixture(ctx, fixtureName(name, *resolved), frame, *resolved)...)
	}
	return meshes, nil
}

// floorMaterial picks the floor finish for a room type
func floorMaterial(room *Room) string {
	switch {
	case room.OpenAir():
		return MaterialDeckWood
	case room.Type == RoomBathroom:
		return MaterialTileWhite
	case room.Type == RoomKitchen:
		return MaterialTileBeige
	}
	return MaterialWoodFloor
}

// planFrame is the world frame translated to the room's corner
func planFrame(room *Room) Frame {
	return Frame{
		Origin: Vec3{room.X(), room.Y(), 0},
		U:      Vec3{1, 0, 0},
		N:      Vec3{0, 1, 0},
	}
}

func buildFloor(room *Room, ctx *BuildContext) []*Mesh {
	f := planFrame(room)
	material := ctx.material(floorMaterial(room))

	if room.OpenAir() && ctx.Options.Tier == TierDetailed {
		pitch := plankWidth + plankGap
		count := int(room.Length / pitch)
		if count > 0 && room.Width > 2*plankInset {
			deck := NewMesh("deck_"+room.ID, material)
			for i := 0; i < count; i++ {
				cy := pitch/2 + float64(i)*pitch
				addBox(deck, f, plankInset, room.Width-plankInset,
					cy-plankWidth/2, cy+plankWidth/2,
					slabThickness-plankHeight/2, slabThickness+plankHeight/2)
			}
			return []*Mesh{deck}
		}
	}

	floor := NewMesh("floor_"+room.ID, material)
	addBox(floor, f, 0, room.Width, 0, room.Length, 0, slabThickness)
	return []*Mesh{floor}
}

func buildCeiling(room *Room, ctx *BuildContext) *Mesh {
	if room.OpenAir() || ctx.Options.SkipCeilings {
		return nil
	}
	ceiling := NewMesh("ceiling_"+room.ID, ctx.material(MaterialCeiling))
	addBox(ceiling, planFrame(room), 0, room.Width, 0, room.Length, room.Height-slabThickness, room.Height)
	return ceiling
}

// buildTrim lays baseboards along the inner face of each wall, broken at
// the doorway on that side
func buildTrim(room *Room, rooms []Room, ctx *BuildContext) *Mesh {
	half := ctx.Options.WallThickness / 2
	if room.Width <= 2*(half+trimDepth) || room.Length <= 2*(half+trimDepth) {
		return nil
	}

	trim := NewMesh("trim_"+room.ID, ctx.material(MaterialTrim))
	z0, z1 := slabThickness, slabThickness+trimHeight
	world := Frame{U: Vec3{1, 0, 0}, N: Vec3{0, 1, 0}}

	for _, side := range CardinalSides {
		p1, p2, _ := room.WallSegment(side)
		length := Distance(p1, p2)
		lo, hi := half, length-half

		var spans [][2]float64
		if gap, ok := doorGap(room, side, rooms, ctx, length); ok {
			spans = append(spans, [2]float64{lo, math.Min(gap[0], hi)}, [2]float64{math.Max(gap[1], lo), hi})
		} else {
			spans = append(spans, [2]float64{lo, hi})
		}

		for _, span := range spans {
			if span[1]-span[0] < MinWallLength {
				continue
			}
			switch side {
			case SideFront:
				addBox(trim, world, p1.X+span[0], p1.X+span[1], p1.Y+half, p1.Y+half+trimDepth, z0, z1)
			case SideBack:
				addBox(trim, world, p1.X+span[0], p1.X+span[1], p1.Y-half-trimDepth, p1.Y-half, z0, z1)
			case SideLeft:
				addBox(trim, world, p1.X+half, p1.X+half+trimDepth, p1.Y+span[0], p1.Y+span[1], z0, z1)
			case SideRight:
				addBox(trim, world, p1.X-half-trimDepth, p1.X-half, p1.Y+span[0], p1.Y+span[1], z0, z1)
			}
		}
	}

	if len(trim.Faces) == 0 {
		return nil
	}
	return trim
}

// doorGap returns the extent along the wall of the door opening on side, if any
func doorGap(room *Room, side WallSide, rooms []Room, ctx *BuildContext, length float64) ([2]float64, bool) {
	adjacent, _ := neighbor(room, side, rooms, ctx, false)
	o := SelectOpening(room, side, adjacent)
	if o == nil || o.Kind != OpeningDoor {
		return [2]float64{}, false
	}
	r, ok := o.Resolve(length, room.Height)
	if !ok {
		return [2]float64{}, false
	}
	return [2]float64{r.Start, r.End}, true
}
