package mesh

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SceneStats summarizes a build
type SceneStats struct {
	Rooms         int     `json:"rooms"`
	SkippedRooms  int     `json:"skippedRooms"`
	Walls         int     `json:"walls"`
	InteriorWalls int     `json:"interiorWalls"`
	ExteriorWalls int     `json:"exteriorWalls"`
	Doors         int     `json:"doors"`
	Windows       int     `json:"windows"`
	Meshes        int     `json:"meshes"`
	Vertices      int     `json:"vertices"`
	Faces         int     `json:"faces"`
	FloorArea     float64 `json:"floorArea"`
}

// Scene is the output of one build: meshes in meters, right-handed, Z up
type Scene struct {
	ID        string       `json:"id,omitempty"`
	Units     string       `json:"units"`
	UpAxis    string       `json:"upAxis"`
	Tier      QualityTier  `json:"tier"`
	Meshes    []*Mesh      `json:"meshes"`
	Materials []*Material  `json:"materials"`
	Walls     []WallRecord `json:"walls"`
	Warnings  []Warning    `json:"warnings"`
	Stats     SceneStats   `json:"stats"`
}

// BuildScene synthesizes the whole plan. Rooms with invalid dimensions are
// skipped with a warning, doors and windows on unknown sides are dropped with
// a warning, and every other room is assembled in input order against a fresh
// build context. It only fails in strict mode on an ambiguous adjacency.
func BuildScene(plan *FloorPlan, opts BuildOptions) (*Scene, error) {
	ctx := NewBuildContext(opts)

	rooms := sanitizeRooms(plan.Rooms, ctx)

	scene := &Scene{
		ID:     plan.ID,
		Units:  "meters",
		UpAxis: "Z",
		Tier:   ctx.Options.Tier,
		Meshes: make([]*Mesh, 0, len(rooms)*8),
	}
	scene.Stats.SkippedRooms = len(plan.Rooms) - len(rooms)

	for i := range rooms {
		meshes, err := Assemble(&rooms[i], rooms, ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to assemble room %s: %w", rooms[i].ID, err)
		}
		scene.Meshes = append(scene.Meshes, meshes...)
		scene.Stats.FloorArea += rooms[i].Area()
	}

	scene.Materials = ctx.Materials.Used()
	scene.Walls = ctx.Walls()
	scene.Warnings = ctx.Warnings()
	scene.Stats.Rooms = len(rooms)
	scene.countStats()
	return scene, nil
}

// sanitizeRooms returns copies of the valid rooms with unusable openings
// removed. Repeated ids get a numeric suffix so mesh names and wall ownership
// stay unique.
func sanitizeRooms(in []Room, ctx *BuildContext) []Room {
	rooms := make([]Room, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		if err := r.Validate(); err != nil {
			ctx.Warn(WarnInvalidDimension, r.ID, "", "room skipped: %v", err)
			continue
		}
		if seen[r.ID] {
			id := uniqueRoomID(r.ID, seen)
			ctx.Warn(WarnDuplicateRoomID, r.ID, "", "repeated room id renamed to %s", id)
			r.ID = id
		}
		seen[r.ID] = true

		doors := make([]Door, 0, len(r.Doors))
		for _, d := range r.Doors {
			if !d.Wall.Valid() {
				ctx.Warn(WarnUnknownWallSide, r.ID, "", "door on unknown wall %q dropped", d.Wall)
				continue
			}
			doors = append(doors, d)
		}
		windows := make([]Window, 0, len(r.Windows))
		for _, w := range r.Windows {
			if !w.Wall.Valid() {
				ctx.Warn(WarnUnknownWallSide, r.ID, "", "window on unknown wall %q dropped", w.Wall)
				continue
			}
			windows = append(windows, w)
		}
		r.Doors = doors
		r.Windows = windows
		rooms = append(rooms, r)
	}
	return rooms
}

func uniqueRoomID(id string, seen map[string]bool) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !seen[candidate] {
			return candidate
		}
	}
}

func (s *Scene) countStats() {
	s.Stats.Walls = len(s.Walls)
	s.Stats.InteriorWalls, s.Stats.ExteriorWalls = 0, 0
	s.Stats.Doors, s.Stats.Windows = 0, 0
	for _, w := range s.Walls {
		if w.Interior {
			s.Stats.InteriorWalls++
		} else {
			s.Stats.ExteriorWalls++
		}
		if w.Opening == nil {
			continue
		}
		switch w.Opening.Kind {
		case OpeningDoor:
			s.Stats.Doors++
		case OpeningWindow:
			s.Stats.Windows++
		}
	}
	s.Stats.Meshes = len(s.Meshes)
	s.Stats.Vertices, s.Stats.Faces = 0, 0
	for _, m := range s.Meshes {
		s.Stats.Vertices += len(m.Vertices)
		s.Stats.Faces += len(m.Faces)
	}
}

// MeshByName returns the first mesh with the given name
func (s *Scene) MeshByName(name string) (*Mesh, bool) {
	for _, m := range s.Meshes {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// WallsOf returns the wall records built by the given room
func (s *Scene) WallsOf(roomID string) []WallRecord {
	var out []WallRecord
	for _, w := range s.Walls {
		if w.RoomID == roomID {
			out = append(out, w)
		}
	}
	return out
}

// WriteSceneJSON encodes the scene document to w
func WriteSceneJSON(w io.Writer, s *Scene) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode scene: %w", err)
	}
	return nil
}

// SaveSceneJSON writes the scene document to a file
func SaveSceneJSON(path string, s *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scene file: %w", err)
	}
	defer f.Close()
	return WriteSceneJSON(f, s)
}
