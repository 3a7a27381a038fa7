package mesh

import "math"

// OpeningKind distinguishes doors from windows
type OpeningKind string

const (
	OpeningDoor   OpeningKind = "door"
	OpeningWindow OpeningKind = "window"
)

// windowTopMargin keeps a window head below the ceiling
const windowTopMargin = 0.05

// Opening is the door or window selected for one wall, still expressed in the
// plan's fractional terms
type Opening struct {
	Kind     OpeningKind
	Position float64
	Width    float64
	Height   float64
	Bottom   float64
	Style    DoorStyle

	// RoomID is the room whose document entry defined the opening
	RoomID string

	// Ambiguous is set when the side also carries another door or window
	// that lost to this one
	Ambiguous bool
}

// ResolvedOpening is an opening rectangle in wall-local coordinates: Start/End
// along the wall measured from its first endpoint, Bottom/Top above the floor
type ResolvedOpening struct {
	Kind   OpeningKind `json:"kind"`
	Start  float64     `json:"start"`
	End    float64     `json:"end"`
	Bottom float64     `json:"bottom"`
	Top    float64     `json:"top"`
	Center float64     `json:"center"`
	Style  DoorStyle   `json:"style,omitempty"`
	RoomID string      `json:"roomId,omitempty"`
}

// Width returns the opening's extent along the wall
func (r ResolvedOpening) Width() float64 { return r.End - r.Start }

// Height returns the opening's vertical extent
func (r ResolvedOpening) Height() float64 { return r.Top - r.Bottom }

// SelectOpening picks at most one opening for the room's wall on side.
//
// Exterior walls (adjacent == nil) prefer a window on this side, then a door.
// Interior walls only take doors: this room's door on the side, else the
// neighbor's door on the opposite side. Windows never go on interior walls.
func SelectOpening(room *Room, side WallSide, adjacent *Room) *Opening {
	doors, windows := room.countOn(side)

	if adjacent == nil {
		if w, ok := room.WindowOn(side); ok {
			o := windowOpening(room.ID, w)
			o.Ambiguous = windows > 1 || doors > 0
			return o
		}
		if d, ok := room.DoorOn(side); ok {
			o := doorOpening(room.ID, d)
			o.Ambiguous = doors > 1
			return o
		}
		return nil
	}

	if d, ok := room.DoorOn(side); ok {
		o := doorOpening(room.ID, d)
		o.Ambiguous = doors > 1 || windows > 0
		return o
	}
	if d, ok := adjacent.DoorOn(side.Opposite()); ok {
		adjDoors, adjWindows := adjacent.countOn(side.Opposite())
		o := doorOpening(adjacent.ID, d)
		o.Position = projectPosition(adjacent, side.Opposite(), room, side, d.Position)
		o.Ambiguous = adjDoors > 1 || adjWindows > 0 || windows > 0
		return o
	}
	return nil
}

// projectPosition re-expresses a fraction along from's wall on fromSide as a
// fraction along to's wall on toSide, keeping the same world point. Rooms of
// different spans share only part of a wall, so the raw fraction would move
// the opening.
func projectPosition(from *Room, fromSide WallSide, to *Room, toSide WallSide, pos float64) float64 {
	f1, f2, _ := from.WallSegment(fromSide)
	t1, t2, _ := to.WallSegment(toSide)
	length := Distance(t1, t2)
	if length == 0 {
		return pos
	}
	world := Lerp(f1, f2, clamp(pos, 0, 1))
	return ((world.X-t1.X)*(t2.X-t1.X) + (world.Y-t1.Y)*(t2.Y-t1.Y)) / (length * length)
}

func doorOpening(roomID string, d *Door) *Opening {
	return &Opening{
		Kind:     OpeningDoor,
		Position: d.Position,
		Width:    d.Width,
		Height:   d.Height,
		Style:    d.Style,
		RoomID:   roomID,
	}
}

func windowOpening(roomID string, w *Window) *Opening {
	return &Opening{
		Kind:     OpeningWindow,
		Position: w.Position,
		Width:    w.Width,
		Height:   w.Height,
		Bottom:   w.Bottom,
		RoomID:   roomID,
	}
}

// Resolve converts the opening to wall-local extents for a wall of the given
// length and height. It returns false when the opening collapses to nothing.
// Position is a fraction from the wall's first endpoint.
func (o *Opening) Resolve(length, height float64) (ResolvedOpening, bool) {
	pos := clamp(o.Position, 0, 1)
	center := pos * length

	r := ResolvedOpening{
		Kind:   o.Kind,
		Center: center,
		Start:  math.Max(OpeningEdgeMargin, center-o.Width/2),
		End:    math.Min(length-OpeningEdgeMargin, center+o.Width/2),
		RoomID: o.RoomID,
	}

	switch o.Kind {
	case OpeningDoor:
		r.Style = o.Style
		r.Bottom = 0
		r.Top = math.Min(o.Height, height)
	case OpeningWindow:
		r.Bottom = math.Max(OpeningEdgeMargin, o.Bottom)
		r.Top = math.Min(o.Bottom+o.Height, height-windowTopMargin)
	}

	if r.End-r.Start < collapseEpsilon || r.Top-r.Bottom < collapseEpsilon {
		return ResolvedOpening{}, false
	}
	return r, true
}
