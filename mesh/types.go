package mesh

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Default dimensions in meters, used when the plan document leaves them out
const (
	DefaultRoomHeight    = 2.8
	DefaultOpeningPos    = 0.5
	DefaultDoorWidth     = 0.9
	DefaultDoorHeight    = 2.1
	DefaultWindowWidth   = 1.2
	DefaultWindowHeight  = 1.4
	DefaultWindowBottom  = 0.9
	DefaultWallThickness = 0.12
)

// Point represents a 2D plan coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Orb converts the point to an orb.Point
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// WallSide names one of the four cardinal walls of a room
type WallSide string

const (
	SideFront WallSide = "front" // y = room.y
	SideBack  WallSide = "back"  // y = room.y2
	SideLeft  WallSide = "left"  // x = room.x
	SideRight WallSide = "right" // x = room.x2
)

// CardinalSides is the fixed order in which a room's walls are built
var CardinalSides = []WallSide{SideFront, SideBack, SideLeft, SideRight}

// Valid reports whether s is one of the four cardinal sides
func (s WallSide) Valid() bool {
	switch s {
	case SideFront, SideBack, SideLeft, SideRight:
		return true
	}
	return false
}

// Opposite returns the side facing s across a shared wall
func (s WallSide) Opposite() WallSide {
	switch s {
	case SideFront:
		return SideBack
	case SideBack:
		return SideFront
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return s
}

// RoomType tags what a room is used for. Unknown values are kept verbatim.
type RoomType string

const (
	RoomLiving   RoomType = "living"
	RoomBedroom  RoomType = "bedroom"
	RoomKitchen  RoomType = "kitchen"
	RoomBathroom RoomType = "bathroom"
	RoomHallway  RoomType = "hallway"
	RoomStairs   RoomType = "stairs"
	RoomDeck     RoomType = "deck"
	RoomBalcony  RoomType = "balcony"
	RoomDining   RoomType = "dining"
	RoomOffice   RoomType = "office"
)

// DoorStyle selects the fixture built into a door opening
type DoorStyle string

const (
	DoorStandard     DoorStyle = "standard"
	DoorSlidingGlass DoorStyle = "sliding_glass"
)

// normalizeDoorStyle folds the accepted spellings into the canonical styles
func normalizeDoorStyle(s string) DoorStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sliding_glass", "sliding-glass", "slidingglass", "sliding":
		return DoorSlidingGlass
	case "":
		return DoorStandard
	}
	return DoorStyle(strings.ToLower(strings.TrimSpace(s)))
}

// Door is a door placement on one wall of a room
type Door struct {
	Wall     WallSide  `json:"wall"`
	Position float64   `json:"position"` // fraction along the wall, 0 = start, 1 = end
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Style    DoorStyle `json:"type"`
}

// UnmarshalJSON fills in door defaults for fields the document omits
func (d *Door) UnmarshalJSON(data []byte) error {
	type rawDoor Door
	raw := rawDoor{
		Position: DefaultOpeningPos,
		Width:    DefaultDoorWidth,
		Height:   DefaultDoorHeight,
		Style:    DoorStandard,
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Style = normalizeDoorStyle(string(raw.Style))
	raw.Wall = WallSide(strings.ToLower(string(raw.Wall)))
	*d = Door(raw)
	return nil
}

// Window is a window placement on one wall of a room
type Window struct {
	Wall     WallSide `json:"wall"`
	Position float64  `json:"position"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Bottom   float64  `json:"bottom"` // sill height above the floor
}

// UnmarshalJSON fills in window defaults for fields the document omits
func (w *Window) UnmarshalJSON(data []byte) error {
	type rawWindow Window
	raw := rawWindow{
		Position: DefaultOpeningPos,
		Width:    DefaultWindowWidth,
		Height:   DefaultWindowHeight,
		Bottom:   DefaultWindowBottom,
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Wall = WallSide(strings.ToLower(string(raw.Wall)))
	*w = Window(raw)
	return nil
}

// Room is an axis-aligned rectangular room of the floor plan
type Room struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Type     RoomType `json:"type"`
	Width    float64  `json:"width"`
	Length   float64  `json:"length"`
	Height   float64  `json:"height"`
	Outdoor  bool     `json:"outdoor,omitempty"`
	Position Point    `json:"position"`
	Doors    []Door   `json:"doors,omitempty"`
	Windows  []Window `json:"windows,omitempty"`
}

// UnmarshalJSON accepts string or numeric ids and defaults an absent height.
// An explicit non-positive height is kept so validation can reject the room.
func (r *Room) UnmarshalJSON(data []byte) error {
	type rawRoom Room
	var envelope struct {
		rawRoom
		ID     json.RawMessage `json:"id"`
		Height *float64        `json:"height"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	*r = Room(envelope.rawRoom)

	id, err := decodeID(envelope.ID)
	if err != nil {
		return fmt.Errorf("room id: %w", err)
	}
	r.ID = id

	if envelope.Height == nil {
		r.Height = DefaultRoomHeight
	} else {
		r.Height = *envelope.Height
	}
	if r.Type == "" {
		r.Type = RoomLiving
	}
	r.Type = RoomType(strings.ToLower(string(r.Type)))
	return nil
}

// decodeID turns a JSON string or number into a string identifier
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", string(raw))
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// X returns the room's minimum x coordinate
func (r *Room) X() float64 { return r.Position.X }

// Y returns the room's minimum y coordinate
func (r *Room) Y() float64 { return r.Position.Y }

// X2 returns x + width
func (r *Room) X2() float64 { return r.Position.X + r.Width }

// Y2 returns y + length
func (r *Room) Y2() float64 { return r.Position.Y + r.Length }

// Center returns the midpoint of the room's footprint
func (r *Room) Center() Point {
	return Point{X: r.Position.X + r.Width/2, Y: r.Position.Y + r.Length/2}
}

// Bound returns the room's footprint as an orb.Bound
func (r *Room) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.X(), r.Y()},
		Max: orb.Point{r.X2(), r.Y2()},
	}
}

// Area returns the footprint area in square meters
func (r *Room) Area() float64 {
	a := planar.Area(r.Bound().ToPolygon())
	if a < 0 {
		return -a
	}
	return a
}

// OpenAir reports whether the room has no walls and no ceiling: decks,
// balconies and anything flagged outdoor.
func (r *Room) OpenAir() bool {
	return r.Outdoor || r.Type == RoomDeck || r.Type == RoomBalcony
}

// Label returns the display name, falling back to the id
func (r *Room) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// WallSegment returns the start and end points of the wall on the given side.
// Front and back run along +x, left and right along +y.
func (r *Room) WallSegment(side WallSide) (Point, Point, bool) {
	switch side {
	case SideFront:
		return Point{r.X(), r.Y()}, Point{r.X2(), r.Y()}, true
	case SideBack:
		return Point{r.X(), r.Y2()}, Point{r.X2(), r.Y2()}, true
	case SideLeft:
		return Point{r.X(), r.Y()}, Point{r.X(), r.Y2()}, true
	case SideRight:
		return Point{r.X2(), r.Y()}, Point{r.X2(), r.Y2()}, true
	}
	return Point{}, Point{}, false
}

// DoorOn returns the first door on the given side
func (r *Room) DoorOn(side WallSide) (*Door, bool) {
	for i := range r.Doors {
		if r.Doors[i].Wall == side {
			return &r.Doors[i], true
		}
	}
	return nil, false
}

// WindowOn returns the first window on the given side
func (r *Room) WindowOn(side WallSide) (*Window, bool) {
	for i := range r.Windows {
		if r.Windows[i].Wall == side {
			return &r.Windows[i], true
		}
	}
	return nil, false
}

// countOn returns how many doors and windows the room places on side
func (r *Room) countOn(side WallSide) (doors, windows int) {
	for _, d := range r.Doors {
		if d.Wall == side {
			doors++
		}
	}
	for _, w := range r.Windows {
		if w.Wall == side {
			windows++
		}
	}
	return doors, windows
}

// Validate rejects rooms whose dimensions cannot describe real geometry
func (r *Room) Validate() error {
	if r.Width <= 0 {
		return fmt.Errorf("room %s: width %.3f: %w", r.ID, r.Width, ErrInvalidDimension)
	}
	if r.Length <= 0 {
		return fmt.Errorf("room %s: length %.3f: %w", r.ID, r.Length, ErrInvalidDimension)
	}
	if r.Height <= 0 {
		return fmt.Errorf("room %s: height %.3f: %w", r.ID, r.Height, ErrInvalidDimension)
	}
	return nil
}

// FloorPlan is the declarative input document: an ordered list of rooms
type FloorPlan struct {
	ID    string `json:"id,omitempty"`
	Rooms []Room `json:"rooms"`
}

// Bounds returns the plan extent over all rooms
func (p *FloorPlan) Bounds() (orb.Bound, bool) {
	if len(p.Rooms) == 0 {
		return orb.Bound{}, false
	}
	b := p.Rooms[0].Bound()
	for i := 1; i < len(p.Rooms); i++ {
		b = b.Union(p.Rooms[i].Bound())
	}
	return b, true
}

// RoomByID returns the room with the given id
func (p *FloorPlan) RoomByID(id string) (*Room, bool) {
	for i := range p.Rooms {
		if p.Rooms[i].ID == id {
			return &p.Rooms[i], true
		}
	}
	return nil, false
}
