package mesh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ParsePlanFile reads and parses a floor plan JSON file
func ParsePlanFile(path string) (*FloorPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParsePlanJSON(data)
}

// ParsePlanJSON parses a floor plan document. Three shapes are accepted:
// {"rooms": [...]}, the same wrapped as {"roomData": {...}}, and a bare room
// object, which becomes a one-room plan.
func ParsePlanJSON(data []byte) (*FloorPlan, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("parsing JSON: plan must be a JSON object")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if inner, ok := keys["roomData"]; ok {
		plan, err := ParsePlanJSON(inner)
		if err != nil {
			return nil, fmt.Errorf("roomData: %w", err)
		}
		return plan, nil
	}

	if _, ok := keys["rooms"]; !ok {
		var room Room
		if err := json.Unmarshal(data, &room); err != nil {
			return nil, fmt.Errorf("parsing room: %w", err)
		}
		if room.ID == "" {
			room.ID = "room"
		}
		return &FloorPlan{ID: room.ID, Rooms: []Room{room}}, nil
	}

	var plan FloorPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	assignRoomIDs(plan.Rooms)
	return &plan, nil
}

// assignRoomIDs names unnamed rooms roomN by position, skipping any name an
// explicit id already uses
func assignRoomIDs(rooms []Room) {
	used := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		if r.ID != "" {
			used[r.ID] = true
		}
	}
	for i := range rooms {
		if rooms[i].ID != "" {
			continue
		}
		id := fmt.Sprintf("room%d", i+1)
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("room%d-%d", i+1, n)
		}
		used[id] = true
		rooms[i].ID = id
	}
}

// PlanSummary provides a summary of plan contents
type PlanSummary struct {
	ID           string   `json:"id,omitempty"`
	RoomCount    int      `json:"roomCount"`
	OpenAirRooms int      `json:"openAirRooms"`
	DoorCount    int      `json:"doorCount"`
	WindowCount  int      `json:"windowCount"`
	RoomNames    []string `json:"roomNames"`
	RoomTypes    []string `json:"roomTypes"`
	Width        float64  `json:"width"`
	Length       float64  `json:"length"`
	FloorArea    float64  `json:"floorArea"`
}

// Summarize extracts key information from a plan
func Summarize(p *FloorPlan) PlanSummary {
	summary := PlanSummary{
		ID:        p.ID,
		RoomCount: len(p.Rooms),
	}

	types := make(map[string]bool)
	for i := range p.Rooms {
		r := &p.Rooms[i]
		if r.OpenAir() {
			summary.OpenAirRooms++
		}
		summary.DoorCount += len(r.Doors)
		summary.WindowCount += len(r.Windows)
		summary.RoomNames = append(summary.RoomNames, r.Label())
		types[string(r.Type)] = true
		if r.Width > 0 && r.Length > 0 {
			summary.FloorArea += r.Area()
		}
	}
	for t := range types {
		summary.RoomTypes = append(summary.RoomTypes, t)
	}
	sort.Strings(summary.RoomTypes)

	if b, ok := p.Bounds(); ok {
		summary.Width = b.Max.X() - b.Min.X()
		summary.Length = b.Max.Y() - b.Min.Y()
	}
	return summary
}

// HasRooms returns true if the plan contains at least one room with a footprint
func HasRooms(p *FloorPlan) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Rooms {
		if r.Width > 0 && r.Length > 0 {
			return true
		}
	}
	return false
}
