package mesh

import "math"

// DefaultAdjacencyTolerance is how far apart two boundaries may be, in plan
// units, and still count as one shared wall
const DefaultAdjacencyTolerance = 0.3

// AdjacentCandidates returns every room across the given wall of room, in
// input order. room is skipped by identity, so it must point into rooms. A candidate's facing boundary must lie within tolerance of the
// wall and its span on the other axis must overlap the wall's span (open
// interval, so rooms touching only at a corner do not count).
func AdjacentCandidates(room *Room, side WallSide, rooms []Room, tolerance float64) []*Room {
	if tolerance <= 0 {
		tolerance = DefaultAdjacencyTolerance
	}

	var found []*Room
	for i := range rooms {
		other := &rooms[i]
		if other == room {
			continue
		}
		if facing(room, other, side, tolerance) {
			found = append(found, other)
		}
	}
	return found
}

// FindAdjacent returns the first room across the given wall, or nil when the
// wall is exterior. Ties go to the earliest room in input order.
func FindAdjacent(room *Room, side WallSide, rooms []Room, tolerance float64) *Room {
	candidates := AdjacentCandidates(room, side, rooms, tolerance)
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

func facing(room, other *Room, side WallSide, tolerance float64) bool {
	switch side {
	case SideRight:
		return math.Abs(other.X()-room.X2()) < tolerance && overlaps(other.Y(), other.Y2(), room.Y(), room.Y2())
	case SideLeft:
		return math.Abs(other.X2()-room.X()) < tolerance && overlaps(other.Y(), other.Y2(), room.Y(), room.Y2())
	case SideBack:
		return math.Abs(other.Y()-room.Y2()) < tolerance && overlaps(other.X(), other.X2(), room.X(), room.X2())
	case SideFront:
		return math.Abs(other.Y2()-room.Y()) < tolerance && overlaps(other.X(), other.X2(), room.X(), room.X2())
	}
	return false
}

// overlaps reports whether the open intervals (alo, ahi) and (blo, bhi) intersect
func overlaps(alo, ahi, blo, bhi float64) bool {
	return alo < bhi && ahi > blo
}
