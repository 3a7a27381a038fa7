package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimension marks a room whose width, length or height is not positive
	ErrInvalidDimension = errors.New("invalid room dimension")

	// ErrDegenerateWall marks a wall too short to carry geometry
	ErrDegenerateWall = errors.New("degenerate wall")

	// ErrAmbiguousAdjacency is returned in strict mode when a wall has more
	// than one candidate neighbor
	ErrAmbiguousAdjacency = errors.New("ambiguous adjacency")
)

// WarningKind classifies a recoverable problem found while building a scene
type WarningKind string

const (
	WarnInvalidDimension       WarningKind = "InvalidDimension"
	WarnAmbiguousOpening       WarningKind = "AmbiguousOpening"
	WarnUnresolvedAdjacencyTie WarningKind = "UnresolvedAdjacencyTie"
	WarnUnknownWallSide        WarningKind = "UnknownWallSide"
	WarnDuplicateRoomID        WarningKind = "DuplicateRoomID"
)

// Warning is reported upward with the scene instead of failing the build
type Warning struct {
	Kind    WarningKind `json:"kind"`
	RoomID  string      `json:"roomId,omitempty"`
	Side    WallSide    `json:"side,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Side != "" {
		return fmt.Sprintf("%s: room %s %s wall: %s", w.Kind, w.RoomID, w.Side, w.Message)
	}
	if w.RoomID != "" {
		return fmt.Sprintf("%s: room %s: %s", w.Kind, w.RoomID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
