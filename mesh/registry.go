package mesh

import (
	"fmt"
	"math"
	"sync"
)

// DefaultKeyPrecision rounds wall endpoints to 0.1 plan units, matching the
// adjacency tolerance
const DefaultKeyPrecision = 1

// WallKey identifies a physical wall independent of which room builds it:
// the two endpoints, rounded and ordered.
type WallKey struct {
	X1, Y1, X2, Y2 int64
	Precision      int
}

// NewWallKey canonicalizes the endpoints p1, p2 at the given number of
// decimals. NewWallKey(a, b, n) == NewWallKey(b, a, n).
func NewWallKey(p1, p2 Point, precision int) WallKey {
	scale := math.Pow(10, float64(precision))
	ax, ay := int64(math.Round(p1.X*scale)), int64(math.Round(p1.Y*scale))
	bx, by := int64(math.Round(p2.X*scale)), int64(math.Round(p2.Y*scale))
	if bx < ax || (bx == ax && by < ay) {
		ax, ay, bx, by = bx, by, ax, ay
	}
	return WallKey{X1: ax, Y1: ay, X2: bx, Y2: by, Precision: precision}
}

func (k WallKey) String() string {
	scale := math.Pow(10, float64(k.Precision))
	return fmt.Sprintf("(%.*f,%.*f)-(%.*f,%.*f)",
		k.Precision, float64(k.X1)/scale, k.Precision, float64(k.Y1)/scale,
		k.Precision, float64(k.X2)/scale, k.Precision, float64(k.Y2)/scale)
}

// WallRegistry records which physical walls have been emitted during one
// build. Claims are atomic, so rooms may be assembled concurrently.
type WallRegistry struct {
	mu        sync.Mutex
	precision int
	claimed   map[WallKey]string
}

// NewWallRegistry creates an empty registry rounding keys to precision decimals
func NewWallRegistry(precision int) *WallRegistry {
	if precision < 0 {
		precision = DefaultKeyPrecision
	}
	return &WallRegistry{
		precision: precision,
		claimed:   make(map[WallKey]string),
	}
}

// Key builds the registry's key for a wall segment
func (r *WallRegistry) Key(p1, p2 Point) WallKey {
	return NewWallKey(p1, p2, r.precision)
}

// TryClaim records key for owner and returns true the first time the key is
// seen, false on every later call.
func (r *WallRegistry) TryClaim(key WallKey, owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claimed[key]; ok {
		return false
	}
	r.claimed[key] = owner
	return true
}

// Owner returns who claimed key
func (r *WallRegistry) Owner(key WallKey) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.claimed[key]
	return owner, ok
}

// Len returns the number of claimed walls
func (r *WallRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claimed)
}
