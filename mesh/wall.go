package mesh

import (
	"fmt"
)

const (
	// MinWallLength is the shortest wall that produces geometry. Anything
	// shorter is a false adjacency artifact.
	MinWallLength = 0.05

	// OpeningEdgeMargin keeps openings off the very ends of a wall
	OpeningEdgeMargin = 0.05

	// collapseEpsilon merges grid breakpoints closer than 1mm
	collapseEpsilon = 1e-3
)

// WallParams describes one physical wall to synthesize
type WallParams struct {
	Name      string
	Start     Point
	End       Point
	Height    float64
	Thickness float64
	Material  string
	Opening   *ResolvedOpening // nil for a solid wall
}

// BuildWall synthesizes a single closed mesh for a wall. Without an opening
// it is a box; with one, the wall face is split by a grid at the opening's
// extents and the center cell is left out, so the hole has no seams and no
// duplicated vertices. Walls shorter than MinWallLength return
// ErrDegenerateWall.
func BuildWall(p WallParams) (*Mesh, error) {
	frame, length, ok := WallFrame(p.Start, p.End)
	if !ok || length < MinWallLength {
		return nil, fmt.Errorf("wall %s: length %.3f: %w", p.Name, length, ErrDegenerateWall)
	}
	if p.Height <= 0 {
		return nil, fmt.Errorf("wall %s: height %.3f: %w", p.Name, p.Height, ErrDegenerateWall)
	}

	thickness := p.Thickness
	if thickness <= 0 {
		thickness = DefaultWallThickness
	}
	material := p.Material
	if material == "" {
		material = MaterialWall
	}
	half := thickness / 2

	m := NewMesh(p.Name, material)

	if p.Opening == nil {
		addBox(m, frame, 0, length, -half, half, 0, p.Height)
		return m, nil
	}

	start, end, bottom, top, ok := clampOpening(*p.Opening, length, p.Height)
	if !ok {
		addBox(m, frame, 0, length, -half, half, 0, p.Height)
		return m, nil
	}

	xs, xi := mergeBreaks([4]float64{0, start, end, length})
	zs, zi := mergeBreaks([4]float64{0, bottom, top, p.Height})
	addGridWall(m, frame, xs, zs, xi[1], zi[1], half)
	return m, nil
}

// clampOpening fits the opening into the wall: start/end into
// [margin, length-margin], bottom/top into [0, height]. It reports false when
// nothing of the opening is left.
func clampOpening(o ResolvedOpening, length, height float64) (start, end, bottom, top float64, ok bool) {
	start = clamp(o.Start, OpeningEdgeMargin, length-OpeningEdgeMargin)
	end = clamp(o.End, OpeningEdgeMargin, length-OpeningEdgeMargin)
	bottom = clamp(o.Bottom, 0, height)
	top = clamp(o.Top, 0, height)
	if end-start < collapseEpsilon || top-bottom < collapseEpsilon {
		return 0, 0, 0, 0, false
	}
	if bottom < collapseEpsilon {
		bottom = 0
	}
	if top > height-collapseEpsilon {
		top = height
	}
	return start, end, bottom, top, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mergeBreaks drops breakpoints that coincide with their predecessor and
// returns the distinct values plus, for each input, the index it landed on.
// The last breakpoint always keeps its exact value.
func mergeBreaks(vals [4]float64) ([]float64, [4]int) {
	out := []float64{vals[0]}
	var idx [4]int
	for i := 1; i < len(vals); i++ {
		if vals[i]-out[len(out)-1] < collapseEpsilon {
			if i == len(vals)-1 {
				out[len(out)-1] = vals[i]
			}
		} else {
			out = append(out, vals[i])
		}
		idx[i] = len(out) - 1
	}
	return out, idx
}

// addGridWall emits the wall as the extrusion of a grid of cells in the
// wall's (s, z) plane with cell (hi, hj) removed. Front faces sit at t=+half,
// back faces at t=-half, and every cell edge that borders the outside or the
// hole gets a quad joining front and back.
func addGridWall(m *Mesh, f Frame, xs, zs []float64, hi, hj int, half float64) {
	nx, nz := len(xs), len(zs)
	front := make([][]int, nx)
	back := make([][]int, nx)
	for i := 0; i < nx; i++ {
		front[i] = make([]int, nz)
		back[i] = make([]int, nz)
		for j := 0; j < nz; j++ {
			front[i][j] = m.AddVertex(f.ToWorld(xs[i], half, zs[j]))
			back[i][j] = m.AddVertex(f.ToWorld(xs[i], -half, zs[j]))
		}
	}

	filled := func(i, j int) bool {
		if i < 0 || j < 0 || i >= nx-1 || j >= nz-1 {
			return false
		}
		return !(i == hi && j == hj)
	}

	var (
		outFront = f.Direction(0, 1, 0)
		outBack  = f.Direction(0, -1, 0)
		outLeft  = f.Direction(-1, 0, 0)
		outRight = f.Direction(1, 0, 0)
		outDown  = f.Direction(0, 0, -1)
		outUp    = f.Direction(0, 0, 1)
	)

	for i := 0; i < nx-1; i++ {
		for j := 0; j < nz-1; j++ {
			if !filled(i, j) {
				continue
			}
			m.AddFace(outFront, front[i][j], front[i+1][j], front[i+1][j+1], front[i][j+1])
			m.AddFace(outBack, back[i][j], back[i+1][j], back[i+1][j+1], back[i][j+1])

			if !filled(i-1, j) {
				m.AddFace(outLeft, front[i][j], front[i][j+1], back[i][j+1], back[i][j])
			}
			if !filled(i+1, j) {
				m.AddFace(outRight, front[i+1][j], front[i+1][j+1], back[i+1][j+1], back[i+1][j])
			}
			if !filled(i, j-1) {
				m.AddFace(outDown, front[i][j], front[i+1][j], back[i+1][j], back[i][j])
			}
			if !filled(i, j+1) {
				m.AddFace(outUp, front[i][j+1], front[i+1][j+1], back[i+1][j+1], back[i][j+1])
			}
		}
	}
}
