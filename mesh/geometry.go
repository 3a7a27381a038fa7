package mesh

import (
	"math"
)

// Vec3 is a 3D position or direction in meters, Z up
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Scale(k float64) Vec3 {
	return Vec3{a[0] * k, a[1] * k, a[2] * k}
}
func (a Vec3) Dot(b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }

// Mesh is a named polygon mesh with one material tag. Faces are quads or
// triangles indexing into Vertices, wound counter-clockwise seen from outside.
type Mesh struct {
	Name     string  `json:"name"`
	Material string  `json:"material"`
	Vertices []Vec3  `json:"vertices"`
	Faces    [][]int `json:"faces"`
}

// NewMesh creates an empty mesh
func NewMesh(name, material string) *Mesh {
	return &Mesh{
		Name:     name,
		Material: material,
		Vertices: make([]Vec3, 0, 32),
		Faces:    make([][]int, 0, 32),
	}
}

// AddVertex appends a vertex and returns its index
func (m *Mesh) AddVertex(v Vec3) int {
	m.Vertices = append(m.Vertices, v)
	return len(m.Vertices) - 1
}

// AddFace appends a face and orients it so its normal points along outward.
// Faces with a zero-area normal are dropped.
func (m *Mesh) AddFace(outward Vec3, idx ...int) bool {
	face := make([]int, len(idx))
	copy(face, idx)

	n := m.faceNormal(face)
	if n.Len() < 1e-12 {
		return false
	}
	if n.Dot(outward) < 0 {
		reverseFace(face)
	}
	m.Faces = append(m.Faces, face)
	return true
}

func reverseFace(face []int) {
	for i, j := 0, len(face)-1; i < j; i, j = i+1, j-1 {
		face[i], face[j] = face[j], face[i]
	}
}

// faceNormal computes the (unnormalized) Newell normal of a polygon
func (m *Mesh) faceNormal(face []int) Vec3 {
	var n Vec3
	for i := range face {
		a := m.Vertices[face[i]]
		b := m.Vertices[face[(i+1)%len(face)]]
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	return n
}

// FaceNormal returns the unit normal of face i
func (m *Mesh) FaceNormal(i int) Vec3 {
	n := m.faceNormal(m.Faces[i])
	l := n.Len()
	if l == 0 {
		return n
	}
	return n.Scale(1 / l)
}

// FaceCenter returns the vertex average of face i
func (m *Mesh) FaceCenter(i int) Vec3 {
	var c Vec3
	for _, idx := range m.Faces[i] {
		c = c.Add(m.Vertices[idx])
	}
	return c.Scale(1 / float64(len(m.Faces[i])))
}

// Bounds returns the axis-aligned bounding box of the mesh
func (m *Mesh) Bounds() (min, max Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			min[k] = math.Min(min[k], v[k])
			max[k] = math.Max(max[k], v[k])
		}
	}
	return min, max
}

// Edge is an undirected edge with the smaller vertex index first
type Edge [2]int

func makeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// EdgeUseCounts returns how many faces border each undirected edge
func (m *Mesh) EdgeUseCounts() map[Edge]int {
	counts := make(map[Edge]int)
	for _, f := range m.Faces {
		for i := range f {
			counts[makeEdge(f[i], f[(i+1)%len(f)])]++
		}
	}
	return counts
}

// IsManifold reports whether every edge borders exactly two faces
func (m *Mesh) IsManifold() bool {
	if len(m.Faces) == 0 {
		return false
	}
	for _, c := range m.EdgeUseCounts() {
		if c != 2 {
			return false
		}
	}
	return true
}

// IsConsistentlyOriented reports whether every directed edge is traversed
// exactly once and its reverse exactly once, i.e. neighboring faces agree on
// winding.
func (m *Mesh) IsConsistentlyOriented() bool {
	directed := make(map[[2]int]int)
	for _, f := range m.Faces {
		for i := range f {
			directed[[2]int{f[i], f[(i+1)%len(f)]}]++
		}
	}
	for e, c := range directed {
		if c != 1 || directed[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

// Triangles fan-triangulates every face
func (m *Mesh) Triangles() [][3]int {
	tris := make([][3]int, 0, len(m.Faces)*2)
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			tris = append(tris, [3]int{f[0], f[i], f[i+1]})
		}
	}
	return tris
}

// Volume returns the signed enclosed volume. It is positive for a closed mesh
// whose faces point outward.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, t := range m.Triangles() {
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}

// CoincidentVertices counts vertex pairs closer than eps
func (m *Mesh) CoincidentVertices(eps float64) int {
	n := 0
	for i := range m.Vertices {
		for j := i + 1; j < len(m.Vertices); j++ {
			if m.Vertices[i].Sub(m.Vertices[j]).Len() < eps {
				n++
			}
		}
	}
	return n
}

// NewBox builds an oriented box centered at center. size is (along heading,
// across heading, height) and yaw rotates the box around Z.
func NewBox(name, material string, center Vec3, size Vec3, yaw float64) *Mesh {
	m := NewMesh(name, material)
	f := YawFrame(center, yaw)
	addBox(m, f, -size[0]/2, size[0]/2, -size[1]/2, size[1]/2, -size[2]/2, size[2]/2)
	return m
}

// addBox appends a closed box spanning [s0,s1]x[t0,t1]x[z0,z1] in frame f
func addBox(m *Mesh, f Frame, s0, s1, t0, t1, z0, z1 float64) {
	v := func(s, t, z float64) int { return m.AddVertex(f.ToWorld(s, t, z)) }
	a := v(s0, t0, z0)
	b := v(s1, t0, z0)
	c := v(s1, t1, z0)
	d := v(s0, t1, z0)
	e := v(s0, t0, z1)
	g := v(s1, t0, z1)
	h := v(s1, t1, z1)
	k := v(s0, t1, z1)

	m.AddFace(f.Direction(0, 0, -1), a, b, c, d)
	m.AddFace(f.Direction(0, 0, 1), e, g, h, k)
	m.AddFace(f.Direction(0, -1, 0), a, b, g, e)
	m.AddFace(f.Direction(0, 1, 0), d, c, h, k)
	m.AddFace(f.Direction(-1, 0, 0), a, d, k, e)
	m.AddFace(f.Direction(1, 0, 0), b, c, h, g)
}

// NewCylinder builds a closed vertical cylinder centered at center
func NewCylinder(name, material string, center Vec3, radius, height float64, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	m := NewMesh(name, material)
	z0 := center[2] - height/2
	z1 := center[2] + height/2

	bottom := make([]int, segments)
	top := make([]int, segments)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		x := center[0] + radius*math.Cos(a)
		y := center[1] + radius*math.Sin(a)
		bottom[i] = m.AddVertex(Vec3{x, y, z0})
		top[i] = m.AddVertex(Vec3{x, y, z1})
	}
	bc := m.AddVertex(Vec3{center[0], center[1], z0})
	tc := m.AddVertex(Vec3{center[0], center[1], z1})

	for i := 0; i < segments; i++ {
		j := (i + 1) % segments
		mid := 2 * math.Pi * (float64(i) + 0.5) / float64(segments)
		out := Vec3{math.Cos(mid), math.Sin(mid), 0}
		m.AddFace(out, bottom[i], bottom[j], top[j], top[i])
		m.AddFace(Vec3{0, 0, -1}, bc, bottom[i], bottom[j])
		m.AddFace(Vec3{0, 0, 1}, tc, top[i], top[j])
	}
	return m
}
