package mesh

import (
	"fmt"
	"math"
)

const (
	doorFrameWidth   = 0.06
	doorFrameDepth   = 0.10
	doorPanelDepth   = 0.04
	doorOpenAngle    = 15.0 // degrees
	doorHandleRadius = 0.015
	doorHandleLength = 0.10
	doorHandleHeight = 1.0

	slidingFrameSize  = 0.04
	slidingGlassDepth = 0.01

	windowFrameWidth = 0.05
	windowFrameDepth = 0.08
	windowSillDepth  = 0.12
	windowGlassDepth = 0.01
)

// fixtureBuilder places boxes in a frame centered on an opening
type fixtureBuilder struct {
	ctx    *BuildContext
	frame  Frame
	prefix string
	meshes []*Mesh
}

func newFixtureBuilder(ctx *BuildContext, wall Frame, o ResolvedOpening, prefix string) *fixtureBuilder {
	return &fixtureBuilder{
		ctx:    ctx,
		prefix: prefix,
		frame: Frame{
			Origin: wall.ToWorld((o.Start+o.End)/2, 0, 0),
			U:      wall.U,
			N:      wall.N,
		},
	}
}

// box adds an axis-aligned box in the fixture frame. Boxes with a
// non-positive extent are skipped.
func (b *fixtureBuilder) box(name, material string, f Frame, s0, s1, t0, t1, z0, z1 float64) {
	if s1-s0 <= 0 || t1-t0 <= 0 || z1-z0 <= 0 {
		return
	}
	m := NewMesh(b.prefix+"_"+name, b.ctx.material(material))
	addBox(m, f, s0, s1, t0, t1, z0, z1)
	b.meshes = append(b.meshes, m)
}

// centered adds a box given its center and size in the fixture frame
func (b *fixtureBuilder) centered(name, material string, s, z, sizeS, sizeT, sizeZ float64) {
	b.box(name, material, b.frame, s-sizeS/2, s+sizeS/2, -sizeT/2, sizeT/2, z-sizeZ/2, z+sizeZ/2)
}

// BuildFixture returns the meshes that fill an opening: a door with frame,
// panel and handle, a sliding glass door, or a framed window. wall is the
// frame of the wall carrying the opening.
func BuildFixture(ctx *BuildContext, name string, wall Frame, o ResolvedOpening) []*Mesh {
	b := newFixtureBuilder(ctx, wall, o, name)
	switch o.Kind {
	case OpeningDoor:
		if o.Style == DoorSlidingGlass {
			b.slidingDoor(o.Width(), o.Top)
		} else {
			b.hingedDoor(o.Width(), o.Top)
		}
	case OpeningWindow:
		b.window(o.Width(), o.Bottom, o.Height())
	}
	return b.meshes
}

func (b *fixtureBuilder) hingedDoor(width, height float64) {
	fw := doorFrameWidth
	side := width/2 - fw/2
	b.centered("frame_L", MaterialDoorFrame, -side, height/2, fw, doorFrameDepth, height)
	b.centered("frame_R", MaterialDoorFrame, side, height/2, fw, doorFrameDepth, height)
	b.centered("frame_T", MaterialDoorFrame, 0, height-fw/2, width-2*fw, doorFrameDepth, fw)

	panelW := width - 2*fw - 0.02
	panelH := height - fw - 0.02
	if panelW <= 0 || panelH <= 0 {
		return
	}

	// The panel hangs off the left frame, swung open
	pivot := b.frame.ToWorld(-width/2+fw, 0, 0)
	yaw := math.Atan2(b.frame.U[1], b.frame.U[0]) + doorOpenAngle*math.Pi/180
	hinge := YawFrame(pivot, yaw)
	half := doorPanelDepth / 2
	b.box("panel", MaterialDoorPanel, hinge, 0.01, 0.01+panelW, -half, half, 0.01, 0.01+panelH)

	if height > doorHandleHeight+doorHandleLength {
		at := hinge.ToWorld(0.01+panelW-0.08, half+doorHandleRadius, doorHandleHeight)
		handle := NewCylinder(b.prefix+"_handle", b.ctx.material(MaterialDoorHandle), at, doorHandleRadius, doorHandleLength, 12)
		b.meshes = append(b.meshes, handle)
	}
}

func (b *fixtureBuilder) slidingDoor(width, height float64) {
	fs := slidingFrameSize
	side := width/2 - fs/2
	b.centered("frame_L", MaterialMetalChrome, -side, height/2, fs, fs, height)
	b.centered("frame_R", MaterialMetalChrome, side, height/2, fs, fs, height)
	b.centered("frame_T", MaterialMetalChrome, 0, height-fs/2, width-2*fs, fs, fs)

	panelW := (width - 2*fs) / 2
	if panelW <= 0 {
		return
	}
	// Panels sit on separate tracks so they never share a plane
	z0, z1 := 0.02, height-fs
	g := slidingGlassDepth
	b.box("glass_L", MaterialWindowGlass, b.frame, -panelW-0.01, -0.01+0.005, 0.005, 0.005+g, z0, z1)
	b.box("glass_R", MaterialWindowGlass, b.frame, 0.01-0.005, panelW+0.01, -0.005-g, -0.005, z0, z1)
}

func (b *fixtureBuilder) window(width, bottom, height float64) {
	fw := windowFrameWidth
	side := width/2 - fw/2
	cz := bottom + height/2
	b.centered("frame_L", MaterialWindowFrame, -side, cz, fw, windowFrameDepth, height)
	b.centered("frame_R", MaterialWindowFrame, side, cz, fw, windowFrameDepth, height)
	b.centered("frame_T", MaterialWindowFrame, 0, bottom+height-fw/2, width-2*fw, windowFrameDepth, fw)
	b.centered("sill", MaterialWindowFrame, 0, bottom+fw/2, width+0.04, windowSillDepth, fw)
	b.centered("glass", MaterialWindowGlass, 0, cz, width-2*fw-0.02, windowGlassDepth, height-2*fw-0.02)
}

// fixtureName names the fixture carried by a wall
func fixtureName(wallName string, o ResolvedOpening) string {
	switch {
	case o.Kind == OpeningWindow:
		return fmt.Sprintf("%s_window", wallName)
	case o.Style == DoorSlidingGlass:
		return fmt.Sprintf("%s_sliding_door", wallName)
	}
	return fmt.Sprintf("%s_door", wallName)
}
