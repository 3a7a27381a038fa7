package mesh

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha,
// which is what the canvas library expects
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

var (
	exteriorWallColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	interiorWallColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	doorSwingColor    = color.RGBA{R: 120, G: 80, B: 40, A: 255}
	windowPaneColor   = color.RGBA{R: 80, G: 160, B: 220, A: 255}
	gridLineColor     = color.RGBA{R: 211, G: 211, B: 211, A: 255}
)

// VectorRenderer draws a top-down plan view of a floor plan and, when a
// scene is given, its synthesized walls and openings
type VectorRenderer struct {
	Plan          *FloorPlan
	Scene         *Scene
	Scale         float64           // canvas millimeters per plan meter
	Padding       float64           // padding in plan meters
	Resolution    canvas.Resolution // resolution for PNG output
	GridSpacing   float64           // grid line spacing in plan meters; 0 disables
	WallThickness float64           // drawn wall thickness in plan meters
}

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer(plan *FloorPlan, scene *Scene) *VectorRenderer {
	return &VectorRenderer{
		Plan:          plan,
		Scene:         scene,
		Scale:         20.0, // 1:50
		Padding:       0.5,
		Resolution:    canvas.DPI(DefaultVectorDPI),
		GridSpacing:   DefaultGridSpacing,
		WallThickness: DefaultWallThickness,
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// size returns the canvas size in millimeters
func (r *VectorRenderer) size() (minX, minY, width, height float64, err error) {
	if r.Plan == nil {
		return 0, 0, 0, 0, fmt.Errorf("no plan to render")
	}
	b, ok := r.Plan.Bounds()
	if !ok {
		return 0, 0, 0, 0, fmt.Errorf("plan has no rooms")
	}
	minX, minY = b.Min.X(), b.Min.Y()
	width = (b.Max.X() - minX + 2*r.Padding) * r.Scale
	height = (b.Max.Y() - minY + 2*r.Padding) * r.Scale
	return minX, minY, width, height, nil
}

// RenderToSVG writes the plan as an SVG to the provided writer
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, width, height, err := r.size()
	if err != nil {
		return err
	}
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the plan as a PNG to the provided writer
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, width, height, err := r.size()
	if err != nil {
		return err
	}
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, width, height)
	return png.Encode(w, rast)
}

// renderToCanvas holds the drawing shared by SVG and PNG output
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(p Point) (float64, float64) {
		return (p.X - minX + r.Padding) * r.Scale, (p.Y - minY + r.Padding) * r.Scale
	}
	line := func(a, b Point) *canvas.Path {
		p := &canvas.Path{}
		x1, y1 := toCanvas(a)
		x2, y2 := toCanvas(b)
		p.MoveTo(x1, y1)
		p.LineTo(x2, y2)
		return p
	}

	// Room floors
	palette := DefaultPalette()
	for i := range r.Plan.Rooms {
		room := &r.Plan.Rooms[i]
		if room.Width <= 0 || room.Length <= 0 {
			continue
		}
		m := palette[floorMaterial(room)]
		fill := m.NRGBA()
		fill.A = 110

		floorStyle := canvas.DefaultStyle
		floorStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}
		floorStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
		if room.OpenAir() {
			floorStyle.Stroke = canvas.Paint{Color: canvas.Gray}
			floorStyle.StrokeWidth = 0.3
			floorStyle.Dashes = []float64{2.0, 2.0}
		}

		x, y := toCanvas(room.Position)
		rect := canvas.Rectangle(room.Width*r.Scale, room.Length*r.Scale).Translate(x, y)
		renderer.RenderPath(rect, floorStyle, canvas.Identity)
	}

	// Grid
	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: gridLineColor}
		gridStyle.StrokeWidth = 0.15
		gridStyle.Dashes = []float64{1.0, 1.0}

		maxX := minX + width/r.Scale
		maxY := minY + height/r.Scale
		for x := math.Floor((minX-r.Padding)/r.GridSpacing) * r.GridSpacing; x <= maxX; x += r.GridSpacing {
			renderer.RenderPath(line(Point{x, minY - r.Padding}, Point{x, maxY}), gridStyle, canvas.Identity)
		}
		for y := math.Floor((minY-r.Padding)/r.GridSpacing) * r.GridSpacing; y <= maxY; y += r.GridSpacing {
			renderer.RenderPath(line(Point{minX - r.Padding, y}, Point{maxX, y}), gridStyle, canvas.Identity)
		}
	}

	if r.Scene == nil {
		r.renderRoomOutlines(renderer, line)
		return
	}

	// Walls
	for _, w := range r.Scene.Walls {
		wallStyle := canvas.DefaultStyle
		wallStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		wallStyle.Stroke = canvas.Paint{Color: exteriorWallColor}
		if w.Interior {
			wallStyle.Stroke = canvas.Paint{Color: interiorWallColor}
		}
		wallStyle.StrokeWidth = r.WallThickness * r.Scale
		renderer.RenderPath(line(w.Start, w.End), wallStyle, canvas.Identity)
	}

	// Openings drawn over their walls
	for _, w := range r.Scene.Walls {
		if w.Opening == nil || w.Length <= 0 {
			continue
		}
		o := w.Opening
		a := Lerp(w.Start, w.End, o.Start/w.Length)
		b := Lerp(w.Start, w.End, o.End/w.Length)

		gapStyle := canvas.DefaultStyle
		gapStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gapStyle.Stroke = canvas.Paint{Color: canvas.White}
		gapStyle.StrokeWidth = r.WallThickness * r.Scale * 1.05
		renderer.RenderPath(line(a, b), gapStyle, canvas.Identity)

		markStyle := canvas.DefaultStyle
		markStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		markStyle.StrokeWidth = 0.4

		switch o.Kind {
		case OpeningWindow:
			markStyle.Stroke = canvas.Paint{Color: windowPaneColor}
			renderer.RenderPath(line(a, b), markStyle, canvas.Identity)
		case OpeningDoor:
			markStyle.Stroke = canvas.Paint{Color: doorSwingColor}
			renderer.RenderPath(r.doorSwing(a, b, toCanvas), markStyle, canvas.Identity)
		}
	}
}

// renderRoomOutlines strokes every room rectangle when no scene is available
func (r *VectorRenderer) renderRoomOutlines(renderer canvasRenderer, line func(a, b Point) *canvas.Path) {
	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: canvas.Transparent}
	style.Stroke = canvas.Paint{Color: exteriorWallColor}
	style.StrokeWidth = r.WallThickness * r.Scale

	for i := range r.Plan.Rooms {
		room := &r.Plan.Rooms[i]
		if room.OpenAir() || room.Width <= 0 || room.Length <= 0 {
			continue
		}
		for _, side := range CardinalSides {
			p1, p2, _ := room.WallSegment(side)
			renderer.RenderPath(line(p1, p2), style, canvas.Identity)
		}
	}
}

// doorSwing traces the leaf and a quarter arc of a door hinged at a
func (r *VectorRenderer) doorSwing(a, b Point, toCanvas func(Point) (float64, float64)) *canvas.Path {
	p := &canvas.Path{}
	for i, pt := range doorSwingPoints(a, b) {
		x, y := toCanvas(pt)
		if i == 0 {
			p.MoveTo(x, y)
			continue
		}
		p.LineTo(x, y)
	}
	return p
}

// doorSwingPoints runs from the hinge at a to the open leaf tip, then along
// the arc back to the closed leaf at b
func doorSwingPoints(a, b Point) []Point {
	const steps = 12
	pts := make([]Point, 0, steps+2)
	pts = append(pts, a)
	for i := steps; i >= 0; i-- {
		pts = append(pts, RotateAround(b, a, 90*float64(i)/steps))
	}
	return pts
}
