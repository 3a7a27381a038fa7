package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// maxPreviewSize caps either image dimension of a raster preview
const maxPreviewSize = 4000

var (
	previewBackground = color.RGBA{240, 240, 240, 255}
	previewText       = color.RGBA{0, 0, 0, 255}
	previewDoor       = color.RGBA{160, 110, 60, 255}
	previewWindow     = color.RGBA{80, 160, 220, 255}
)

// PlanRenderer draws a labelled raster preview of a plan and its walls
type PlanRenderer struct {
	Plan       *FloorPlan
	Scene      *Scene
	Scale      float64 // pixels per meter
	Padding    int     // pixels around the plan
	Thickness  float64 // wall thickness in meters
	ShowLabels bool
}

// NewPlanRenderer creates a raster renderer with default settings
func NewPlanRenderer(plan *FloorPlan, scene *Scene) *PlanRenderer {
	return &PlanRenderer{
		Plan:       plan,
		Scene:      scene,
		Scale:      DefaultPixelsPerMeter,
		Padding:    30,
		Thickness:  DefaultWallThickness,
		ShowLabels: true,
	}
}

// HasDrawableContent returns true if at least one room has a footprint
func (r *PlanRenderer) HasDrawableContent() bool {
	return HasRooms(r.Plan)
}

// Render draws the plan. Plan +Y points up in the image.
func (r *PlanRenderer) Render() *image.RGBA {
	var minX, minY, maxX, maxY float64
	if b, ok := r.bounds(); ok {
		minX, minY, maxX, maxY = b[0], b[1], b[2], b[3]
	}

	scale := r.Scale
	if scale <= 0 {
		scale = DefaultPixelsPerMeter
	}
	if span := math.Max(maxX-minX, maxY-minY) * scale; span > maxPreviewSize-2*float64(r.Padding) {
		scale *= (maxPreviewSize - 2*float64(r.Padding)) / span
	}

	width := int((maxX-minX)*scale) + 2*r.Padding
	height := int((maxY-minY)*scale) + 2*r.Padding
	if width <= 0 {
		width = 2*r.Padding + 1
	}
	if height <= 0 {
		height = 2*r.Padding + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, previewBackground)
		}
	}

	toImage := func(p Point) (int, int) {
		x := int(math.Round((p.X-minX)*scale)) + r.Padding
		y := height - (int(math.Round((p.Y-minY)*scale)) + r.Padding)
		return x, y
	}

	// fillWorldRect fills the image rectangle covering the world box
	fillWorldRect := func(x0, y0, x1, y1 float64, c color.NRGBA) {
		ax, ay := toImage(Point{math.Min(x0, x1), math.Max(y0, y1)})
		bx, by := toImage(Point{math.Max(x0, x1), math.Min(y0, y1)})
		for y := ay; y < by; y++ {
			for x := ax; x < bx; x++ {
				if x >= 0 && x < width && y >= 0 && y < height {
					img.Set(x, y, blendColors(img.RGBAAt(x, y), c))
				}
			}
		}
	}

	palette := DefaultPalette()
	if r.Plan != nil {
		for i := range r.Plan.Rooms {
			room := &r.Plan.Rooms[i]
			if room.Width <= 0 || room.Length <= 0 {
				continue
			}
			m := palette[floorMaterial(room)]
			c := m.NRGBA()
			c.A = 150
			fillWorldRect(room.X(), room.Y(), room.X2(), room.Y2(), c)
		}
	}

	half := r.Thickness / 2
	if r.Scene != nil {
		for _, w := range r.Scene.Walls {
			c := color.NRGBA{40, 40, 40, 255}
			if w.Interior {
				c = color.NRGBA{90, 90, 90, 255}
			}
			fillWorldRect(w.Start.X-half, w.Start.Y-half, w.End.X+half, w.End.Y+half, c)
		}
		for _, w := range r.Scene.Walls {
			if w.Opening == nil || w.Length <= 0 {
				continue
			}
			a := Lerp(w.Start, w.End, w.Opening.Start/w.Length)
			b := Lerp(w.Start, w.End, w.Opening.End/w.Length)
			c := previewDoor
			if w.Opening.Kind == OpeningWindow {
				c = previewWindow
			}
			fillWorldRect(a.X-half, a.Y-half, b.X+half, b.Y+half, color.NRGBA{c.R, c.G, c.B, 255})
		}
	}

	if r.ShowLabels && r.Plan != nil {
		for i := range r.Plan.Rooms {
			room := &r.Plan.Rooms[i]
			if room.Width <= 0 || room.Length <= 0 {
				continue
			}
			cx, cy := toImage(room.Center())
			drawCenteredText(img, cx, cy, room.Label(), previewText)
			drawCenteredText(img, cx, cy+14, fmt.Sprintf("%.1f m2", room.Area()), previewText)
		}
		r.drawLegend(img)
	}

	return img
}

// bounds returns minX, minY, maxX, maxY of the plan
func (r *PlanRenderer) bounds() ([4]float64, bool) {
	if r.Plan == nil {
		return [4]float64{}, false
	}
	b, ok := r.Plan.Bounds()
	if !ok {
		return [4]float64{}, false
	}
	return [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}, true
}

// drawLegend writes the build counts in the top-left corner
func (r *PlanRenderer) drawLegend(img *image.RGBA) {
	line := fmt.Sprintf("%d rooms", len(r.Plan.Rooms))
	if r.Scene != nil {
		line = fmt.Sprintf("%d rooms, %d walls, %d doors, %d windows",
			r.Scene.Stats.Rooms, r.Scene.Stats.Walls, r.Scene.Stats.Doors, r.Scene.Stats.Windows)
	}
	drawText(img, 10, 15, line, previewText)
}

// EncodePNG writes the rendered preview as PNG
func (r *PlanRenderer) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.Render())
}

// SavePNG saves the preview to a file
func (r *PlanRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.EncodePNG(f)
}

// blendColors performs alpha blending of two colors
func blendColors(bg color.RGBA, fg color.NRGBA) color.NRGBA {
	// RGBA is premultiplied, so un-premultiply the background first
	var bgNRGBA color.NRGBA
	switch bg.A {
	case 0:
		bgNRGBA = color.NRGBA{0, 0, 0, 0}
	case 255:
		bgNRGBA = color.NRGBA{bg.R, bg.G, bg.B, 255}
	default:
		alpha32 := uint32(bg.A)
		bgNRGBA = color.NRGBA{
			R: uint8((uint32(bg.R) * 255) / alpha32),
			G: uint8((uint32(bg.G) * 255) / alpha32),
			B: uint8((uint32(bg.B) * 255) / alpha32),
			A: bg.A,
		}
	}

	alpha := float64(fg.A) / 255.0
	invAlpha := 1.0 - alpha

	return color.NRGBA{
		R: uint8(float64(fg.R)*alpha + float64(bgNRGBA.R)*invAlpha),
		G: uint8(float64(fg.G)*alpha + float64(bgNRGBA.G)*invAlpha),
		B: uint8(float64(fg.B)*alpha + float64(bgNRGBA.B)*invAlpha),
		A: 255,
	}
}

// drawText renders text onto an image with its baseline at y
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// drawCenteredText renders text horizontally centered on x
func drawCenteredText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	w := font.MeasureString(basicfont.Face7x13, text).Round()
	drawText(img, x-w/2, y, text, c)
}
