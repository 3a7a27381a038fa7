package mesh

import "math"

// Frame is a right-handed local coordinate system whose third axis is world Z.
// Local (s, t, z) maps to Origin + U*s + N*t + Z*z. U and N are unit vectors in
// the XY plane with U x N = +Z, so orientation is preserved.
type Frame struct {
	Origin Vec3
	U      Vec3
	N      Vec3
}

// ToWorld maps a local point to world coordinates
func (f Frame) ToWorld(s, t, z float64) Vec3 {
	return Vec3{
		f.Origin[0] + f.U[0]*s + f.N[0]*t,
		f.Origin[1] + f.U[1]*s + f.N[1]*t,
		f.Origin[2] + z,
	}
}

// Direction maps a local direction (no translation) to world coordinates
func (f Frame) Direction(s, t, z float64) Vec3 {
	return Vec3{
		f.U[0]*s + f.N[0]*t,
		f.U[1]*s + f.N[1]*t,
		z,
	}
}

// YawFrame builds a frame at origin rotated by yaw radians around Z
func YawFrame(origin Vec3, yaw float64) Frame {
	c, s := math.Cos(yaw), math.Sin(yaw)
	return Frame{
		Origin: origin,
		U:      Vec3{c, s, 0},
		N:      Vec3{-s, c, 0},
	}
}

// WallFrame builds the frame of the wall running from p1 to p2 on the floor
// (z = 0) and returns the wall length. A zero-length wall returns ok=false.
func WallFrame(p1, p2 Point) (Frame, float64, bool) {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return Frame{}, 0, false
	}
	ux, uy := dx/length, dy/length
	return Frame{
		Origin: Vec3{p1.X, p1.Y, 0},
		U:      Vec3{ux, uy, 0},
		N:      Vec3{-uy, ux, 0},
	}, length, true
}

// Lerp returns the point at fraction t along p1->p2
func Lerp(p1, p2 Point, t float64) Point {
	return Point{X: p1.X + (p2.X-p1.X)*t, Y: p1.Y + (p2.Y-p1.Y)*t}
}

// Distance returns the Euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// RotateAround rotates p by degrees CCW around center
func RotateAround(p, center Point, degrees float64) Point {
	if degrees == 0 {
		return p
	}
	rad := degrees * math.Pi / 180
	x := p.X - center.X
	y := p.Y - center.Y
	return Point{
		X: x*math.Cos(rad) - y*math.Sin(rad) + center.X,
		Y: x*math.Sin(rad) + y*math.Cos(rad) + center.Y,
	}
}
