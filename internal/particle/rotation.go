package particle

import "math"

// RotationState is the cloud's orientation: X and Y change every frame,
// Z is the static tilt.
type RotationState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Advance is a pure function of elapsed time and the latest pointer reading.
func Advance(elapsedSeconds float64, p Pointer) RotationState {
	t := elapsedSeconds * TimeScale
	return RotationState{
		X: t*PitchRate + p.Y*PointerInfluence,
		Y: t*YawRate + p.X*PointerInfluence,
		Z: Tilt,
	}
}

// Apply moves p into world space. The tilt is the parent transform and the
// per-frame rotation the child, with the child in XYZ Euler order:
// world = Rz(Z) * Rx(X) * Ry(Y) * p.
func (r RotationState) Apply(p Point) Point {
	return RotateZ(RotateX(RotateY(p, r.Y), r.X), r.Z)
}

func RotateX(p Point, a float64) Point {
	s, c := math.Sincos(a)
	return Point{X: p.X, Y: p.Y*c - p.Z*s, Z: p.Y*s + p.Z*c}
}

func RotateY(p Point, a float64) Point {
	s, c := math.Sincos(a)
	return Point{X: p.X*c + p.Z*s, Y: p.Y, Z: -p.X*s + p.Z*c}
}

func RotateZ(p Point, a float64) Point {
	s, c := math.Sincos(a)
	return Point{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c, Z: p.Z}
}
