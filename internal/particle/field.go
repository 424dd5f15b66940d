package particle

import (
	"math"
	"math/rand/v2"
)

const (
	DefaultCount = 2000

	InnerRadius = 4.0
	OuterRadius = 8.0

	// Tilt is the static rotation about z applied to the whole cloud.
	Tilt = math.Pi / 6

	TimeScale        = 0.08
	PitchRate        = 0.15
	YawRate          = 0.2
	PointerInfluence = 0.3
)

type Point struct {
	X, Y, Z float64
}

func (p Point) Radius() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Source supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Field is an immutable cloud of points plus its static tilt.
type Field struct {
	points []Point
	tilt   float64
}

// New generates count points uniformly over the shell between InnerRadius
// and OuterRadius. count <= 0 yields an empty field. A nil rnd uses the
// process-wide generator.
func New(count int, rnd Source) *Field {
	if rnd == nil {
		rnd = globalSource{}
	}
	f := &Field{tilt: Tilt}
	if count <= 0 {
		return f
	}
	f.points = make([]Point, count)
	for i := range f.points {
		f.points[i] = samplePoint(rnd)
	}
	return f
}

// NewSeeded is New with a deterministic PCG source.
func NewSeeded(count int, seed uint64) *Field {
	return New(count, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func samplePoint(rnd Source) Point {
	r := InnerRadius + rnd.Float64()*(OuterRadius-InnerRadius)
	theta := rnd.Float64() * 2 * math.Pi
	phi := math.Acos(2*rnd.Float64() - 1)
	sinPhi := math.Sin(phi)
	return Point{
		X: r * sinPhi * math.Cos(theta),
		Y: r * sinPhi * math.Sin(theta),
		Z: r * math.Cos(phi),
	}
}

func (f *Field) Len() int { return len(f.points) }

func (f *Field) Tilt() float64 { return f.tilt }

// Points returns a copy of the cloud.
func (f *Field) Points() []Point {
	out := make([]Point, len(f.points))
	copy(out, f.points)
	return out
}

// Each calls fn for every point without copying the cloud.
func (f *Field) Each(fn func(i int, p Point)) {
	for i, p := range f.points {
		fn(i, p)
	}
}

// Advance returns the orientation for this frame.
func (f *Field) Advance(elapsedSeconds float64, p Pointer) RotationState {
	rs := Advance(elapsedSeconds, p)
	rs.Z = f.tilt
	return rs
}
