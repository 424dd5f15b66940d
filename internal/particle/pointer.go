package particle

// Pointer is a normalized pointer position: X runs -1 (left) to 1 (right),
// Y runs -1 (bottom) to 1 (top).
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizePointer maps device pixel coordinates to a Pointer. A viewport
// with no area maps everything to the center.
func NormalizePointer(px, py, width, height float64) Pointer {
	if width <= 0 || height <= 0 {
		return Pointer{}
	}
	return Pointer{
		X: clampUnit((px/width - 0.5) * 2),
		Y: clampUnit(-(py/height - 0.5) * 2),
	}
}

// Clamp limits both axes to [-1, 1].
func (p Pointer) Clamp() Pointer {
	return Pointer{X: clampUnit(p.X), Y: clampUnit(p.Y)}
}

func clampUnit(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}

// PointerSignal holds the latest pointer reading. It belongs to the frame
// loop goroutine: event callbacks and frames must run on that goroutine.
type PointerSignal struct {
	cur Pointer
}

func (s *PointerSignal) Set(p Pointer) { s.cur = p }

func (s *PointerSignal) Load() Pointer { return s.cur }
