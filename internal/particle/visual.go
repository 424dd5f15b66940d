package particle

import "math"

// Visual is how the cloud is drawn. It does not affect geometry.
type Visual struct {
	PointSize  float64 `json:"pointSize"`
	Opacity    float64 `json:"opacity"`
	Color      string  `json:"color"`
	Background string  `json:"background"`
	Additive   bool    `json:"additive"`
	DepthWrite bool    `json:"depthWrite"`
	MinDPR     float64 `json:"minDpr"`
	MaxDPR     float64 `json:"maxDpr"`
}

func DefaultVisual() Visual {
	return Visual{
		PointSize:  0.04,
		Opacity:    0.6,
		Color:      "#8B5CF6",
		Background: "#050505",
		Additive:   true,
		DepthWrite: false,
		MinDPR:     1,
		MaxDPR:     1.5,
	}
}

// ClampDPR limits a device pixel ratio to [MinDPR, MaxDPR].
func (v Visual) ClampDPR(dpr float64) float64 {
	return math.Min(math.Max(dpr, v.MinDPR), v.MaxDPR)
}

// Camera is a perspective camera on the +Z axis looking at the origin.
type Camera struct {
	Distance float64 `json:"distance"`
	FOV      float64 `json:"fov"` // vertical, degrees
	Near     float64 `json:"near"`
}

func DefaultCamera() Camera {
	return Camera{Distance: 10, FOV: 60, Near: 0.1}
}

// Projected is a point in screen space. Depth is the distance in front of
// the camera.
type Projected struct {
	X, Y  float64
	Depth float64
}

// Project maps a world-space point to screen coordinates with the origin
// at the top-left. It reports false for points at or behind the near plane.
// aspect is the pixel aspect ratio (pixel width / pixel height).
func (c Camera) Project(p Point, width, height, aspect float64) (Projected, bool) {
	depth := c.Distance - p.Z
	if depth <= c.Near || width <= 0 || height <= 0 {
		return Projected{}, false
	}
	if aspect <= 0 {
		aspect = 1
	}
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	view := width * aspect / height
	ndcX := p.X * f / (depth * view)
	ndcY := p.Y * f / depth
	return Projected{
		X:     (ndcX + 1) / 2 * width,
		Y:     (1 - ndcY) / 2 * height,
		Depth: depth,
	}, true
}
