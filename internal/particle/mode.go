package particle

import "math"

// MobileBreakpoint is the viewport width in logical pixels below which the
// cloud is replaced by the static backdrop.
const MobileBreakpoint = 768

// StaticBackdrop is the CSS background used instead of the cloud.
const StaticBackdrop = "radial-gradient(ellipse at 50% 50%, rgba(139, 92, 246, 0.08) 0%, #050505 70%)"

func IsMobile(width int) bool { return width < MobileBreakpoint }

// ShouldRenderInteractive reports whether the animated cloud should be drawn.
func ShouldRenderInteractive(mounted, mobile bool) bool {
	return mounted && !mobile
}

type RGB struct {
	R, G, B uint8
}

var (
	accent     = RGB{R: 139, G: 92, B: 246}
	background = RGB{R: 5, G: 5, B: 5}
)

const (
	backdropCenterAlpha = 0.08
	backdropStop        = 0.7
)

// BackdropColor samples StaticBackdrop at normalized radius u, where 0 is
// the center and 1 the edge of the ellipse.
func BackdropColor(u float64) RGB {
	if u < 0 {
		u = 0
	}
	if u >= backdropStop {
		return background
	}
	// the center stop is the accent at 8% alpha over the background; the
	// gradient fades linearly from there to the plain background at 70%
	a := backdropCenterAlpha * (1 - u/backdropStop)
	mix := func(fg, bg uint8) uint8 {
		return uint8(math.Round(float64(fg)*a + float64(bg)*(1-a)))
	}
	return RGB{
		R: mix(accent.R, background.R),
		G: mix(accent.G, background.G),
		B: mix(accent.B, background.B),
	}
}
