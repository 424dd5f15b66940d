package main

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/vardo/vardo-web/internal/particle"
)

// Terminal cells are roughly twice as tall as they are wide.
const cellAspect = 0.5

// densityRunes shade a cell by how many points land in it.
var densityRunes = []rune{'·', '∙', '•', '●'}

// surface is the part of tcell.Screen the renderer draws on.
type surface interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

// grid bins projected points into terminal cells.
type grid struct {
	cols, rows int
	counts     []int
	peak       int
}

func newGrid(cols, rows int) *grid {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return &grid{cols: cols, rows: rows, counts: make([]int, cols*rows)}
}

func (g *grid) at(x, y int) int { return g.counts[y*g.cols+x] }

// plot projects every point of f rotated by rs and counts it in its cell.
func (g *grid) plot(f *particle.Field, rs particle.RotationState, cam particle.Camera) {
	w, h := float64(g.cols), float64(g.rows)
	f.Each(func(_ int, p particle.Point) {
		pr, ok := cam.Project(rs.Apply(p), w, h, cellAspect)
		if !ok {
			return
		}
		x, y := int(pr.X), int(pr.Y)
		if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
			return
		}
		i := y*g.cols + x
		g.counts[i]++
		if g.counts[i] > g.peak {
			g.peak = g.counts[i]
		}
	})
}

// shade maps a cell count to a rune and a blend factor in (0, 1].
func shade(count, peak int) (rune, float64) {
	if count <= 0 || peak <= 0 {
		return ' ', 0
	}
	frac := float64(count) / float64(peak)
	i := int(math.Ceil(frac*float64(len(densityRunes)))) - 1
	i = max(0, min(i, len(densityRunes)-1))
	return densityRunes[i], frac
}

func blend(fg, bg particle.RGB, a float64) tcell.Color {
	mix := func(f, b uint8) int32 {
		return int32(math.Round(float64(f)*a + float64(b)*(1-a)))
	}
	return tcell.NewRGBColor(mix(fg.R, bg.R), mix(fg.G, bg.G), mix(fg.B, bg.B))
}

// drawCloud paints the binned cloud. Empty cells keep the background.
func drawCloud(s surface, g *grid, accent, bg particle.RGB, opacity float64) {
	bgColor := blend(bg, bg, 1)
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.cols; x++ {
			r, a := shade(g.at(x, y), g.peak)
			style := tcell.StyleDefault.Background(bgColor)
			if r != ' ' {
				// dim cells never drop below the configured point opacity
				style = style.Foreground(blend(accent, bg, opacity+(1-opacity)*a))
			}
			s.SetContent(x, y, r, nil, style)
		}
	}
}

// backdropRadius is the normalized distance of a cell center from the
// middle of the screen, 1 at the corners.
func backdropRadius(x, y, cols, rows int) float64 {
	if cols <= 0 || rows <= 0 {
		return 0
	}
	dx := (float64(x)+0.5)/float64(cols)*2 - 1
	dy := (float64(y)+0.5)/float64(rows)*2 - 1
	return math.Hypot(dx, dy) / math.Sqrt2
}

// drawBackdrop paints the static gradient used instead of the cloud.
func drawBackdrop(s surface, cols, rows int) {
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := particle.BackdropColor(backdropRadius(x, y, cols, rows))
			s.SetContent(x, y, ' ', nil, tcell.StyleDefault.Background(blend(c, c, 1)))
		}
	}
}

// hexRGB parses #rrggbb, falling back to def.
func hexRGB(s string, def particle.RGB) particle.RGB {
	c := tcell.GetColor(s)
	if !c.Valid() {
		return def
	}
	r, g, b := c.RGB()
	return particle.RGB{R: uint8(r), G: uint8(g), B: uint8(b)}
}
