// Command particles previews the backdrop particle cloud in a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/particle"
	"github.com/vardo/vardo-web/internal/xerrors"
)

type options struct {
	count     int
	seed      uint64
	fps       int
	cellWidth int
	logFile   string
}

func main() {
	var o options
	flag.IntVar(&o.count, "count", particle.DefaultCount, "Number of particles")
	flag.Uint64Var(&o.seed, "seed", 0, "Seed for particle placement (0 for random)")
	flag.IntVar(&o.fps, "fps", 30, "Frames per second")
	flag.IntVar(&o.cellWidth, "cell-width", 8, "Logical pixels per terminal column, used for the mobile breakpoint")
	flag.StringVar(&o.logFile, "log-file", "", "Write JSON logs to this file")
	flag.Parse()

	if o.fps <= 0 || o.cellWidth <= 0 {
		fmt.Fprintln(os.Stderr, "-fps and -cell-width must be positive")
		os.Exit(2)
	}

	var w io.Writer = io.Discard
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	L, err := log.New(log.Options{App: "vardo-particles", JSONFormat: true, Writer: w})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx, L)

	if err := run(ctx, o); err != nil {
		L.Error(ctx, err, "preview failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	L := log.FromContext(ctx)

	s, err := tcell.NewScreen()
	if err != nil {
		return xerrors.Wrap(err, "create screen")
	}
	if err := s.Init(); err != nil {
		return xerrors.Wrap(err, "init screen")
	}
	defer s.Fini()
	s.EnableMouse(tcell.MouseMotionEvents)
	s.HideCursor()

	var field *particle.Field
	if o.seed != 0 {
		field = particle.NewSeeded(o.count, o.seed)
	} else {
		field = particle.New(o.count, nil)
	}

	visual := particle.DefaultVisual()
	accent := hexRGB(visual.Color, particle.RGB{R: 139, G: 92, B: 246})
	bg := hexRGB(visual.Background, particle.RGB{R: 5, G: 5, B: 5})
	cam := particle.DefaultCamera()

	cellW := float64(o.cellWidth)
	cellH := cellW / cellAspect
	logical := func(cols, rows int) (int, int) {
		return int(float64(cols) * cellW), int(float64(rows) * cellH)
	}

	ev := newScreenEvents()
	view := particle.NewView(field)
	cols, rows := s.Size()
	lw, lh := logical(cols, rows)
	view.Mount(ev, lw, lh)
	defer view.Unmount()

	L.Info(ctx, "preview started", "particles", field.Len(), "cols", cols, "rows", rows, "mobile", view.Mobile())

	done := make(chan struct{})
	defer close(done)
	events := pumpEvents(s.PollEvent, done)

	ticker := time.NewTicker(time.Second / time.Duration(o.fps))
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			switch e := e.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC || (e.Key() == tcell.KeyRune && e.Rune() == 'q') {
					L.Info(ctx, "preview stopped")
					return nil
				}
			case *tcell.EventResize:
				cols, rows = e.Size()
				ev.emitResize(logical(cols, rows))
				s.Sync()
				L.Debug(ctx, "resized", "cols", cols, "rows", rows, "mobile", view.Mobile())
			case *tcell.EventMouse:
				x, y := e.Position()
				ev.emitPointer((float64(x)+0.5)*cellW, (float64(y)+0.5)*cellH)
			}
		case <-ticker.C:
			if rs, ok := view.Frame(time.Since(start)); ok {
				g := newGrid(cols, rows)
				g.plot(field, rs, cam)
				drawCloud(s, g, accent, bg, visual.Opacity)
			} else {
				drawBackdrop(s, cols, rows)
			}
			s.Show()
		}
	}
}
