package main

import "github.com/gdamore/tcell/v2"

// pumpEvents forwards poll results to the returned channel until poll
// returns nil, which tcell does once the screen is finalized, or done is
// closed. The channel is closed when the pump stops.
func pumpEvents(poll func() tcell.Event, done <-chan struct{}) <-chan tcell.Event {
	out := make(chan tcell.Event, 16)
	go func() {
		defer close(out)
		for {
			e := poll()
			if e == nil {
				return
			}
			select {
			case out <- e:
			case <-done:
				return
			}
		}
	}()
	return out
}

// screenEvents adapts terminal events to particle.Events. Listeners are
// keyed so each remove func drops exactly the one it was returned for.
type screenEvents struct {
	next    int
	resize  map[int]func(width, height int)
	pointer map[int]func(x, y float64)
}

func newScreenEvents() *screenEvents {
	return &screenEvents{
		resize:  make(map[int]func(int, int)),
		pointer: make(map[int]func(float64, float64)),
	}
}

func (e *screenEvents) OnResize(fn func(width, height int)) func() {
	id := e.next
	e.next++
	e.resize[id] = fn
	return func() { delete(e.resize, id) }
}

func (e *screenEvents) OnPointerMove(fn func(x, y float64)) func() {
	id := e.next
	e.next++
	e.pointer[id] = fn
	return func() { delete(e.pointer, id) }
}

func (e *screenEvents) emitResize(width, height int) {
	for _, fn := range e.resize {
		fn(width, height)
	}
}

func (e *screenEvents) emitPointer(x, y float64) {
	for _, fn := range e.pointer {
		fn(x, y)
	}
}

func (e *screenEvents) listeners() int { return len(e.resize) + len(e.pointer) }
