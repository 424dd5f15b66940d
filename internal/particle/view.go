package particle

import "time"

// Events is the host's event source. Each registration returns a func that
// removes the listener again.
type Events interface {
	OnResize(fn func(width, height int)) (remove func())
	OnPointerMove(fn func(x, y float64)) (remove func())
}

// View ties a Field to a host surface. All methods, and the callbacks it
// registers, must run on the host's frame loop goroutine.
type View struct {
	field   *Field
	pointer PointerSignal

	width, height int
	mounted       bool
	mobile        bool

	removers []func()
}

func NewView(f *Field) *View {
	if f == nil {
		f = New(0, nil)
	}
	return &View{field: f}
}

// Mount installs the resize and pointer listeners and marks the view
// mounted. Listeners are installed even when the view starts in the static
// mode so it can switch once the surface grows. Mounting a mounted view
// first unmounts it.
func (v *View) Mount(ev Events, width, height int) {
	if v.mounted {
		v.Unmount()
	}
	v.resize(width, height)
	if ev != nil {
		v.removers = append(v.removers,
			ev.OnResize(v.resize),
			ev.OnPointerMove(func(x, y float64) {
				v.pointer.Set(NormalizePointer(x, y, float64(v.width), float64(v.height)))
			}),
		)
	}
	v.mounted = true
}

// Unmount removes every listener Mount installed. It is safe to call more
// than once.
func (v *View) Unmount() {
	for _, remove := range v.removers {
		if remove != nil {
			remove()
		}
	}
	v.removers = nil
	v.mounted = false
}

func (v *View) resize(width, height int) {
	v.width, v.height = width, height
	v.mobile = IsMobile(width)
}

func (v *View) Mounted() bool { return v.mounted }

func (v *View) Mobile() bool { return v.mobile }

func (v *View) Interactive() bool { return ShouldRenderInteractive(v.mounted, v.mobile) }

func (v *View) Pointer() Pointer { return v.pointer.Load() }

func (v *View) Field() *Field { return v.field }

func (v *View) Size() (width, height int) { return v.width, v.height }

// Frame returns the orientation to draw for elapsed, or false when the
// static backdrop should be shown instead.
func (v *View) Frame(elapsed time.Duration) (RotationState, bool) {
	if !v.Interactive() {
		return RotationState{}, false
	}
	return v.field.Advance(elapsed.Seconds(), v.pointer.Load()), true
}

func (v *View) Backdrop() string { return StaticBackdrop }
