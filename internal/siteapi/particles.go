package siteapi

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/vardo/vardo-web/internal/cryptoutil"
	"github.com/vardo/vardo-web/internal/particle"
)

// cloudCacheControl lets browsers reuse the cloud within a process lifetime;
// the ETag changes when the server restarts with a new cloud.
const cloudCacheControl = "public, max-age=300"

type rates struct {
	TimeScale        float64 `json:"timeScale"`
	Pitch            float64 `json:"pitch"`
	Yaw              float64 `json:"yaw"`
	PointerInfluence float64 `json:"pointerInfluence"`
}

type CloudResponse struct {
	Count            int             `json:"count"`
	InnerRadius      float64         `json:"innerRadius"`
	OuterRadius      float64         `json:"outerRadius"`
	Tilt             float64         `json:"tilt"`
	Rates            rates           `json:"rates"`
	MobileBreakpoint int             `json:"mobileBreakpoint"`
	Backdrop         string          `json:"backdrop"`
	Visual           particle.Visual `json:"visual"`
	Camera           particle.Camera `json:"camera"`
	Points           []float64       `json:"points"`
}

type cloudBody struct {
	data []byte
	etag string
}

// encodeCloud renders the field once. The cloud never changes after
// construction so the body and its ETag are reused for every request.
func encodeCloud(f *particle.Field) cloudBody {
	resp := CloudResponse{
		Count:       f.Len(),
		InnerRadius: particle.InnerRadius,
		OuterRadius: particle.OuterRadius,
		Tilt:        f.Tilt(),
		Rates: rates{
			TimeScale:        particle.TimeScale,
			Pitch:            particle.PitchRate,
			Yaw:              particle.YawRate,
			PointerInfluence: particle.PointerInfluence,
		},
		MobileBreakpoint: particle.MobileBreakpoint,
		Backdrop:         particle.StaticBackdrop,
		Visual:           particle.DefaultVisual(),
		Camera:           particle.DefaultCamera(),
		Points:           make([]float64, 0, 3*f.Len()),
	}
	f.Each(func(_ int, p particle.Point) {
		resp.Points = append(resp.Points, round4(p.X), round4(p.Y), round4(p.Z))
	})

	data, err := json.Marshal(resp)
	if err != nil {
		// Marshal only fails on NaN or Inf, which the sampler never produces
		panic(err)
	}
	data = append(data, '\n')
	return cloudBody{data: data, etag: `"` + cryptoutil.SHA256Hex(data)[:16] + `"`}
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// HandleParticles serves the field geometry and drawing constants.
func (api *API) HandleParticles(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Cache-Control", cloudCacheControl)
	h.Set("ETag", api.cloud.etag)
	if r.Header.Get("If-None-Match") == api.cloud.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(api.cloud.data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(api.cloud.data)
}

// HandleFrame returns the rotation for elapsed time t and pointer (px, py).
func (api *API) HandleFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	t, err := parseFloat(q.Get("t"), 0)
	if err != nil || t < 0 {
		api.writeError(ctx, w, http.StatusBadRequest, "t must be a non-negative number")
		return
	}
	px, errX := parseFloat(q.Get("px"), 0)
	py, errY := parseFloat(q.Get("py"), 0)
	if errX != nil || errY != nil {
		api.writeError(ctx, w, http.StatusBadRequest, "px and py must be numbers")
		return
	}

	p := particle.Pointer{X: px, Y: py}.Clamp()
	api.writeJSON(ctx, w, http.StatusOK, particle.Advance(t, p))
}

type ModeResponse struct {
	Interactive bool   `json:"interactive"`
	Mobile      bool   `json:"mobile"`
	Backdrop    string `json:"backdrop,omitempty"`
}

// HandleMode reports whether a viewport of the given width draws the cloud
// or the static backdrop.
func (api *API) HandleMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	width, err := strconv.Atoi(q.Get("width"))
	if err != nil || width < 0 {
		api.writeError(ctx, w, http.StatusBadRequest, "width must be a non-negative integer")
		return
	}
	mounted := true
	if s := q.Get("mounted"); s != "" {
		if mounted, err = strconv.ParseBool(s); err != nil {
			api.writeError(ctx, w, http.StatusBadRequest, "mounted must be a boolean")
			return
		}
	}

	mobile := particle.IsMobile(width)
	resp := ModeResponse{
		Interactive: particle.ShouldRenderInteractive(mounted, mobile),
		Mobile:      mobile,
	}
	if !resp.Interactive {
		resp.Backdrop = particle.StaticBackdrop
	}
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// parseFloat accepts finite numbers; empty yields def.
func parseFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
