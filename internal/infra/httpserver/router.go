package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/platecheck/internal/application/review"
	domain "github.com/bryanwahyu/platecheck/internal/domain/results"
	"github.com/bryanwahyu/platecheck/internal/middleware"
)

// ReviewService is what the dashboard needs from the application layer.
type ReviewService interface {
	Load(ctx context.Context, f domain.Filter) (review.Dashboard, error)
	SaveCorrection(ctx context.Context, cmd review.SaveCommand) (review.SaveResult, error)
}

type Options struct {
	Service     ReviewService
	Images      domain.ImageStore
	Logger      *zap.Logger
	Metrics     *middleware.Metrics
	Location    *time.Location
	Health      map[string]middleware.HealthChecker
	CORSOrigins []string
	RateLimit   struct {
		Capacity     int
		RefillPerSec int
	}
	// Now is overridable for tests.
	Now func() time.Time
}

type Router struct {
	svc     ReviewService
	images  domain.ImageStore
	logger  *zap.Logger
	metrics *middleware.Metrics
	loc     *time.Location
	now     func() time.Time
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		svc:     opts.Service,
		images:  opts.Images,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = middleware.NewMetrics()
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.now == nil {
		r.now = time.Now
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(r.logger))
	mux.Use(r.metrics.Middleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.Health))
	mux.Get("/metrics", r.metrics.Handler)

	mux.Get("/", r.handleIndex)
	mux.Get("/images", r.wrap(r.handleImage))
	mux.Group(func(rt chi.Router) {
		if opts.RateLimit.Capacity > 0 {
			rt.Use(middleware.RateLimit(opts.RateLimit.Capacity, opts.RateLimit.RefillPerSec))
		}
		rt.Post("/results/{id}", r.wrap(r.handleSave))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, msg := http.StatusInternalServerError, "request failed"
		var ve *middleware.ValidationError
		switch {
		case errors.As(err, &ve):
			status, msg = http.StatusBadRequest, ve.Error()
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrImageNotFound):
			status, msg = http.StatusNotFound, err.Error()
		default:
			r.logger.Error("handler failed",
				zap.String("request_id", middleware.RequestIDFromContext(req.Context())),
				zap.String("path", req.URL.Path),
				zap.Error(err),
			)
		}
		if middleware.AcceptsJSON(req) {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		http.Error(w, msg, status)
	}
}

// GET /?start_date=&start_time=&end_date=&end_time=&unchecked=&search=1
// Stores are only queried when the search action was submitted.
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	form := parseFilterForm(req.URL.Query(), r.now().In(r.loc))
	page := pageView{Form: form, Hidden: form.Values()}

	status := http.StatusOK
	if req.URL.Query().Has("search") {
		page.Searched = true
		f, err := form.Filter(r.loc)
		if err != nil {
			status = http.StatusBadRequest
			page.Error = err.Error()
		} else {
			r.metrics.Searches.Add(1)
			d, err := r.svc.Load(req.Context(), f)
			if err != nil {
				r.logger.Error("search failed",
					zap.String("request_id", middleware.RequestIDFromContext(req.Context())),
					zap.Error(err),
				)
				status = http.StatusInternalServerError
				page.Error = "search failed, please retry"
			} else {
				page.fill(d, r.loc)
			}
		}
	}
	r.render(w, status, page)
}

// POST /results/{id}
// Form: place, class, hiragana, number, is_correct plus the filter fields
// the record was rendered under.
func (r *Router) handleSave(w http.ResponseWriter, req *http.Request) error {
	id, err := middleware.ParseResultID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if err := req.ParseForm(); err != nil {
		return &middleware.ValidationError{Field: "form", Msg: err.Error()}
	}

	var c domain.Correction
	for _, fld := range []struct {
		name string
		dst  *string
	}{
		{"place", &c.Place},
		{"class", &c.Class},
		{"hiragana", &c.Hiragana},
		{"number", &c.Number},
	} {
		v, err := middleware.SanitizeField(fld.name, req.PostForm.Get(fld.name))
		if err != nil {
			return err
		}
		*fld.dst = v
	}

	form := parseFilterForm(req.PostForm, r.now().In(r.loc))
	f, err := form.Filter(r.loc)
	if err != nil {
		return err
	}

	r.metrics.Saves.Add(1)
	res, err := r.svc.SaveCorrection(req.Context(), review.SaveCommand{
		ID:         id,
		Correction: c,
		IsCorrect:  checked(req.PostForm.Get("is_correct")),
		Range:      f.Range,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.metrics.SavesNotFound.Add(1)
		} else {
			r.metrics.SavesFailed.Add(1)
		}
		return err
	}

	if middleware.AcceptsJSON(req) {
		body := saveResponse{
			ID:              res.ID,
			Checked:         res.Accuracy.Checked,
			Correct:         res.Accuracy.Correct,
			RecognitionRate: res.Accuracy.Percentage(),
			StaleRate:       res.StaleAccuracy,
		}
		if res.Result != nil {
			body.UpdatedAt = res.Result.UpdatedAt
		}
		writeJSON(w, http.StatusOK, body)
		return nil
	}
	v := form.Values()
	v.Set("search", "1")
	http.Redirect(w, req, "/?"+v.Encode()+"#result-"+id.String(), http.StatusSeeOther)
	return nil
}

type saveResponse struct {
	ID              domain.ID  `json:"id"`
	Checked         int64      `json:"checked"`
	Correct         int64      `json:"correct"`
	RecognitionRate float64    `json:"recognition_rate"`
	StaleRate       bool       `json:"stale_rate,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// GET /images?path=...
func (r *Router) handleImage(w http.ResponseWriter, req *http.Request) error {
	if r.images == nil {
		return domain.ErrImageNotFound
	}
	rc, ct, err := r.images.Open(req.Context(), req.URL.Query().Get("path"))
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, err = io.Copy(w, rc)
	if err != nil {
		// headers are gone; nothing useful to send back
		r.logger.Warn("image copy interrupted", zap.Error(err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
