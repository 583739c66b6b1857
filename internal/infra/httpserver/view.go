package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/platecheck/internal/application/review"
	domain "github.com/bryanwahyu/platecheck/internal/domain/results"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"val":   deref,
	"score": formatScore,
}).ParseFS(templateFiles, "templates/index.html"))

type pageView struct {
	Form     filterForm
	Hidden   url.Values
	Searched bool
	Error    string
	Accuracy domain.Accuracy
	Rate     float64
	Records  []recordView
}

type recordView struct {
	*domain.AnalysisResult
	Edit       domain.Correction
	Shaded     bool
	VehicleSrc string
	PlateSrc   string
	Analyzed   string
}

func (p *pageView) fill(d review.Dashboard, loc *time.Location) {
	p.Accuracy = d.Accuracy
	p.Rate = d.Accuracy.Percentage()
	p.Records = make([]recordView, 0, len(d.Results))
	for _, res := range d.Results {
		p.Records = append(p.Records, recordView{
			AnalysisResult: res,
			Edit:           res.Draft(),
			Shaded:         res.Reviewed(),
			VehicleSrc:     imageSrc(res.VehiclePath),
			PlateSrc:       imageSrc(res.PlatePath),
			Analyzed:       res.AnalyzedAt.In(loc).Format("2006-01-02 15:04:05"),
		})
	}
}

func (r *Router) render(w http.ResponseWriter, status int, page pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		r.logger.Error("render page", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// imageSrc leaves absolute URLs alone and routes anything else through /images.
func imageSrc(path string) string {
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	return "/images?path=" + url.QueryEscape(path)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatScore(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *f)
}
