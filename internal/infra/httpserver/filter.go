package httpserver

import (
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/platecheck/internal/domain/results"
	"github.com/bryanwahyu/platecheck/internal/middleware"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// filterForm is the search state as the browser sends it. It lives only in
// the query string (and in hidden fields of each record form).
type filterForm struct {
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
	Unchecked bool
}

func defaultFilterForm(now time.Time) filterForm {
	today := now.Format(dateLayout)
	return filterForm{StartDate: today, StartTime: "00:00", EndDate: today, EndTime: "23:59"}
}

func parseFilterForm(v url.Values, now time.Time) filterForm {
	f := defaultFilterForm(now)
	if s := strings.TrimSpace(v.Get("start_date")); s != "" {
		f.StartDate = s
	}
	if s := strings.TrimSpace(v.Get("start_time")); s != "" {
		f.StartTime = s
	}
	if s := strings.TrimSpace(v.Get("end_date")); s != "" {
		f.EndDate = s
	}
	if s := strings.TrimSpace(v.Get("end_time")); s != "" {
		f.EndTime = s
	}
	f.Unchecked = checked(v.Get("unchecked"))
	return f
}

// Filter converts the form into a domain filter. A minute-resolution end time
// covers that whole minute, so the default 23:59 reaches the end of the day.
func (f filterForm) Filter(loc *time.Location) (results.Filter, error) {
	start, err := parseMoment(f.StartDate, f.StartTime, loc, false)
	if err != nil {
		return results.Filter{}, &middleware.ValidationError{Field: "start", Msg: err.Error()}
	}
	end, err := parseMoment(f.EndDate, f.EndTime, loc, true)
	if err != nil {
		return results.Filter{}, &middleware.ValidationError{Field: "end", Msg: err.Error()}
	}
	tr := results.TimeRange{Start: start, End: end}
	if err := middleware.ValidateRange(tr); err != nil {
		return results.Filter{}, err
	}
	return results.Filter{Range: tr, UncheckedOnly: f.Unchecked}, nil
}

// Values encodes the form for links, redirects and hidden fields.
func (f filterForm) Values() url.Values {
	v := url.Values{}
	v.Set("start_date", f.StartDate)
	v.Set("start_time", f.StartTime)
	v.Set("end_date", f.EndDate)
	v.Set("end_time", f.EndTime)
	if f.Unchecked {
		v.Set("unchecked", "1")
	}
	return v
}

func parseMoment(date, clock string, loc *time.Location, endOfMinute bool) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, err
	}
	layout := timeLayout
	if strings.Count(clock, ":") == 2 {
		layout = "15:04:05"
	}
	c, err := time.Parse(layout, clock)
	if err != nil {
		return time.Time{}, err
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc)
	if endOfMinute && layout == timeLayout {
		t = t.Add(time.Minute - time.Microsecond)
	}
	return t, nil
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
