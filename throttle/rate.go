package throttle

import (
	"strconv"
	"strings"
	"time"

	"github.com/syssam/restflow"
)

// Rate is a request allowance per fixed window.
type Rate struct {
	N      int
	Window time.Duration
}

// Zero reports whether the rate is unset. Zero rates never throttle.
func (r Rate) Zero() bool { return r.N == 0 || r.Window == 0 }

var periods = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute,
	"h": time.Hour, "hour": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour,
}

// ParseRate parses "100/min" style rate strings.
func ParseRate(s string) (Rate, error) {
	count, period, ok := strings.Cut(s, "/")
	if !ok {
		return Rate{}, restflow.Configf("invalid throttle rate %q", s)
	}
	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return Rate{}, restflow.Configf("invalid throttle rate %q", s)
	}
	window, ok := periods[period]
	if !ok {
		return Rate{}, restflow.Configf("invalid throttle rate %q: unknown period %q", s, period)
	}
	return Rate{N: n, Window: window}, nil
}

// Window is the state of one fixed throttle window.
type Window struct {
	Start time.Time
	Count int
}

// Decision is the outcome of consulting one throttle.
type Decision struct {
	Allowed bool

	// Wait is how long until the next request would be allowed. Zero on
	// allowed decisions.
	Wait time.Duration
}

// Check advances a window to now and consumes one slot. Pure: the caller
// owns persisting the returned state.
func Check(w Window, rate Rate, now time.Time) (Window, Decision) {
	if rate.Zero() {
		return w, Decision{Allowed: true}
	}
	if w.Start.IsZero() || now.Sub(w.Start) >= rate.Window {
		w = Window{Start: now}
	}
	if w.Count < rate.N {
		w.Count++
		return w, Decision{Allowed: true}
	}
	return w, Decision{Wait: w.Start.Add(rate.Window).Sub(now)}
}
