package observe

import "time"

// Window is a half-open time interval [Start, End) anchored at the
// moment the operation began. End is captured once per operation so
// every comparison within one call sees the same "now".
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds the window ending at now and reaching lookback into
// the past. A non-positive lookback is a request error.
func NewWindow(now time.Time, lookback time.Duration) (Window, error) {
	if lookback <= 0 {
		return Window{}, Validationf("lookback must be positive, got %s", lookback)
	}
	return Window{
		Start: now.Add(-lookback),
		End:   now,
	}, nil
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
