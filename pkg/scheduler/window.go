package scheduler

import "time"

// window tracks task starts inside a rolling interval. Not safe for
// concurrent use; the scheduler guards it with its own mutex.
type window struct {
	limit    int
	interval time.Duration
	starts   []time.Time
}

func newWindow(limit int, interval time.Duration) *window {
	return &window{
		limit:    limit,
		interval: interval,
	}
}

// allow records a start at now if the window has room, and reports whether
// it did.
func (w *window) allow(now time.Time) bool {
	w.prune(now)
	if len(w.starts) >= w.limit {
		return false
	}
	w.starts = append(w.starts, now)
	return true
}

// nextFree returns how long until the oldest recorded start leaves the
// window. Zero when the window already has room.
func (w *window) nextFree(now time.Time) time.Duration {
	w.prune(now)
	if len(w.starts) < w.limit {
		return 0
	}
	return w.starts[0].Add(w.interval).Sub(now)
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.interval)
	i := 0
	for i < len(w.starts) && !w.starts[i].After(cutoff) {
		i++
	}
	w.starts = w.starts[i:]
}
