// Package progress estimates build progress from free-text process output.
// The numbers are intentionally approximate: percentage markers scraped from
// the output win, and between markers the estimate drifts forward against an
// assumed total duration. Only a successful exit yields 100.
package progress

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AssumedDuration is the wall-clock length a full build is presumed to take
// when the toolchain stops printing percentage markers. Inherited heuristic;
// it is wrong on most hardware and that is accepted.
const AssumedDuration = 5 * time.Minute

var markerRe = regexp.MustCompile(`(\d{1,3})%`)

// Estimator produces a monotonically non-decreasing percentage in [0,99].
type Estimator struct {
	mu      sync.Mutex
	started time.Time
	assumed time.Duration
	best    int
}

func NewEstimator() *Estimator {
	return NewEstimatorAt(time.Now())
}

func NewEstimatorAt(start time.Time) *Estimator {
	return &Estimator{started: start, assumed: AssumedDuration}
}

// Observe scans an output chunk for percentage markers and keeps the maximum
// seen so far, so reported progress never regresses.
func (e *Estimator) Observe(chunk string) {
	for _, m := range markerRe.FindAllStringSubmatch(chunk, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 100 {
			continue
		}
		e.mu.Lock()
		if n > e.best {
			e.best = n
		}
		e.mu.Unlock()
	}
}

func (e *Estimator) Estimate() int {
	return e.EstimateAt(time.Now())
}

// EstimateAt returns the larger of the best marker seen and a linear
// extrapolation of elapsed time, capped at 99 until the process exits.
func (e *Estimator) EstimateAt(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	pct := e.best
	if extrapolated := int(now.Sub(e.started) * 100 / e.assumed); extrapolated > pct {
		pct = extrapolated
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}

// Phase picks a human-readable label for an output chunk. Substrings are
// checked in fixed priority order, independent of the numeric percentage.
func Phase(chunk string) string {
	lower := strings.ToLower(chunk)
	switch {
	case strings.Contains(lower, "compiling"):
		return "compiling"
	case strings.Contains(lower, "linking"):
		return "linking"
	case strings.Contains(lower, "generating"):
		return "generating"
	default:
		return "processing"
	}
}
