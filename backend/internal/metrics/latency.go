// Package metrics records per-route request latency in HDR histograms.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/gin-gonic/gin"
)

const (
	// recorded in microseconds, 1µs to 60s
	minLatency  = 1
	maxLatency  = 60_000_000
	sigFigures  = 3
	unmatched   = "unmatched"
	microsPerMs = 1000.0
)

// RouteStats summarizes one route, latencies in milliseconds
type RouteStats struct {
	Route string  `json:"route"`
	Count int64   `json:"count"`
	Mean  float64 `json:"meanMs"`
	P50   float64 `json:"p50Ms"`
	P95   float64 `json:"p95Ms"`
	P99   float64 `json:"p99Ms"`
	Max   float64 `json:"maxMs"`
}

// Recorder holds one histogram per route template
type Recorder struct {
	mu     sync.Mutex
	routes map[string]*hdrhistogram.Histogram
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{routes: make(map[string]*hdrhistogram.Histogram)}
}

// Record adds one observation for route; values out of range are clamped
func (r *Recorder) Record(route string, d time.Duration) {
	v := d.Microseconds()
	if v < minLatency {
		v = minLatency
	}
	if v > maxLatency {
		v = maxLatency
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.routes[route]
	if !ok {
		h = hdrhistogram.New(minLatency, maxLatency, sigFigures)
		r.routes[route] = h
	}
	_ = h.RecordValue(v)
}

// Snapshot returns the stats of every route, sorted by route
func (r *Recorder) Snapshot() []RouteStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RouteStats, 0, len(r.routes))
	for route, h := range r.routes {
		out = append(out, RouteStats{
			Route: route,
			Count: h.TotalCount(),
			Mean:  h.Mean() / microsPerMs,
			P50:   float64(h.ValueAtQuantile(50)) / microsPerMs,
			P95:   float64(h.ValueAtQuantile(95)) / microsPerMs,
			P99:   float64(h.ValueAtQuantile(99)) / microsPerMs,
			Max:   float64(h.Max()) / microsPerMs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// Middleware times every request under its route template
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatched
		}
		r.Record(c.Request.Method+" "+route, time.Since(start))
	}
}
