package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level collectors so any component can record without plumbing a
// registry around. Registration happens once, on first Handler call.
var (
	RendersSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_jobs_submitted_total",
		Help: "Render jobs accepted onto the queue.",
	})

	RendersFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "render_jobs_finished_total",
		Help: "Render jobs that reached a terminal state, by status.",
	}, []string{"status"})

	ActiveRenders = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "render_jobs_active",
		Help: "Render jobs currently executing.",
	})

	RenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_job_duration_seconds",
		Help:    "Wall time of completed render jobs.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})

	SceneClipDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_scene_clip_duration_seconds",
		Help:    "Wall time of individual scene clip encodes.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

var registerOnce sync.Once

// Handler returns the /metrics handler, registering collectors on first use.
func Handler() http.Handler {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RendersSubmitted,
			RendersFinished,
			ActiveRenders,
			RenderDuration,
			SceneClipDuration,
		)
	})
	return promhttp.Handler()
}
