package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tgsnap_extractions_total",
		Help: "The total number of extraction requests by result kind",
	}, []string{"result"})

	PageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tgsnap_page_fetch_duration_seconds",
		Help:    "Duration of Telegram page fetches",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"form", "outcome"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgsnap_rate_limited_total",
		Help: "The total number of requests rejected by the rate limiter",
	})

	RateLimitKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tgsnap_ratelimit_keys",
		Help: "Number of client keys tracked by the in-memory rate limiter",
	})

	Inlined = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tgsnap_inline_total",
		Help: "The total number of image inlining attempts by outcome",
	}, []string{"outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tgsnap_cache_lookups_total",
		Help: "Parse cache lookups by status",
	}, []string{"status"})
)
