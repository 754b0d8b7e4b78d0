package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	userFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dashboard_user_fetch_total", Help: "Count of upstream user list fetches"},
		[]string{"result"},
	)
	userFetchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_user_fetch_duration_seconds",
			Help:    "Latency of upstream user list fetches",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() { prometheus.MustRegister(userFetchTotal, userFetchLatency) }

func observeFetch(err error, d time.Duration) {
	result := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		result = "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	}
	userFetchTotal.WithLabelValues(result).Inc()
	userFetchLatency.Observe(d.Seconds())
}
