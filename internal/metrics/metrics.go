// Package metrics defines the prometheus collectors the server exports on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Logins            *prometheus.CounterVec
	Uploads           prometheus.Counter
	UploadFailures    prometheus.Counter
	BlobDeleteErrors  prometheus.Counter
	RateLimitedLogins prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filedrop_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filedrop_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filedrop_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_uploads_total",
			Help: "Files uploaded successfully.",
		}),
		UploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_upload_failures_total",
			Help: "Uploads that failed to store bytes or metadata.",
		}),
		BlobDeleteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_blob_delete_errors_total",
			Help: "File deletions whose bytes could not be removed.",
		}),
		RateLimitedLogins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_rate_limited_requests_total",
			Help: "Login and registration requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.Logins,
		m.Uploads,
		m.UploadFailures,
		m.BlobDeleteErrors,
		m.RateLimitedLogins,
	)
	return m
}
