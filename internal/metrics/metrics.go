package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP request metrics, labelled by route template.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenwood_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greenwood_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// CMS upstream metrics.
var (
	CMSRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenwood_cms_requests_total",
			Help: "Total number of CMS lookups by outcome (hit, miss, error)",
		},
		[]string{"endpoint", "outcome"},
	)

	CMSRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greenwood_cms_request_duration_seconds",
			Help:    "Latency of upstream CMS requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

var CacheInvalidations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "greenwood_cache_invalidations_total",
		Help: "Cache invalidations by kind (tag, path) and outcome",
	},
	[]string{"kind", "outcome"},
)

var EmailsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "greenwood_emails_total",
		Help: "Emails relayed through SMTP by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(CMSRequestsTotal, CMSRequestDuration)
	prometheus.MustRegister(CacheInvalidations, EmailsTotal)
}
