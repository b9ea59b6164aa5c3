package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EnrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konga_enrollments_total",
			Help: "Enrollees created, by package",
		},
		[]string{"package"},
	)

	ReferralLinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konga_referral_links_total",
			Help: "Sponsor link outcomes for new enrollees",
		},
		[]string{"result"},
	)

	DocumentsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konga_documents_rendered_total",
			Help: "PDF documents rendered, by template",
		},
		[]string{"template"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konga_events_published_total",
			Help: "Enrollment events handed to the broker",
		},
		[]string{"type", "outcome"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "konga_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			EnrollmentsTotal,
			ReferralLinksTotal,
			DocumentsRenderedTotal,
			EventsPublishedTotal,
			HTTPRequestDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
