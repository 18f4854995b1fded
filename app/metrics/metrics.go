package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Business logic metrics
	enrollmentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrol_enrollments_created_total",
			Help: "Total number of enrollments created, by method",
		},
		[]string{"method"},
	)

	enrollmentsAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrol_enrollments_accepted_total",
			Help: "Total number of enrollments transitioned to Accepted",
		},
	)

	usersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrol_users_created_total",
			Help: "Total number of user accounts created",
		},
	)

	captchasIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrol_captchas_issued_total",
			Help: "Total number of captcha challenges issued",
		},
	)

	captchasFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrol_captchas_failed_total",
			Help: "Total number of failed captcha verifications",
		},
	)

	mailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrol_mails_sent_total",
			Help: "Total number of notification mails submitted",
		},
	)

	mailsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrol_mails_failed_total",
			Help: "Total number of notification mail submissions that failed",
		},
	)
)

func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, endpoint, statusStr).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusStr).Observe(duration.Seconds())
}

func RecordEnrollmentCreated(method string) { enrollmentsCreatedTotal.WithLabelValues(method).Inc() }
func RecordEnrollmentAccepted()             { enrollmentsAcceptedTotal.Inc() }
func RecordUserCreated()                    { usersCreatedTotal.Inc() }
func RecordCaptchaIssued()                  { captchasIssuedTotal.Inc() }
func RecordCaptchaFailed()                  { captchasFailedTotal.Inc() }
func RecordMailSent()                       { mailsSentTotal.Inc() }
func RecordMailFailed()                     { mailsFailedTotal.Inc() }

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
