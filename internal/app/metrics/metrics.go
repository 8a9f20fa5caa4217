package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agent_studio"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "path"},
	)

	agentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agents",
			Name:      "events_total",
			Help:      "Agent lifecycle events by action.",
		},
		[]string{"action"},
	)

	tokenEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api_tokens",
			Name:      "events_total",
			Help:      "API token events by action.",
		},
		[]string{"action"},
	)

	notificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications created by type.",
		},
		[]string{"type"},
	)

	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "events_total",
			Help:      "Session events by action.",
		},
		[]string{"action"},
	)

	chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat stream requests by outcome.",
		},
		[]string{"outcome"},
	)

	chatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "request_duration_seconds",
			Help:      "Duration of chat stream requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		agentEvents,
		tokenEvents,
		notificationsCreated,
		sessionEvents,
		chatRequests,
		chatDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordAgentEvent counts created, updated and deleted agents.
func RecordAgentEvent(action string) {
	agentEvents.WithLabelValues(action).Inc()
}

// RecordTokenEvent counts issued, revoked and rejected API tokens.
func RecordTokenEvent(action string) {
	tokenEvents.WithLabelValues(action).Inc()
}

// RecordNotificationCreated counts stored notifications.
func RecordNotificationCreated(typ string) {
	if typ == "" {
		typ = "unknown"
	}
	notificationsCreated.WithLabelValues(typ).Inc()
}

// RecordSessionEvent counts session activity. Purges add n.
func RecordSessionEvent(action string, n int64) {
	if n <= 0 {
		return
	}
	sessionEvents.WithLabelValues(action).Add(float64(n))
}

// RecordChatRequest records one chat stream request.
func RecordChatRequest(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	chatRequests.WithLabelValues(outcome).Inc()
	chatDuration.Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush lets streaming handlers push partial responses through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// staticSegments are path parts that never carry an identifier.
var staticSegments = map[string]bool{
	"sign-up": true, "sign-in": true, "sign-out": true, "get-session": true, "email": true,
	"read": true, "read-all": true, "unread-count": true, "stream": true,
	"openapi.yaml": true, "audit": true,
}

// canonicalPath collapses identifiers so label cardinality stays bounded:
// /api/agents/3f2a... becomes /api/agents/:id.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) > 5 {
		parts = parts[:5]
	}
	for i := 2; i < len(parts); i++ {
		if !staticSegments[parts[i]] {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
