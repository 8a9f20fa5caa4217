package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"/":                                   "/",
		"/healthz":                            "/healthz",
		"/api/agents":                         "/api/agents",
		"/api/agents/3f2a":                    "/api/agents/:id",
		"/api/notifications/42/read":          "/api/notifications/:id/read",
		"/api/notifications/unread-count":     "/api/notifications/unread-count",
		"/api/auth/sign-in/email":             "/api/auth/sign-in/email",
		"/api/api-tokens/abc":                 "/api/api-tokens/:id",
		"/api/chat/stream":                    "/api/chat/stream",
		"/api/agents/1/extra/deep/nested/too": "/api/agents/:id/:id/:id",
	}
	for in, want := range cases {
		if got := canonicalPath(in); got != want {
			t.Errorf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstrumentHandlerCountsRequests(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/agents/:id", "418"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/agents/xyz", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/agents/:id", "418"))
	if after-before != 1 {
		t.Fatalf("expected one counted request, got %v", after-before)
	}
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(chatRequests.WithLabelValues("error"))
	RecordChatRequest(time.Millisecond, errors.New("cancelled"))
	if got := testutil.ToFloat64(chatRequests.WithLabelValues("error")); got-before != 1 {
		t.Fatalf("chat error counter delta = %v", got-before)
	}

	RecordSessionEvent("purged", 0)
	RecordSessionEvent("purged", 3)
	if got := testutil.ToFloat64(sessionEvents.WithLabelValues("purged")); got < 3 {
		t.Fatalf("purged counter = %v", got)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "agent_studio_chat_requests_total") {
		t.Fatalf("metrics output missing chat counter")
	}
}
