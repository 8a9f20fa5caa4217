// Package httpapi exposes the application services over REST.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/agent_studio/internal/app"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/metrics"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/internal/httputil"
	"github.com/R3E-Network/agent_studio/internal/middleware"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// DefaultCookieName names the session cookie when Config leaves it empty.
const DefaultCookieName = "agent_studio.session_token"

// Config controls the HTTP surface.
type Config struct {
	CookieName    string
	SecureCookies bool
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy     bool
	AllowedOrigins []string
	Admins         []string
	// Remote switches session lookups to an external auth backend.
	Remote middleware.RemoteSessions
	// Limiter throttles requests; nil builds one from RateLimitRPS and
	// RateLimitBurst.
	Limiter        *middleware.RateLimiter
	RateLimitRPS   int
	RateLimitBurst int
	AuditSink      AuditSink
	AuditSize      int
}

// handlerFunc is an endpoint that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	cfg    Config
	audit  *auditLog
	remote middleware.RemoteSessions
	log    *logger.Logger
}

// NewHandler returns the complete API: router plus middleware chain.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	h := &handler{
		app:    application,
		cfg:    cfg,
		audit:  newAuditLog(cfg.AuditSize, cfg.AuditSink),
		remote: cfg.Remote,
		log:    log,
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusNotFound, string(svcerrors.CodeNotFound), "route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	for _, rt := range h.routes() {
		var endpoint http.Handler = h.wrap(rt.handle)
		if rt.admin {
			endpoint = middleware.RequireAdmin(endpoint)
		}
		router.Handle(rt.path, endpoint).Methods(rt.method)
	}

	auth := middleware.NewAuthMiddleware(middleware.AuthConfig{
		Sessions:     application.Sessions,
		Tokens:       application.APITokens,
		Remote:       cfg.Remote,
		CookieName:   cfg.CookieName,
		Admins:       cfg.Admins,
		SkipPaths:    []string{"/healthz", "/metrics", openAPIPath},
		SkipPrefixes: []string{"/api/auth/"},
	}, log.Named("auth"))

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log.Named("ratelimit"))
	}

	// Auth must run before the limiter: buckets are keyed by user when one is
	// known and by client address otherwise.
	var chain http.Handler = router
	chain = h.withAudit(chain)
	chain = limiter.Handler(chain)
	chain = auth.Handler(chain)
	chain = middleware.ClientIPMiddleware(cfg.TrustProxy)(chain)
	chain = middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler(chain)
	chain = middleware.MetricsMiddleware()(chain)
	chain = middleware.NewTracingMiddleware(log.Named("http")).Handler(chain)
	chain = middleware.Recover(log)(chain)
	return chain
}

// wrap adapts an error-returning endpoint and sends every failure through
// writeError.
func (h *handler) wrap(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.writeError(w, r, err)
		}
	}
}

// writeError is the single place errors become responses. Anything that is
// not a ServiceError is a 500.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := svcerrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = svcerrors.Internal("internal server error", err)
	}
	entry := h.log.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	})
	if serviceErr.HTTPStatus >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	httputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := httputil.DecodeJSON(r.Body, dst); err != nil {
		return svcerrors.BadRequest(err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	httputil.WriteJSON(w, status, data)
	return nil
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// userID returns the authenticated caller. The auth middleware guarantees it
// on protected routes.
func userID(r *http.Request) (string, error) {
	id := middleware.GetUserID(r.Context())
	if id == "" {
		return "", svcerrors.Unauthorized("")
	}
	return id, nil
}

// pageRequest reads page and limit. Absent values fall through to the
// service defaults; non-numeric values are rejected.
func pageRequest(r *http.Request) (paging.Request, error) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		return paging.Request{}, err
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		return paging.Request{}, err
	}
	req := paging.Request{Page: page, Limit: limit}
	if _, err := req.Normalize(); err != nil {
		return paging.Request{}, svcerrors.BadRequest(err.Error())
	}
	return req, nil
}

func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v == 0 {
		return 0, svcerrors.Validation(name, name+" must be a positive integer")
	}
	return v, nil
}

func queryBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
