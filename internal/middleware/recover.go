package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/agent_studio/internal/errors"
	internalhttputil "github.com/R3E-Network/agent_studio/internal/httputil"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Recover turns panics into 500 responses.
func Recover(log *logger.Logger) mux.MiddlewareFunc {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithContext(r.Context()).WithFields(map[string]interface{}{
					"panic": fmt.Sprint(rec),
					"stack": string(debug.Stack()),
				}).Error("Recovered from panic")
				if rw.written {
					return
				}
				serviceErr := errors.Internal("internal server error", nil)
				internalhttputil.WriteErrorResponse(rw, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, nil)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
