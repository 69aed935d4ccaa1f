package middle

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/gopos/infra/logger"
	"github.com/mstgnz/gopos/infra/response"
)

// PanicRecoveryMiddleware handles panics and converts them to HTTP 500 errors
func PanicRecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				requestID := middleware.GetReqID(r.Context())
				if requestID == "" {
					requestID = "unknown"
				}

				log.Printf("PANIC RECOVERED: %v | Method: %s | URL: %s | Request ID: %s", rec, r.Method, r.URL.String(), requestID)

				logger.Error("Panic recovered", fmt.Errorf("%v", rec), logger.LogContext{
					Gateway:   chi.URLParam(r, "gateway"),
					RequestID: requestID,
					Fields: map[string]any{
						"method": r.Method,
						"url":    r.URL.String(),
						"stack":  string(stack),
					},
				})

				response.Error(w, r, http.StatusInternalServerError, "Internal server error", fmt.Errorf("an unexpected error occurred"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
