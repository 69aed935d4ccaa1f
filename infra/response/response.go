package response

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Response is the envelope of every API answer. RequestID and Gateway tie a
// mapped result or a failure back to the audit record of the same call.
type Response struct {
	Code      int    `json:"code"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Gateway   string `json:"gateway,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// New builds an envelope for r. The gateway comes from the {gateway} route
// parameter, so it stays empty for answers written before routing.
func New(r *http.Request, statusCode int, message string) Response {
	resp := Response{
		Code:    statusCode,
		Success: statusCode < http.StatusBadRequest,
		Message: message,
	}
	if r != nil {
		resp.RequestID = middleware.GetReqID(r.Context())
		resp.Gateway = chi.URLParam(r, "gateway")
	}
	return resp
}

// Success writes a successful response with data
func Success(w http.ResponseWriter, r *http.Request, statusCode int, message string, data any) {
	resp := New(r, statusCode, message)
	resp.Success = true
	resp.Data = data
	_ = WriteJSON(w, statusCode, resp)
}

// Error writes an error response
func Error(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	resp := New(r, statusCode, message)
	resp.Success = false
	if err != nil {
		resp.Error = err.Error()
	}
	_ = WriteJSON(w, statusCode, resp)
}
