package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/user/chatbridge/internal/types"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrThreadNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrChatNotReady), errors.Is(err, types.ErrConnectBeforePrepare):
		return http.StatusConflict
	case errors.Is(err, types.ErrPrepareTimeout), errors.Is(err, types.ErrConnectTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("bridge call failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("bridge call rejected", "method", r.Method, "path", r.URL.Path, "code", types.Code(err))
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: types.Code(err), Message: types.Message(err)}})
}

// decode reads a JSON body into dst. An empty body leaves dst unchanged.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return types.NewInvalidArgument("invalid JSON body", err)
	}
	return nil
}

// reply writes err, or v (204 when v is nil).
func reply(w http.ResponseWriter, r *http.Request, v any, err error) {
	switch {
	case err != nil:
		writeError(w, r, err)
	case v == nil:
		writeNoContent(w)
	default:
		writeJSON(w, http.StatusOK, v)
	}
}
