package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flowforge/engine/internal/engineerr"
)

// Response is the standard success envelope for every endpoint.
type Response struct {
	Data interface{} `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code alongside the message.
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Response{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// decodeJSONBody decodes the request body into v, writing a 400 response
// and returning false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return false
	}
	return true
}

// handleEngineError maps the engine's closed Kind taxonomy to HTTP status
// codes, falling back to 500 for anything it doesn't carry a Kind for.
func handleEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind, ok := engineerr.KindOf(err)
	if !ok {
		logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	switch kind {
	case engineerr.InputValidationError, engineerr.MappingValidationError, engineerr.ConfigurationError:
		writeError(w, http.StatusBadRequest, string(kind), err.Error())
	case engineerr.ToolExecutionError, engineerr.InfiniteLoopSuspected:
		writeError(w, http.StatusUnprocessableEntity, string(kind), err.Error())
	case engineerr.Cancelled:
		writeError(w, http.StatusConflict, string(kind), err.Error())
	default:
		logger.Error("unhandled engine error kind", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
