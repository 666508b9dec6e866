package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/rebate"
)

const (
	codeUnauthorized = "UNAUTHORIZED"
	codeInternal     = "INTERNAL_ERROR"
)

type errorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Resource string `json:"resource,omitempty"`
	Index    *int   `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

// classify maps err onto an HTTP status and a client-safe body. Database and
// unexpected errors never leak their detail.
func classify(err error) (int, errorBody) {
	var (
		verr  *apperrors.ValidationError
		nerr  *apperrors.NotFoundError
		berr  *apperrors.BusinessRuleError
		batch *rebate.BatchError
	)

	var body errorBody
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = errorBody{Code: verr.Code, Message: verr.Message, Field: verr.Field}
	case errors.As(err, &nerr):
		status = http.StatusNotFound
		body = errorBody{Code: nerr.Code, Message: nerr.Message, Resource: nerr.Resource}
	case errors.As(err, &berr):
		status = http.StatusConflict
		body = errorBody{Code: berr.Code, Message: berr.Message, Rule: berr.Rule}
	default:
		body = errorBody{Code: codeInternal, Message: "internal error"}
	}

	if errors.As(err, &batch) {
		index := batch.Index
		body.Index = &index
		body.ID = batch.ID
	}
	return status, body
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		logger.Debug.Printf("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: body})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    apperrors.CodeInvalidRequest,
		Message: message,
	}})
}

// queryInt reads an optional integer query parameter. Missing means zero.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation(name, apperrors.CodeInvalidFilter, name+" must be an integer")
	}
	return n, nil
}
