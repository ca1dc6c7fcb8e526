package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func statusFor(err error) int {
	var validationErr *settlement.ValidationError
	var notFound *roommate.ErrNotFound
	var duplicate *roommate.ErrDuplicateRoommate
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, settlement.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, settlement.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, settlement.ErrNotFoundOrUnauthorized), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var validationErr *settlement.ValidationError
	if errors.As(err, &validationErr) {
		resp.Field = validationErr.Field
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "err", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Writing response", "err", err)
	}
}
