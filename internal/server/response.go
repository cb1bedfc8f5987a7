package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lodgepole-labs/lodgepole/internal/apikey"
	"github.com/lodgepole-labs/lodgepole/internal/auth"
	lphttp "github.com/lodgepole-labs/lodgepole/internal/http"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

// errorBody is the standard error envelope. RequestID lets callers quote a
// single id when reporting problems.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to encode response body")
	}
}

// writeError maps domain errors onto the error envelope. Authorization
// errors carry their own code and status; store sentinels map to not_found
// and conflict; anything else is an opaque internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := lphttp.RequestIDFromContext(r.Context())

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		writeJSON(w, authErr.Status, errorBody{Error: errorDetail{
			Code:      authErr.Code,
			Message:   authErr.Message,
			RequestID: requestID,
		}})
		return
	}

	switch {
	case errors.Is(err, store.ErrMembershipNotFound),
		errors.Is(err, store.ErrAPIKeyNotFound),
		errors.Is(err, store.ErrPropertyNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code:      "not_found",
			Message:   err.Error(),
			RequestID: requestID,
		}})
	case errors.Is(err, apikey.ErrInvalidKey):
		writeJSON(w, http.StatusConflict, errorBody{Error: errorDetail{
			Code:      "conflict",
			Message:   "api key is not usable",
			RequestID: requestID,
		}})
	case errors.Is(err, store.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: errorDetail{
			Code:      "conflict",
			Message:   err.Error(),
			RequestID: requestID,
		}})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:      "internal",
			Message:   "internal server error",
			RequestID: requestID,
		}})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
		Code:      "rate_limited",
		Message:   "too many requests",
		RequestID: lphttp.RequestIDFromContext(r.Context()),
	}})
}

// badRequest builds a 400 in the standard envelope shape.
func badRequest(message string) error {
	return &auth.Error{Code: "bad_request", Status: http.StatusBadRequest, Message: message}
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
