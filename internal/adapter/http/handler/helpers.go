package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/infrastructure/i18n"
	"github.com/iho/gojournal/internal/infrastructure/logger"
)

const maxBodyBytes = 1 << 20

var translator = i18n.MustNewTranslator()

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to its kind and writes a localized error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := mapDomainError(err)

	details := err.Error()
	if status >= http.StatusInternalServerError {
		l := logger.ForRequest(r.Context(), log.Logger)
		l.Error().Err(err).
			Str("kind", string(kind)).
			Str("path", r.URL.Path).
			Msg("request failed")
		if kind == domain.KindInternal {
			details = ""
		}
	}

	writeJSON(w, status, dto.ErrorResponse{
		Error:   string(kind),
		Message: translator.Message(r.Header.Get("Accept-Language"), kind),
		Details: details,
	})
}

// mapDomainError maps error kinds to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindUnbalanced:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidState, domain.KindConflict, domain.KindHasDependents:
		return http.StatusConflict
	case domain.KindPeriodClosed, domain.KindReadOnly:
		return http.StatusLocked
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a request body into dst and validates its tags. An empty
// body leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil || r.ContentLength == 0 {
		if allowEmpty {
			return dto.Validate(dst)
		}
		return fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", domain.ErrValidation, err)
	}
	return dto.Validate(dst)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	return dto.ParseDate(r.URL.Query().Get(key))
}

// parseRange reads the from and to query parameters.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must not be before from", domain.ErrValidation)
	}
	return from, to, nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}
