package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gojournal/internal/adapter/repository/redis"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks responses served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"
	defaultIdempotencyTTL   = 24 * time.Hour
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// IdempotencyMiddleware replays the stored 2xx response of a mutating
// request sent again with the same Idempotency-Key.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(IdempotencyKeyHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := scopedKey(r, header)

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("key", header).Msg("idempotency check failed")
			writeError(w, http.StatusServiceUnavailable, string(domain.KindUnavailable), "idempotency check failed")
			return
		}

		if exists {
			if bytes.Equal(cached, redis.ProcessingMarker) || len(cached) == 0 {
				writeError(w, http.StatusConflict, string(domain.KindConflict), "a request with this idempotency key is in progress")
				return
			}
			replay(w, cached)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// The request may have been cancelled; the store must still settle.
		ctx := context.WithoutCancel(r.Context())
		if recorder.statusCode >= 200 && recorder.statusCode < 300 {
			payload, err := json.Marshal(storedResponse{Status: recorder.statusCode, Body: recorder.jsonBody()})
			if err == nil {
				err = m.store.Update(ctx, key, payload, m.ttl)
			}
			if err != nil {
				m.logger.Warn().Err(err).Str("key", header).Msg("store idempotent response")
			}
			return
		}

		if err := m.store.Release(ctx, key); err != nil {
			m.logger.Warn().Err(err).Str("key", header).Msg("release idempotency key")
		}
	})
}

func replay(w http.ResponseWriter, cached []byte) {
	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil || stored.Status == 0 {
		stored = storedResponse{Status: http.StatusOK, Body: cached}
	}

	w.Header().Set(IdempotencyReplayHeader, "true")
	if len(stored.Body) == 0 {
		w.WriteHeader(stored.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// scopedKey binds a client key to the actor and route so that keys cannot
// collide across callers or endpoints.
func scopedKey(r *http.Request, key string) string {
	actor := domain.SystemActor.ID
	if a, ok := domain.ActorFromContext(r.Context()); ok {
		actor = a.ID
	}
	return actor + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) jsonBody() json.RawMessage {
	b := bytes.TrimSpace(r.body.Bytes())
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}
