package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/infrastructure/auth"
)

func TestAuthenticate(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := manager.Generate(domain.Actor{ID: "u-1", Role: domain.RoleAccountant, Branches: []string{"north"}})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor domain.Actor
			h := Authenticate(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor, _ = domain.ActorFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if tt.want == http.StatusOK && (actor.ID != "u-1" || actor.Role != domain.RoleAccountant || !actor.CoversBranch("north")) {
				t.Fatalf("unexpected actor %+v", actor)
			}
		})
	}
}

func TestRequestContextCopiesRequestID(t *testing.T) {
	var got string
	h := chimiddleware.RequestID(RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = domain.RequestIDFromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got != "req-42" {
		t.Fatalf("expected request id req-42, got %q", got)
	}
	if rr.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("expected response header to echo the id")
	}
}
