package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
)

func newAuthServiceForTest(t *testing.T) *authsvc.Service {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	return authsvc.NewService(jwtManager, redrepo.NewSessionRepo(client), 24*time.Hour)
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		token, ok := extractBearerToken(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Errorf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestAuthMiddlewarePassesIdentity(t *testing.T) {
	service := newAuthServiceForTest(t)

	issued, err := service.IssueSession(context.Background(), 42)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	var got authsvc.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		got = identity
		w.WriteHeader(http.StatusOK)
	})

	handler := AuthMiddleware(service, zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/limits", nil)
	req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != 42 {
		t.Errorf("identity user id = %d, want 42", got.UserID)
	}
	if got.SID == "" {
		t.Error("identity sid is empty")
	}
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	service := newAuthServiceForTest(t)

	handler := AuthMiddleware(service, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run")
	}))

	for _, header := range []string{"", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/limits", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestAuthMiddlewareRejectsLoggedOutSession(t *testing.T) {
	service := newAuthServiceForTest(t)

	issued, err := service.IssueSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if err := service.LogoutAll(context.Background(), 7); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	handler := AuthMiddleware(service, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestInternalAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("empty token disables the surface", func(t *testing.T) {
		handler := InternalAuthMiddleware("", zap.NewNop())(next)
		req := httptest.NewRequest(http.MethodPost, "/internal/auth/session", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		handler := InternalAuthMiddleware("secret", zap.NewNop())(next)
		req := httptest.NewRequest(http.MethodPost, "/internal/auth/session", nil)
		req.Header.Set("X-Internal-Token", "nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("matching token passes", func(t *testing.T) {
		handler := InternalAuthMiddleware("secret", zap.NewNop())(next)
		req := httptest.NewRequest(http.MethodPost, "/internal/auth/session", nil)
		req.Header.Set("X-Internal-Token", "secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
