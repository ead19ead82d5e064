package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
)

func TestIssueAndValidate(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	result, err := svc.IssueSession(ctx, 1001)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	claims, err := svc.ValidateAccessToken(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != 1001 {
		t.Fatalf("claims user id = %d, want 1001", claims.UserID)
	}

	online, err := svc.IsOnline(ctx, 1001)
	if err != nil {
		t.Fatalf("is online: %v", err)
	}
	if !online {
		t.Fatalf("user with live session should be online")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	result, err := svc.IssueSession(ctx, 2002)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	claims, err := svc.ValidateAccessToken(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("validate access token before logout: %v", err)
	}

	if err := svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, result.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after logout, got err=%v", err)
	}

	online, err := svc.IsOnline(ctx, 2002)
	if err != nil {
		t.Fatalf("is online: %v", err)
	}
	if online {
		t.Fatalf("user should be offline after logout")
	}
}

func newAuthServiceForTest(t *testing.T) (*authsvc.Service, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	repo := redrepo.NewSessionRepo(client)
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(jwtManager, repo, 45*24*time.Hour)

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}

	return svc, cleanup
}
