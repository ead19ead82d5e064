package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
)

func newWindowStoreForTest(t *testing.T) *redrepo.RateRepo {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redrepo.NewRateRepo(client)
}

func TestAllowLikeWithinWindow(t *testing.T) {
	limiter := NewLimiter(newWindowStoreForTest(t), 3, 0)

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowLike(context.Background(), 42)
		if err != nil {
			t.Fatalf("allow like #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("like #%d should pass, got allowed=%v retryAfter=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowLike(context.Background(), 42)
	if err != nil {
		t.Fatalf("allow like over limit: %v", err)
	}
	if allowed {
		t.Fatal("fourth like inside the minute must be blocked")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("retry after = %d, want within (0, 60]", retryAfter)
	}
}

func TestAllowLikeIsolatesUsers(t *testing.T) {
	limiter := NewLimiter(newWindowStoreForTest(t), 1, 0)

	if _, allowed, _ := limiter.AllowLike(context.Background(), 1); !allowed {
		t.Fatal("first like for user 1 should pass")
	}
	if _, allowed, _ := limiter.AllowLike(context.Background(), 2); !allowed {
		t.Fatal("user 2 has an independent window")
	}
}

func TestAllowLikeFailsOpenWithoutStore(t *testing.T) {
	limiter := NewLimiter(nil, 1, 1)

	retryAfter, allowed, err := limiter.AllowLike(context.Background(), 42)
	if err != nil {
		t.Fatalf("allow like: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatal("missing store must open the gate")
	}
}

func TestAllowLikeFailsOpenOnStoreError(t *testing.T) {
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	mini.Close()
	_ = client.Close()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 1, 1)

	_, allowed, err := limiter.AllowLike(context.Background(), 42)
	if err != nil {
		t.Fatalf("allow like: %v", err)
	}
	if !allowed {
		t.Fatal("store failure must open the gate")
	}
}

func TestAllowLikeRejectsInvalidUser(t *testing.T) {
	limiter := NewLimiter(nil, 1, 1)

	if _, _, err := limiter.AllowLike(context.Background(), 0); err == nil {
		t.Fatal("expected error for invalid user id")
	}
}

func TestCeilSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int64
	}{
		{0, 0},
		{-time.Second, 0},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
	}
	for _, tc := range cases {
		if got := ceilSeconds(tc.in); got != tc.want {
			t.Errorf("ceilSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
