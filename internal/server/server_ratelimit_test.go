package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lumina/internal/app"
	"lumina/internal/ratelimit"
	"lumina/internal/store"
)

func TestRegisterRateLimited(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:register", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	appCore, err := app.New(app.Config{
		Store:    store.NewMemoryStore(),
		Sessions: store.NewJWTSessionStore("test-secret", time.Hour),
		Files:    nopFiles{},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := New(Config{App: appCore, RegisterLimiter: limiter})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	register := func(email string) int {
		resp, _ := postJSON(t, ts, "/api/auth/register", "", map[string]string{
			"name": "User", "email": email, "password": "secret123", "user_type": "student",
		})
		return resp.StatusCode
	}

	if got := register("one@example.com"); got != http.StatusCreated {
		t.Fatalf("first register: status %d", got)
	}
	if got := register("two@example.com"); got != http.StatusCreated {
		t.Fatalf("second register: status %d", got)
	}
	if got := register("three@example.com"); got != http.StatusTooManyRequests {
		t.Fatalf("third register: status %d, want 429", got)
	}

	// Login is not throttled by the register limiter.
	resp, _ := postJSON(t, ts, "/api/auth/login", "", map[string]string{
		"email": "one@example.com", "password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login after register throttle: status %d, want 200", resp.StatusCode)
	}
}

type nopFiles struct{}

func (nopFiles) Save(_ context.Context, filename, _ string, _ io.Reader, _ int64) (string, error) {
	return "/uploads/" + filename, nil
}
