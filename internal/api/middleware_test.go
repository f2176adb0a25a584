package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"stratus/internal/auth"
)

func authedRequest(t *testing.T, tokens *auth.Manager, userID int) *http.Request {
	t.Helper()
	token, err := tokens.Issue(userID, "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewManager([]byte("test-secret"), time.Hour)
	e := echo.New()
	handler := RequireAuth(tokens)(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": userID(c)})
	})

	t.Run("valid token passes and sets the user id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(authedRequest(t, tokens, 42), rec)

		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if got := userID(c); got != 42 {
			t.Errorf("expected user id 42 on context, got %d", got)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("token signed with another secret rejected", func(t *testing.T) {
		other := auth.NewManager([]byte("other-secret"), time.Hour)
		rec := httptest.NewRecorder()
		c := e.NewContext(authedRequest(t, other, 1), rec)

		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expired := auth.NewManager([]byte("test-secret"), -time.Minute)
		rec := httptest.NewRecorder()
		c := e.NewContext(authedRequest(t, expired, 1), rec)

		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRateLimiterAllow(t *testing.T) {
	t.Run("burst then deny", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)
		for i := 0; i < 3; i++ {
			if !rl.allow("10.0.0.1") {
				t.Fatalf("request %d within burst was denied", i+1)
			}
		}
		if rl.allow("10.0.0.1") {
			t.Error("expected request beyond burst to be denied")
		}
	})

	t.Run("limits are per ip", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		if !rl.allow("10.0.0.1") {
			t.Fatal("first request denied")
		}
		if !rl.allow("10.0.0.2") {
			t.Error("expected a different ip to have its own bucket")
		}
	})
}
