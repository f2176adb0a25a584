package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"stratus/internal/service"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty file", service.ErrEmptyFile, http.StatusBadRequest},
		{"missing name", service.ErrMissingName, http.StatusBadRequest},
		{"invalid permission type", service.ErrInvalidPermission, http.StatusBadRequest},
		{"invalid event type", service.ErrInvalidEventType, http.StatusBadRequest},
		{"too large", service.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"access denied", service.ErrAccessDenied, http.StatusForbidden},
		{"file missing", service.ErrNotFound, http.StatusNotFound},
		{"version missing", service.ErrVersionNotFound, http.StatusNotFound},
		{"folder missing", service.ErrFolderNotFound, http.StatusNotFound},
		{"user missing", service.ErrUserNotFound, http.StatusNotFound},
		{"not available", service.ErrUnavailable, http.StatusConflict},
		{"username taken", service.ErrUsernameTaken, http.StatusConflict},
		{"storage down", service.ErrStorage, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			if err := mapServiceError(c, tt.err); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	t.Run("wrapped errors still map", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		wrapped := errors.Join(errors.New("context"), service.ErrStorage)
		if err := mapServiceError(c, wrapped); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}
