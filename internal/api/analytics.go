package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleStorageUsage handles GET /api/analytics/storage-usage.
// Reports the caller's total uploaded bytes, from UPLOAD events.
func (h *Handler) HandleStorageUsage(c echo.Context) error {
	total, err := h.stats.StorageUsage(c.Request().Context(), userID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"totalStorageBytes": total,
	})
}

// HandleFileTypes handles GET /api/analytics/file-types.
func (h *Handler) HandleFileTypes(c echo.Context) error {
	counts, err := h.stats.FileTypeCounts(c.Request().Context(), userID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// HandleAccessFrequency handles GET /api/analytics/access-frequency?eventType=.
// Returns per-day counts for the requested event type.
func (h *Handler) HandleAccessFrequency(c echo.Context) error {
	freq, err := h.stats.EventFrequency(c.Request().Context(), userID(c), c.QueryParam("eventType"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, freq)
}
