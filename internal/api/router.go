package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"stratus/internal/auth"
	"stratus/internal/config"
)

// SetupRouter creates and configures the echo router with all routes and
// middleware.
func SetupRouter(handler *Handler, tokens *auth.Manager, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())

	// Rate limiter on upload endpoints only
	uploadLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	e.GET("/health", handler.HandleHealth)

	e.POST("/auth/register", handler.HandleRegister)
	e.POST("/auth/login", handler.HandleLogin)

	api := e.Group("/api", RequireAuth(tokens))

	// Files
	api.POST("/files/upload", handler.HandleUpload, uploadLimiter.Middleware())
	api.GET("/files/download/:fileId", handler.HandleDownload)
	api.GET("/files", handler.HandleList)
	api.GET("/files/search", handler.HandleSearch)
	api.GET("/files/:fileId/versions", handler.HandleListVersions)
	api.POST("/files/:fileId/versions/:versionId/restore", handler.HandleRestoreVersion)
	api.PUT("/files/:fileId/update", handler.HandleUpdate, uploadLimiter.Middleware())
	api.DELETE("/files/delete/:fileId", handler.HandleDelete)

	// Sharing & tags
	api.POST("/files/:fileId/permissions", handler.HandleGrantPermission)
	api.DELETE("/files/:fileId/permissions", handler.HandleRevokePermission)
	api.POST("/files/:fileId/tags", handler.HandleSetTags)

	// Folders
	api.POST("/folders", handler.HandleCreateFolder)
	api.GET("/folders", handler.HandleListFolders)
	api.DELETE("/folders/:folderId", handler.HandleDeleteFolder)

	// Analytics
	api.GET("/analytics/storage-usage", handler.HandleStorageUsage)
	api.GET("/analytics/file-types", handler.HandleFileTypes)
	api.GET("/analytics/access-frequency", handler.HandleAccessFrequency)

	return e
}
