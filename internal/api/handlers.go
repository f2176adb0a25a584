package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"stratus/internal/database"
	"stratus/internal/service"
	"stratus/internal/storage"
)

// Handler contains the HTTP handlers for the Stratus API.
type Handler struct {
	files *service.FileService
	users *service.UserService
	stats *service.StatsService
	db    *database.DB
}

// NewHandler creates a new handler with its service dependencies.
func NewHandler(files *service.FileService, users *service.UserService, stats *service.StatsService, db *database.DB) *Handler {
	return &Handler{files: files, users: users, stats: stats, db: db}
}

// FileSummary is the JSON shape for a file across all endpoints.
type FileSummary struct {
	FileID    int      `json:"fileId"`
	Filename  string   `json:"filename"`
	Filesize  int64    `json:"filesize"`
	IsPublic  bool     `json:"isPublic"`
	Filetype  string   `json:"filetype"`
	CreatedAt int64    `json:"createdAt"`
	Tags      []string `json:"tags"`
}

func summarize(f *database.File) FileSummary {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return FileSummary{
		FileID:    f.ID,
		Filename:  f.FileName,
		Filesize:  f.FileSize,
		IsPublic:  f.IsPublic,
		Filetype:  f.FileType,
		CreatedAt: f.CreatedAt.UnixMilli(),
		Tags:      tags,
	}
}

func summarizeAll(files []*database.File) []FileSummary {
	out := make([]FileSummary, 0, len(files))
	for _, f := range files {
		out = append(out, summarize(f))
	}
	return out
}

// versionEntry is the JSON shape for one stored version.
type versionEntry struct {
	Version   string `json:"version"`
	CreatedAt int64  `json:"createdAt"`
	Size      int64  `json:"size"`
}

func summarizeVersions(versions []storage.Version) []versionEntry {
	out := make([]versionEntry, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionEntry{
			Version:   v.ID,
			CreatedAt: v.LastModified.UnixMilli(),
			Size:      v.Size,
		})
	}
	return out
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// HandleUpload handles POST /api/files/upload.
// Accepts a multipart form with a "file" field plus optional "folderId" and
// "isPublic" fields.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	in := service.UploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        src,
	}
	if raw := c.FormValue("folderId"); raw != "" {
		folderID, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid folderId"})
		}
		in.FolderID = &folderID
	}
	if raw := c.FormValue("isPublic"); raw != "" {
		isPublic, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isPublic"})
		}
		in.IsPublic = isPublic
	}

	f, err := h.files.Upload(c.Request().Context(), userID(c), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, summarize(f))
}

// HandleDownload handles GET /api/files/download/:fileId.
// Serves the file content as an attachment.
func (h *Handler) HandleDownload(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	content, err := h.files.Download(c.Request().Context(), userID(c), fileID)
	if err != nil {
		return mapServiceError(c, err)
	}

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", content.FileName))
	c.Response().Header().Set("X-File-Id", strconv.Itoa(fileID))
	contentType := content.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Blob(http.StatusOK, contentType, content.Data)
}

// HandleList handles GET /api/files.
func (h *Handler) HandleList(c echo.Context) error {
	files, err := h.files.List(c.Request().Context(), userID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summarizeAll(files))
}

// HandleSearch handles GET /api/files/search?query=&tag=.
func (h *Handler) HandleSearch(c echo.Context) error {
	files, err := h.files.Search(c.Request().Context(), userID(c),
		c.QueryParam("query"), c.QueryParam("tag"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summarizeAll(files))
}

// HandleListVersions handles GET /api/files/:fileId/versions.
func (h *Handler) HandleListVersions(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	versions, err := h.files.ListVersions(c.Request().Context(), userID(c), fileID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summarizeVersions(versions))
}

// HandleRestoreVersion handles POST /api/files/:fileId/versions/:versionId/restore.
func (h *Handler) HandleRestoreVersion(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	versionID := c.Param("versionId")
	if err := h.files.RestoreVersion(c.Request().Context(), userID(c), fileID, versionID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "version restored successfully",
	})
}

// HandleUpdate handles PUT /api/files/:fileId/update.
// Accepts the same multipart form as upload; owner only.
func (h *Handler) HandleUpdate(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	in := service.UpdateInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        src,
	}
	if raw := c.FormValue("isPublic"); raw != "" {
		isPublic, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isPublic"})
		}
		in.IsPublic = &isPublic
	}

	f, err := h.files.Update(c.Request().Context(), userID(c), fileID, in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summarize(f))
}

// HandleDelete handles DELETE /api/files/delete/:fileId.
func (h *Handler) HandleDelete(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.files.Delete(c.Request().Context(), userID(c), fileID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "file deleted successfully",
	})
}

// permissionRequest is the body for granting or revoking a capability.
type permissionRequest struct {
	UserID int    `json:"userId"`
	Type   string `json:"type"`
}

// HandleGrantPermission handles POST /api/files/:fileId/permissions.
func (h *Handler) HandleGrantPermission(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var req permissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.files.Grant(c.Request().Context(), userID(c), fileID, req.UserID, req.Type); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "permission granted",
	})
}

// HandleRevokePermission handles DELETE /api/files/:fileId/permissions.
func (h *Handler) HandleRevokePermission(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var req permissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.files.Revoke(c.Request().Context(), userID(c), fileID, req.UserID, req.Type); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "permission revoked",
	})
}

// HandleSetTags handles POST /api/files/:fileId/tags.
func (h *Handler) HandleSetTags(c echo.Context) error {
	fileID, err := pathID(c, "fileId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var req struct {
		Tags []string `json:"tags"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	f, err := h.files.SetTags(c.Request().Context(), userID(c), fileID, req.Tags)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summarize(f))
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// mapServiceError translates service-layer errors into HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrInvalidPermission),
		errors.Is(err, service.ErrInvalidEventType):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrVersionNotFound),
		errors.Is(err, service.ErrFolderNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "file is not available"})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
	case errors.Is(err, service.ErrStorage):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage service unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
