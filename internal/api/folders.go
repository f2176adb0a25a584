package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"stratus/internal/database"
)

type folderRequest struct {
	FolderName string `json:"folderName"`
	ParentID   *int   `json:"parentId"`
}

type folderResponse struct {
	FolderID   int    `json:"folderId"`
	FolderName string `json:"folderName"`
	ParentID   *int   `json:"parentId"`
	CreatedAt  int64  `json:"createdAt"`
}

func summarizeFolder(f *database.Folder) folderResponse {
	return folderResponse{
		FolderID:   f.ID,
		FolderName: f.FolderName,
		ParentID:   f.ParentID,
		CreatedAt:  f.CreatedAt.UnixMilli(),
	}
}

// HandleCreateFolder handles POST /api/folders.
func (h *Handler) HandleCreateFolder(c echo.Context) error {
	var req folderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	folder, err := h.files.CreateFolder(c.Request().Context(), userID(c), req.FolderName, req.ParentID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, summarizeFolder(folder))
}

// HandleListFolders handles GET /api/folders.
func (h *Handler) HandleListFolders(c echo.Context) error {
	folders, err := h.files.ListFolders(c.Request().Context(), userID(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	out := make([]folderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, summarizeFolder(f))
	}
	return c.JSON(http.StatusOK, out)
}

// HandleDeleteFolder handles DELETE /api/folders/:folderId.
// Contained files are deleted with the folder.
func (h *Handler) HandleDeleteFolder(c echo.Context) error {
	folderID, err := pathID(c, "folderId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.files.DeleteFolder(c.Request().Context(), userID(c), folderID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "folder deleted successfully",
	})
}
