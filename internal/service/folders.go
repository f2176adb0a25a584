package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stratus/internal/analytics"
	"stratus/internal/database"
)

// CreateFolder creates a folder for userID, optionally nested under a parent
// the user owns.
func (s *FileService) CreateFolder(ctx context.Context, userID int, name string, parentID *int) (*database.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingName
	}
	if parentID != nil {
		if err := s.checkFolder(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	}

	folder := &database.Folder{
		UserID:     userID,
		FolderName: name,
		ParentID:   parentID,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// ListFolders returns the user's folders.
func (s *FileService) ListFolders(ctx context.Context, userID int) ([]*database.Folder, error) {
	return s.folders.ListByUser(ctx, userID)
}

// DeleteFolder removes a folder the user owns along with every file and
// subfolder in it, depth first so no child row ever references a deleted
// parent. Each contained file goes through the same object-before-metadata
// deletion as a direct delete, so a storage failure aborts the cascade with
// the remaining records intact.
func (s *FileService) DeleteFolder(ctx context.Context, userID, folderID int) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, database.ErrFolderNotFound) {
			return ErrFolderNotFound
		}
		return err
	}
	if folder.UserID != userID {
		return ErrAccessDenied
	}

	if err := s.deleteFolderTree(ctx, userID, folderID); err != nil {
		return err
	}
	s.invalidate(ctx)

	slog.Info("folder deleted", "folder_id", folderID, "user_id", userID)
	return nil
}

func (s *FileService) deleteFolderTree(ctx context.Context, userID, folderID int) error {
	children, err := s.folders.ListByParent(ctx, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.deleteFolderTree(ctx, userID, child.ID); err != nil {
			return err
		}
	}

	files, err := s.files.ListByFolder(ctx, folderID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.store.Delete(ctx, f.ObjectKey); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if err := s.files.Delete(ctx, f.ID); err != nil {
			return err
		}
		s.record(ctx, analytics.Event{
			UserID:   userID,
			Type:     database.EventDelete,
			FileID:   f.ID,
			FileSize: f.FileSize,
			FileType: f.FileType,
		})
	}

	return s.folders.Delete(ctx, folderID)
}
