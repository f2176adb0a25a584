package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"stratus/internal/analytics"
	"stratus/internal/database"
	"stratus/internal/storage"
)

// ListVersions returns the file's stored versions, newest first. The object
// store is queried every time; version history is never cached.
func (s *FileService) ListVersions(ctx context.Context, userID, fileID int) ([]storage.Version, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canAccess(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	versions, err := s.store.ListVersions(ctx, f.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// Like downloads, version views count against the file's owner.
	s.record(ctx, analytics.Event{
		UserID:   f.UserID,
		Type:     database.EventViewVersions,
		FileID:   f.ID,
		FileSize: f.FileSize,
		FileType: f.FileType,
	})
	return versions, nil
}

// RestoreVersion re-uploads a historical version's bytes to the file's
// current key, so the restored content becomes the newest version without
// rewriting history. Requires write access; a WRITE grant suffices here.
func (s *FileService) RestoreVersion(ctx context.Context, userID, fileID int, versionID string) error {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return err
	}
	ok, err := s.canWrite(ctx, userID, f)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}

	obj, err := s.store.Get(ctx, f.ObjectKey, versionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrVersionNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.store.Put(ctx, f.ObjectKey, bytes.NewReader(obj.Data), obj.Size, obj.ContentType); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.files.Touch(ctx, f.ID); err != nil {
		return err
	}

	s.record(ctx, analytics.Event{
		UserID:   userID,
		Type:     database.EventRestoreVersion,
		FileID:   f.ID,
		FileSize: obj.Size,
		FileType: obj.ContentType,
	})
	return nil
}
