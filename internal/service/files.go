package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"stratus/internal/analytics"
	"stratus/internal/cache"
	"stratus/internal/database"
	"stratus/internal/storage"
)

// UploadInput carries one upload request into the service.
type UploadInput struct {
	FileName    string
	ContentType string
	FolderID    *int
	IsPublic    bool
	Data        io.Reader
}

// UpdateInput carries a content update. Empty FileName or ContentType keeps
// the existing value; a nil IsPublic keeps the existing flag.
type UpdateInput struct {
	FileName    string
	ContentType string
	IsPublic    *bool
	Data        io.Reader
}

// Content is downloaded file content plus the headers a client needs.
type Content struct {
	Data        []byte
	Size        int64
	ContentType string
	FileName    string
}

// Upload stores new content for userID. Content already present anywhere in
// the system (matched by hash) is duplicated with a server-side copy instead
// of a second byte transfer; the new file still gets its own record and its
// own object key, so it versions and deletes independently of the original.
func (s *FileService) Upload(ctx context.Context, userID int, in UploadInput) (*database.File, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return nil, ErrMissingName
	}
	data, err := io.ReadAll(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	if in.FolderID != nil {
		if err := s.checkFolder(ctx, userID, *in.FolderID); err != nil {
			return nil, err
		}
	}

	hash, size, err := storage.ContentHash(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	// Best-effort dedup: a concurrent identical upload may slip past this
	// lookup, in which case both store their own bytes. Harmless.
	dup, err := s.files.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	f := &database.File{
		UserID:    userID,
		FolderID:  in.FolderID,
		FileName:  in.FileName,
		ObjectKey: storage.NewObjectKey(userID, in.FolderID, in.FileName),
		FileSize:  size,
		FileType:  in.ContentType,
		IsPublic:  in.IsPublic,
		Status:    database.StatusUploading,
		FileHash:  hash,
	}
	if err := s.files.Create(ctx, f); err != nil {
		return nil, err
	}

	if dup != nil {
		err = s.store.Copy(ctx, dup.ObjectKey, f.ObjectKey)
	} else {
		err = s.store.Put(ctx, f.ObjectKey, bytes.NewReader(data), size, in.ContentType)
	}
	if err != nil {
		// The row stays behind in ERROR for the reaper to sweep.
		if serr := s.files.SetStatus(ctx, f.ID, database.StatusError); serr != nil {
			slog.Error("failed to mark file as errored", "file_id", f.ID, "error", serr)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.files.SetStatus(ctx, f.ID, database.StatusAvailable); err != nil {
		return nil, err
	}
	f.Status = database.StatusAvailable

	s.record(ctx, analytics.Event{
		UserID:   userID,
		Type:     database.EventUpload,
		FileID:   f.ID,
		FileSize: f.FileSize,
		FileType: f.FileType,
	})
	s.invalidate(ctx)

	slog.Info("file uploaded",
		"file_id", f.ID,
		"user_id", userID,
		"size", f.FileSize,
		"deduplicated", dup != nil,
	)
	return f, nil
}

// Download fetches the file's current content for userID.
func (s *FileService) Download(ctx context.Context, userID, fileID int) (*Content, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.Status != database.StatusAvailable {
		return nil, ErrUnavailable
	}
	ok, err := s.canAccess(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	obj, err := s.store.Get(ctx, f.ObjectKey, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// Downloads count against the file's owner, not the requester.
	s.record(ctx, analytics.Event{
		UserID:   f.UserID,
		Type:     database.EventDownload,
		FileID:   f.ID,
		FileSize: f.FileSize,
		FileType: f.FileType,
	})

	return &Content{
		Data:        obj.Data,
		Size:        f.FileSize,
		ContentType: f.FileType,
		FileName:    f.FileName,
	}, nil
}

// Update overwrites the file's content in place, recording a new version at
// the same object key. Only the owner may update; a WRITE grant is not enough
// here, unlike RestoreVersion.
func (s *FileService) Update(ctx context.Context, userID, fileID int, in UpdateInput) (*database.File, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, ErrAccessDenied
	}

	data, err := io.ReadAll(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = f.FileType
	}
	if err := s.store.Put(ctx, f.ObjectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if in.FileName != "" {
		f.FileName = in.FileName
	}
	f.FileSize = int64(len(data))
	f.FileType = contentType
	if in.IsPublic != nil {
		f.IsPublic = *in.IsPublic
	}
	if err := s.files.UpdateContent(ctx, f); err != nil {
		return nil, err
	}

	s.record(ctx, analytics.Event{
		UserID:   userID,
		Type:     database.EventUpdate,
		FileID:   f.ID,
		FileSize: f.FileSize,
		FileType: f.FileType,
	})
	s.invalidate(ctx)

	return f, nil
}

// Delete removes the file's object and metadata. The object is deleted first:
// if the store call fails, the metadata stays intact and the delete can be
// retried, rather than leaving a record pointing at nothing.
func (s *FileService) Delete(ctx context.Context, userID, fileID int) error {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UserID != userID {
		return ErrAccessDenied
	}

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
	s.invalidate(ctx)

	slog.Info("file deleted", "file_id", f.ID, "user_id", userID)
	return nil
}

// List returns every file the user can see: their own, public files, and
// files they hold a grant on.
func (s *FileService) List(ctx context.Context, userID int) ([]*database.File, error) {
	return s.cached(ctx, cache.ListKey(userID), func() ([]*database.File, error) {
		return s.files.ListAccessible(ctx, userID)
	})
}

// Search matches the user's own files by name substring and, when tag is
// non-blank, by exact tag name. Search never widens to public or shared
// files.
func (s *FileService) Search(ctx context.Context, userID int, query, tag string) ([]*database.File, error) {
	return s.cached(ctx, cache.SearchKey(userID, query, tag), func() ([]*database.File, error) {
		if strings.TrimSpace(tag) != "" {
			return s.files.SearchByNameOrTag(ctx, userID, query, tag)
		}
		return s.files.SearchByName(ctx, userID, query)
	})
}

// SetTags replaces the file's tags. Owner only.
func (s *FileService) SetTags(ctx context.Context, userID, fileID int, tags []string) (*database.File, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, ErrAccessDenied
	}

	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if err := s.files.SetTags(ctx, f.ID, cleaned); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.getFile(ctx, f.ID)
}

func (s *FileService) getFile(ctx context.Context, fileID int) (*database.File, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FileService) checkFolder(ctx context.Context, userID, folderID int) error {
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
	return nil
}

// record emits an analytics event. Failures are logged and swallowed so
// telemetry can never fail a user-facing operation.
func (s *FileService) record(ctx context.Context, e analytics.Event) {
	if s.events == nil {
		return
	}
	e.OccurredAt = time.Now().UTC()
	if err := s.events.Record(ctx, e); err != nil {
		slog.Warn("failed to record analytics event",
			"event_type", e.Type,
			"file_id", e.FileID,
			"error", err,
		)
	}
}

// invalidate drops all cached listings. Best-effort: the entries expire on
// their own anyway.
func (s *FileService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate cache", "error", err)
	}
}

// cached runs load through the listing cache when one is configured. Cache
// errors fall through to the database.
func (s *FileService) cached(ctx context.Context, key string, load func() ([]*database.File, error)) ([]*database.File, error) {
	if s.cache != nil {
		if files, err := s.cache.GetFiles(ctx, key); err != nil {
			slog.Warn("failed to read cache", "key", key, "error", err)
		} else if files != nil {
			return files, nil
		}
	}

	files, err := load()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFiles(ctx, key, files); err != nil {
			slog.Warn("failed to write cache", "key", key, "error", err)
		}
	}
	return files, nil
}
