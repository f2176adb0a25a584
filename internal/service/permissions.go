package service

import (
	"context"
	"errors"
	"log/slog"

	"stratus/internal/database"
)

// canAccess reports whether userID may read the file: owners and public files
// always pass, otherwise a READ grant is required.
func (s *FileService) canAccess(ctx context.Context, userID int, f *database.File) (bool, error) {
	if f.UserID == userID || f.IsPublic {
		return true, nil
	}
	return s.perms.Has(ctx, f.ID, userID, database.PermissionRead)
}

// canWrite is canAccess with a WRITE grant instead of READ. Note that a
// public file is writable by anyone: public short-circuits both checks.
func (s *FileService) canWrite(ctx context.Context, userID int, f *database.File) (bool, error) {
	if f.UserID == userID || f.IsPublic {
		return true, nil
	}
	return s.perms.Has(ctx, f.ID, userID, database.PermissionWrite)
}

func parsePermissionType(raw string) (database.PermissionType, error) {
	switch typ := database.PermissionType(raw); typ {
	case database.PermissionRead, database.PermissionWrite, database.PermissionDelete:
		return typ, nil
	default:
		return "", ErrInvalidPermission
	}
}

// Grant gives targetUser a capability on the file. Only the owner may grant,
// and the target account must exist.
func (s *FileService) Grant(ctx context.Context, ownerID, fileID, targetUserID int, rawType string) error {
	typ, err := parsePermissionType(rawType)
	if err != nil {
		return err
	}
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UserID != ownerID {
		return ErrAccessDenied
	}
	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.perms.Grant(ctx, fileID, targetUserID, typ); err != nil {
		return err
	}
	// A grant puts the file in the target's listing.
	s.invalidate(ctx)

	slog.Info("permission granted",
		"file_id", fileID,
		"user_id", targetUserID,
		"type", typ,
	)
	return nil
}

// Revoke removes a capability. Only the owner may revoke.
func (s *FileService) Revoke(ctx context.Context, ownerID, fileID, targetUserID int, rawType string) error {
	typ, err := parsePermissionType(rawType)
	if err != nil {
		return err
	}
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UserID != ownerID {
		return ErrAccessDenied
	}
	if err := s.perms.Revoke(ctx, fileID, targetUserID, typ); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
