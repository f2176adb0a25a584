package database

import (
	"context"
	"fmt"
)

// PermissionRepository provides access to per-file permission grants.
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new PermissionRepository.
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Has reports whether a grant of the given type exists for (file, user).
func (r *PermissionRepository) Has(ctx context.Context, fileID, userID int, typ PermissionType) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM file_permissions
			WHERE file_id = $1 AND user_id = $2 AND type = $3
		)
	`, fileID, userID, typ).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return exists, nil
}

// Grant records a permission. Granting twice is a no-op.
func (r *PermissionRepository) Grant(ctx context.Context, fileID, userID int, typ PermissionType) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO file_permissions (file_id, user_id, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id, user_id, type) DO NOTHING
	`, fileID, userID, typ)
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// Revoke removes a permission grant if present.
func (r *PermissionRepository) Revoke(ctx context.Context, fileID, userID int, typ PermissionType) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM file_permissions
		WHERE file_id = $1 AND user_id = $2 AND type = $3
	`, fileID, userID, typ)
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}
