package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FolderRepository provides folder persistence.
type FolderRepository struct {
	db *DB
}

// NewFolderRepository creates a new FolderRepository.
func NewFolderRepository(db *DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create inserts a new folder and fills in the generated id.
func (r *FolderRepository) Create(ctx context.Context, f *Folder) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO folders (user_id, folder_name, parent_id)
		VALUES ($1, $2, $3)
		RETURNING folder_id, created_at
	`, f.UserID, f.FolderName, f.ParentID).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// GetByID retrieves a folder by id.
func (r *FolderRepository) GetByID(ctx context.Context, id int) (*Folder, error) {
	f := &Folder{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT folder_id, user_id, folder_name, parent_id, created_at
		FROM folders WHERE folder_id = $1
	`, id).Scan(&f.ID, &f.UserID, &f.FolderName, &f.ParentID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return f, nil
}

// ListByUser returns all folders owned by a user.
func (r *FolderRepository) ListByUser(ctx context.Context, userID int) ([]*Folder, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT folder_id, user_id, folder_name, parent_id, created_at
		FROM folders WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		f := &Folder{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.FolderName, &f.ParentID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// ListByParent returns the direct child folders of a folder.
func (r *FolderRepository) ListByParent(ctx context.Context, parentID int) ([]*Folder, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT folder_id, user_id, folder_name, parent_id, created_at
		FROM folders WHERE parent_id = $1
		ORDER BY created_at
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		f := &Folder{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.FolderName, &f.ParentID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// Delete removes a folder record. Contained files must be deleted first by
// the caller — file rows reference the folder and object bytes live outside
// the database.
func (r *FolderRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM folders WHERE folder_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}
