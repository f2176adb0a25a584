package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrFileNotFound   = errors.New("file not found")
	ErrFolderNotFound = errors.New("folder not found")
)

// selectFile is the shared projection for file queries. Tag names are
// aggregated into a text[] so a single round trip returns the full record.
const selectFile = `
	SELECT f.file_id, f.user_id, f.folder_id, f.file_name, f.object_key,
		   f.file_size, f.file_type, f.is_public, f.status, f.file_hash,
		   f.created_at, f.updated_at,
		   COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}')
	FROM files f
	LEFT JOIN file_tags ft ON ft.file_id = f.file_id
	LEFT JOIN tags t ON t.tag_id = ft.tag_id
`

// FileRepository provides CRUD operations for file metadata.
type FileRepository struct {
	db *DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a new file record and fills in the generated id and timestamps.
func (r *FileRepository) Create(ctx context.Context, f *File) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO files (user_id, folder_id, file_name, object_key, file_size,
						   file_type, is_public, status, file_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING file_id, created_at, updated_at
	`,
		f.UserID,
		f.FolderID,
		f.FileName,
		f.ObjectKey,
		f.FileSize,
		f.FileType,
		f.IsPublic,
		f.Status,
		f.FileHash,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID retrieves a file by its id.
func (r *FileRepository) GetByID(ctx context.Context, id int) (*File, error) {
	row := r.db.Pool.QueryRow(ctx, selectFile+`
		WHERE f.file_id = $1
		GROUP BY f.file_id
	`, id)

	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// GetByHash finds an AVAILABLE file with a matching content hash, independent
// of owner. Only AVAILABLE rows qualify: a row still in UPLOADING has no bytes
// behind its key yet, so copying from it would fail. Returns (nil, nil) when
// no duplicate exists.
func (r *FileRepository) GetByHash(ctx context.Context, hash string) (*File, error) {
	row := r.db.Pool.QueryRow(ctx, selectFile+`
		WHERE f.file_hash = $1 AND f.status = $2
		GROUP BY f.file_id
		LIMIT 1
	`, hash, StatusAvailable)

	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query by hash: %w", err)
	}
	return f, nil
}

// ListAccessible returns files the user owns, public files, and files the
// user holds any permission grant on.
func (r *FileRepository) ListAccessible(ctx context.Context, userID int) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx, selectFile+`
		WHERE f.user_id = $1
		   OR f.is_public
		   OR EXISTS (
				SELECT 1 FROM file_permissions fp
				WHERE fp.file_id = f.file_id AND fp.user_id = $1
		   )
		GROUP BY f.file_id
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accessible files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// SearchByName matches the user's own files whose name contains query,
// case-insensitively.
func (r *FileRepository) SearchByName(ctx context.Context, userID int, query string) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx, selectFile+`
		WHERE f.user_id = $1 AND f.file_name ILIKE '%' || $2 || '%'
		GROUP BY f.file_id
		ORDER BY f.created_at DESC
	`, userID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// SearchByNameOrTag matches the user's own files by name substring or exact
// tag name, both case-insensitive.
func (r *FileRepository) SearchByNameOrTag(ctx context.Context, userID int, query, tag string) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx, selectFile+`
		WHERE f.user_id = $1
		  AND (f.file_name ILIKE '%' || $2 || '%'
			   OR EXISTS (
					SELECT 1 FROM file_tags ft2
					JOIN tags t2 ON t2.tag_id = ft2.tag_id
					WHERE ft2.file_id = f.file_id AND LOWER(t2.name) = LOWER($3)
			   ))
		GROUP BY f.file_id
		ORDER BY f.created_at DESC
	`, userID, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ListByFolder returns all files in a folder. Used for cascade deletion.
func (r *FileRepository) ListByFolder(ctx context.Context, folderID int) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx, selectFile+`
		WHERE f.folder_id = $1
		GROUP BY f.file_id
	`, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files in folder: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ListStale returns files stuck in a transient status longer than maxAge.
func (r *FileRepository) ListStale(ctx context.Context, maxAge time.Duration) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx, selectFile+`
		WHERE f.status IN ($1, $2) AND f.updated_at < NOW() - $3::interval
		GROUP BY f.file_id
	`, StatusUploading, StatusError, maxAge.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// UpdateContent persists the metadata changed by a content update. file_hash
// is deliberately left alone: it keeps describing the originally uploaded
// bytes, so a later upload matching the old hash dedup-copies whatever the
// key holds now.
func (r *FileRepository) UpdateContent(ctx context.Context, f *File) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE files
		SET file_name = $1, file_size = $2, file_type = $3, is_public = $4,
			updated_at = NOW()
		WHERE file_id = $5
	`, f.FileName, f.FileSize, f.FileType, f.IsPublic, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// SetStatus moves a file to a new lifecycle status.
func (r *FileRepository) SetStatus(ctx context.Context, id int, status FileStatus) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE files SET status = $1, updated_at = NOW() WHERE file_id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to set file status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// Touch bumps the updated_at timestamp.
func (r *FileRepository) Touch(ctx context.Context, id int) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE files SET updated_at = NOW() WHERE file_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to touch file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// Delete removes a file record. Tag links and permission grants go with it
// via ON DELETE CASCADE.
func (r *FileRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM files WHERE file_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// SetTags replaces the file's tag set, creating tags that don't exist yet.
func (r *FileRepository) SetTags(ctx context.Context, fileID int, tags []string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM file_tags WHERE file_id = $1", fileID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}

	for _, name := range tags {
		var tagID int
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING tag_id
		`, name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO file_tags (file_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			fileID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tag update: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*File, error) {
	f := &File{}
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.FolderID,
		&f.FileName,
		&f.ObjectKey,
		&f.FileSize,
		&f.FileType,
		&f.IsPublic,
		&f.Status,
		&f.FileHash,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.Tags,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func scanFiles(rows pgx.Rows) ([]*File, error) {
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
