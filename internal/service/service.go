// Package service contains the business logic: deduplicated uploads,
// permission-checked downloads, version restore, folders, tags, search, and
// account handling. Handlers translate its sentinel errors to HTTP statuses.
package service

import (
	"context"
	"errors"
	"time"

	"stratus/internal/analytics"
	"stratus/internal/database"
	"stratus/internal/storage"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound           = errors.New("file not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrFolderNotFound     = errors.New("folder not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrMissingName        = errors.New("file name is required")
	ErrUnavailable        = errors.New("file is not available")
	ErrInvalidPermission  = errors.New("invalid permission type")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrStorage wraps object-store failures so handlers can report the
	// storage backend as unavailable rather than a generic server error.
	ErrStorage = errors.New("storage service unavailable")
)

// FileRepo is the file-metadata persistence the service depends on.
type FileRepo interface {
	Create(ctx context.Context, f *database.File) error
	GetByID(ctx context.Context, id int) (*database.File, error)
	GetByHash(ctx context.Context, hash string) (*database.File, error)
	ListAccessible(ctx context.Context, userID int) ([]*database.File, error)
	SearchByName(ctx context.Context, userID int, query string) ([]*database.File, error)
	SearchByNameOrTag(ctx context.Context, userID int, query, tag string) ([]*database.File, error)
	ListByFolder(ctx context.Context, folderID int) ([]*database.File, error)
	ListStale(ctx context.Context, maxAge time.Duration) ([]*database.File, error)
	UpdateContent(ctx context.Context, f *database.File) error
	SetStatus(ctx context.Context, id int, status database.FileStatus) error
	Touch(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
	SetTags(ctx context.Context, fileID int, tags []string) error
}

// PermissionRepo persists per-file permission grants.
type PermissionRepo interface {
	Has(ctx context.Context, fileID, userID int, typ database.PermissionType) (bool, error)
	Grant(ctx context.Context, fileID, userID int, typ database.PermissionType) error
	Revoke(ctx context.Context, fileID, userID int, typ database.PermissionType) error
}

// FolderRepo persists folders.
type FolderRepo interface {
	Create(ctx context.Context, f *database.Folder) error
	GetByID(ctx context.Context, id int) (*database.Folder, error)
	ListByUser(ctx context.Context, userID int) ([]*database.Folder, error)
	ListByParent(ctx context.Context, parentID int) ([]*database.Folder, error)
	Delete(ctx context.Context, id int) error
}

// UserRepo persists accounts.
type UserRepo interface {
	Create(ctx context.Context, u *database.User) error
	GetByUsername(ctx context.Context, username string) (*database.User, error)
	GetByID(ctx context.Context, id int) (*database.User, error)
	RecordLogin(ctx context.Context, id int, at time.Time) error
}

// ListCache caches file listings. A nil ListCache disables caching.
// Invalidate drops every entry: a public file or a grant makes one user's
// mutation visible in other users' listings, so per-user eviction is not
// enough.
type ListCache interface {
	GetFiles(ctx context.Context, key string) ([]*database.File, error)
	SetFiles(ctx context.Context, key string, files []*database.File) error
	Invalidate(ctx context.Context) error
}

// FileService orchestrates file storage: hash computation, the copy-vs-upload
// decision, permission checks, versions, folders, and tags.
type FileService struct {
	files   FileRepo
	perms   PermissionRepo
	folders FolderRepo
	users   UserRepo
	store   storage.ObjectStore
	events  analytics.Recorder
	cache   ListCache
	maxSize int64
}

// NewFileService creates a new FileService. cache may be nil.
func NewFileService(
	files FileRepo,
	perms PermissionRepo,
	folders FolderRepo,
	users UserRepo,
	store storage.ObjectStore,
	events analytics.Recorder,
	cache ListCache,
	maxSize int64,
) *FileService {
	return &FileService{
		files:   files,
		perms:   perms,
		folders: folders,
		users:   users,
		store:   store,
		events:  events,
		cache:   cache,
		maxSize: maxSize,
	}
}
