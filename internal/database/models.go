package database

import "time"

// FileStatus describes where a file is in its lifecycle.
// Only AVAILABLE files can be downloaded.
type FileStatus string

const (
	StatusUploading   FileStatus = "UPLOADING"
	StatusAvailable   FileStatus = "AVAILABLE"
	StatusProcessing  FileStatus = "PROCESSING"
	StatusQuarantined FileStatus = "QUARANTINED"
	StatusDeleted     FileStatus = "DELETED"
	StatusArchived    FileStatus = "ARCHIVED"
	StatusError       FileStatus = "ERROR"
)

// PermissionType is a per-file capability granted to a non-owner.
type PermissionType string

const (
	PermissionRead   PermissionType = "READ"
	PermissionWrite  PermissionType = "WRITE"
	PermissionDelete PermissionType = "DELETE"
)

// EventType classifies analytics events.
type EventType string

const (
	EventUpload         EventType = "UPLOAD"
	EventDownload       EventType = "DOWNLOAD"
	EventUpdate         EventType = "UPDATE"
	EventDelete         EventType = "DELETE"
	EventRestoreVersion EventType = "RESTORE_VERSION"
	EventViewVersions   EventType = "VIEW_VERSIONS"
)

// User is an account row.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// File is one logical, user-owned file. ObjectKey is unique per row;
// FileHash is not (identical content shares a hash — the dedup case).
type File struct {
	ID        int
	UserID    int
	FolderID  *int
	FileName  string
	ObjectKey string
	FileSize  int64
	FileType  string
	IsPublic  bool
	Status    FileStatus
	FileHash  string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tags      []string
}

// Folder is a user-owned container for files, optionally nested.
type Folder struct {
	ID         int
	UserID     int
	FolderName string
	ParentID   *int
	CreatedAt  time.Time
}

// FilePermission grants a capability on a file to a user other than its owner.
type FilePermission struct {
	ID     int
	FileID int
	UserID int
	Type   PermissionType
}

// AnalyticsEvent is an append-only usage record.
type AnalyticsEvent struct {
	ID         int64
	UserID     int
	EventType  EventType
	FileID     int
	FileSize   int64
	FileType   string
	OccurredAt time.Time
}
