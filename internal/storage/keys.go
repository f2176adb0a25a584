package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewObjectKey derives a globally-unique object key for a new logical file:
//
//	users/{userId}/{folders/{folderId}|root}/{unixMillis}_{uuid}.{ext}
//
// Every upload gets a fresh key even when content is deduplicated, so each
// file record versions independently in the object store.
func NewObjectKey(userID int, folderID *int, filename string) string {
	scope := "root"
	if folderID != nil {
		scope = fmt.Sprintf("folders/%d", *folderID)
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), uuid.NewString())
	if ext := Extension(filename); ext != "" {
		name += "." + ext
	}
	return fmt.Sprintf("users/%d/%s/%s", userID, scope, name)
}

// Extension returns the filename's extension without the leading dot,
// lowercased. Empty when there is none.
func Extension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
