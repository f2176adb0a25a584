package storage

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewObjectKey(t *testing.T) {
	folder := 7

	tests := []struct {
		name     string
		userID   int
		folderID *int
		filename string
		pattern  string
	}{
		{
			name:     "root scope with extension",
			userID:   12,
			folderID: nil,
			filename: "report.PDF",
			pattern:  `^users/12/root/\d+_[0-9a-f-]{36}\.pdf$`,
		},
		{
			name:     "folder scope",
			userID:   3,
			folderID: &folder,
			filename: "photo.jpg",
			pattern:  `^users/3/folders/7/\d+_[0-9a-f-]{36}\.jpg$`,
		},
		{
			name:     "no extension",
			userID:   1,
			folderID: nil,
			filename: "Makefile",
			pattern:  `^users/1/root/\d+_[0-9a-f-]{36}$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewObjectKey(tt.userID, tt.folderID, tt.filename)
			matched, err := regexp.MatchString(tt.pattern, key)
			if err != nil {
				t.Fatalf("bad pattern: %v", err)
			}
			if !matched {
				t.Errorf("key %q does not match %q", key, tt.pattern)
			}
		})
	}
}

func TestNewObjectKeyIsUnique(t *testing.T) {
	a := NewObjectKey(1, nil, "a.txt")
	b := NewObjectKey(1, nil, "a.txt")
	if a == b {
		t.Errorf("expected distinct keys for identical inputs, got %q twice", a)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", "pdf"},
		{"archive.TAR.GZ", "gz"},
		{"IMAGE.PNG", "png"},
		{"noext", ""},
		{"trailing.", ""},
		{".gitignore", "gitignore"},
	}

	for _, tt := range tests {
		if got := Extension(tt.filename); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExtensionIsLowercased(t *testing.T) {
	key := NewObjectKey(1, nil, "SHOUTY.TXT")
	if !strings.HasSuffix(key, ".txt") {
		t.Errorf("expected lowercased extension in key, got %q", key)
	}
}
