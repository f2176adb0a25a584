package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"stratus/internal/analytics"
	"stratus/internal/database"
	"stratus/internal/storage"
)

// errDuplicateUsername mimics the unique-violation the real driver returns.
var errDuplicateUsername error = &pgconn.PgError{Code: "23505"}

// --- In-memory fakes for the service's dependencies ---

type fakeFileRepo struct {
	files  map[int]*database.File
	perms  *fakePermRepo
	nextID int
}

func newFakeFileRepo(perms *fakePermRepo) *fakeFileRepo {
	return &fakeFileRepo{files: make(map[int]*database.File), perms: perms}
}

func (r *fakeFileRepo) Create(_ context.Context, f *database.File) error {
	r.nextID++
	f.ID = r.nextID
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	c := *f
	r.files[f.ID] = &c
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id int) (*database.File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, database.ErrFileNotFound
	}
	c := *f
	return &c, nil
}

func (r *fakeFileRepo) GetByHash(_ context.Context, hash string) (*database.File, error) {
	for _, f := range r.files {
		if f.FileHash == hash && f.Status == database.StatusAvailable {
			c := *f
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) ListAccessible(_ context.Context, userID int) ([]*database.File, error) {
	var out []*database.File
	for _, f := range r.files {
		if f.UserID == userID || f.IsPublic || r.perms.grants[permKey(f.ID, userID, database.PermissionRead)] {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) SearchByName(_ context.Context, userID int, query string) ([]*database.File, error) {
	var out []*database.File
	for _, f := range r.files {
		if f.UserID == userID && strings.Contains(strings.ToLower(f.FileName), strings.ToLower(query)) {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) SearchByNameOrTag(_ context.Context, userID int, query, tag string) ([]*database.File, error) {
	var out []*database.File
	for _, f := range r.files {
		if f.UserID != userID {
			continue
		}
		match := strings.Contains(strings.ToLower(f.FileName), strings.ToLower(query))
		for _, t := range f.Tags {
			if strings.EqualFold(t, tag) {
				match = true
			}
		}
		if match {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ListByFolder(_ context.Context, folderID int) ([]*database.File, error) {
	var out []*database.File
	for _, f := range r.files {
		if f.FolderID != nil && *f.FolderID == folderID {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ListStale(_ context.Context, maxAge time.Duration) ([]*database.File, error) {
	cutoff := time.Now().Add(-maxAge)
	var out []*database.File
	for _, f := range r.files {
		if (f.Status == database.StatusUploading || f.Status == database.StatusError) && f.UpdatedAt.Before(cutoff) {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) UpdateContent(_ context.Context, f *database.File) error {
	cur, ok := r.files[f.ID]
	if !ok {
		return database.ErrFileNotFound
	}
	cur.FileName = f.FileName
	cur.FileSize = f.FileSize
	cur.FileType = f.FileType
	cur.IsPublic = f.IsPublic
	cur.UpdatedAt = time.Now()
	return nil
}

func (r *fakeFileRepo) SetStatus(_ context.Context, id int, status database.FileStatus) error {
	f, ok := r.files[id]
	if !ok {
		return database.ErrFileNotFound
	}
	f.Status = status
	f.UpdatedAt = time.Now()
	return nil
}

func (r *fakeFileRepo) Touch(_ context.Context, id int) error {
	f, ok := r.files[id]
	if !ok {
		return database.ErrFileNotFound
	}
	f.UpdatedAt = time.Now()
	return nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.files[id]; !ok {
		return database.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepo) SetTags(_ context.Context, fileID int, tags []string) error {
	f, ok := r.files[fileID]
	if !ok {
		return database.ErrFileNotFound
	}
	f.Tags = tags
	return nil
}

type fakePermRepo struct {
	grants map[string]bool
}

func newFakePermRepo() *fakePermRepo {
	return &fakePermRepo{grants: make(map[string]bool)}
}

func permKey(fileID, userID int, typ database.PermissionType) string {
	return fmt.Sprintf("%d:%d:%s", fileID, userID, typ)
}

func (r *fakePermRepo) Has(_ context.Context, fileID, userID int, typ database.PermissionType) (bool, error) {
	return r.grants[permKey(fileID, userID, typ)], nil
}

func (r *fakePermRepo) Grant(_ context.Context, fileID, userID int, typ database.PermissionType) error {
	r.grants[permKey(fileID, userID, typ)] = true
	return nil
}

func (r *fakePermRepo) Revoke(_ context.Context, fileID, userID int, typ database.PermissionType) error {
	delete(r.grants, permKey(fileID, userID, typ))
	return nil
}

type fakeFolderRepo struct {
	folders map[int]*database.Folder
	nextID  int
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[int]*database.Folder)}
}

func (r *fakeFolderRepo) Create(_ context.Context, f *database.Folder) error {
	r.nextID++
	f.ID = r.nextID
	f.CreatedAt = time.Now()
	c := *f
	r.folders[f.ID] = &c
	return nil
}

func (r *fakeFolderRepo) GetByID(_ context.Context, id int) (*database.Folder, error) {
	f, ok := r.folders[id]
	if !ok {
		return nil, database.ErrFolderNotFound
	}
	c := *f
	return &c, nil
}

func (r *fakeFolderRepo) ListByUser(_ context.Context, userID int) ([]*database.Folder, error) {
	var out []*database.Folder
	for _, f := range r.folders {
		if f.UserID == userID {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) ListByParent(_ context.Context, parentID int) ([]*database.Folder, error) {
	var out []*database.Folder
	for _, f := range r.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.folders[id]; !ok {
		return database.ErrFolderNotFound
	}
	delete(r.folders, id)
	return nil
}

type fakeUserRepo struct {
	users  map[int]*database.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*database.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *database.User) error {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return errDuplicateUsername
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.IsActive = true
	u.CreatedAt = time.Now()
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*database.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*database.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) RecordLogin(_ context.Context, id int, at time.Time) error {
	if u, ok := r.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

type fakeObject struct {
	data        []byte
	contentType string
}

// fakeStore is an in-memory versioned object store. Every Put or Copy to a
// key records a new version, newest first in ListVersions, like a versioned
// bucket.
type fakeStore struct {
	objects  map[string]fakeObject
	versions map[string][]storage.Version
	byID     map[string]map[string]fakeObject
	puts     []string
	copies   []string
	deletes  []string

	putErr    error
	copyErr   error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string]fakeObject),
		versions: make(map[string][]storage.Version),
		byID:     make(map[string]map[string]fakeObject),
	}
}

func (s *fakeStore) addVersion(key string, obj fakeObject) {
	id := fmt.Sprintf("v%d", len(s.versions[key])+1)
	s.versions[key] = append([]storage.Version{{
		ID:           id,
		LastModified: time.Now(),
		Size:         int64(len(obj.data)),
	}}, s.versions[key]...)
	if s.byID[key] == nil {
		s.byID[key] = make(map[string]fakeObject)
	}
	s.byID[key][id] = obj
	s.objects[key] = obj
}

func (s *fakeStore) Put(_ context.Context, key string, data io.Reader, _ int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.puts = append(s.puts, key)
	s.addVersion(key, fakeObject{data: b, contentType: contentType})
	return nil
}

func (s *fakeStore) Get(_ context.Context, key, versionID string) (*storage.Object, error) {
	var obj fakeObject
	var ok bool
	if versionID == "" {
		obj, ok = s.objects[key]
	} else {
		obj, ok = s.byID[key][versionID]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		Data:        obj.data,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (s *fakeStore) Copy(_ context.Context, srcKey, dstKey string) error {
	if s.copyErr != nil {
		return s.copyErr
	}
	src, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("no object at %s", srcKey)
	}
	s.copies = append(s.copies, dstKey)
	s.addVersion(dstKey, src)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes = append(s.deletes, key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) ListVersions(_ context.Context, key string) ([]storage.Version, error) {
	return s.versions[key], nil
}

type fakeRecorder struct {
	events []analytics.Event
	err    error
}

func (r *fakeRecorder) Record(_ context.Context, e analytics.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *fakeRecorder) ofType(typ database.EventType) []analytics.Event {
	var out []analytics.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeCache mirrors the real cache's semantics: entries live under explicit
// keys and invalidation drops everything.
type fakeCache struct {
	entries       map[string][]*database.File
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]*database.File)}
}

func (c *fakeCache) GetFiles(_ context.Context, key string) ([]*database.File, error) {
	return c.entries[key], nil
}

func (c *fakeCache) SetFiles(_ context.Context, key string, files []*database.File) error {
	c.entries[key] = files
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context) error {
	c.invalidations++
	clear(c.entries)
	return nil
}

// testEnv bundles a FileService with its fakes.
type testEnv struct {
	svc     *FileService
	files   *fakeFileRepo
	perms   *fakePermRepo
	folders *fakeFolderRepo
	users   *fakeUserRepo
	store   *fakeStore
	events  *fakeRecorder
	cache   *fakeCache
}

func newTestEnv() *testEnv {
	perms := newFakePermRepo()
	env := &testEnv{
		files:   newFakeFileRepo(perms),
		perms:   perms,
		folders: newFakeFolderRepo(),
		users:   newFakeUserRepo(),
		store:   newFakeStore(),
		events:  &fakeRecorder{},
		cache:   newFakeCache(),
	}
	env.svc = NewFileService(env.files, env.perms, env.folders, env.users,
		env.store, env.events, env.cache, 1<<20)
	return env
}

func (e *testEnv) upload(t *testing.T, userID int, name, content string) *database.File {
	t.Helper()
	f, err := e.svc.Upload(context.Background(), userID, UploadInput{
		FileName:    name,
		ContentType: "text/plain",
		Data:        bytes.NewReader([]byte(content)),
	})
	if err != nil {
		t.Fatalf("test upload failed: %v", err)
	}
	return f
}
