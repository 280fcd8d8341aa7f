package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

const blobExt = ".blob"

// FileStore implements repository.BlobStore on a directory.
// Each entry is one file; its modification time records the insertion time.
type FileStore struct {
	fs  afero.Afero
	dir string
}

var _ repository.BlobStore = (*FileStore)(nil)

// NewFileStore creates a blob store rooted at dir on the OS filesystem.
func NewFileStore(dir string) (*FileStore, error) {
	return newFileStoreWithFs(afero.NewOsFs(), dir)
}

// newFileStoreWithFs creates a FileStore on the given filesystem.
// This is used for dependency injection in tests.
func newFileStoreWithFs(fs afero.Fs, dir string) (*FileStore, error) {
	store := &FileStore{fs: afero.Afero{Fs: fs}, dir: dir}
	if err := store.fs.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return store, nil
}

// Keys may contain path separators, so file names carry them encoded.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+blobExt)
}

func keyFromName(name string) (string, bool) {
	encoded, ok := strings.CutSuffix(name, blobExt)
	if !ok {
		return "", false
	}
	key, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(key), true
}

// Get reads the file for key.
func (s *FileStore) Get(_ context.Context, key string) (*model.CacheEntry, error) {
	path := s.path(key)

	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat blob: %w", err)
	}

	payload, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	return &model.CacheEntry{
		Key:        key,
		Payload:    payload,
		Size:       int64(len(payload)),
		InsertedAt: info.ModTime(),
	}, nil
}

// Stat reads the file metadata for key.
func (s *FileStore) Stat(_ context.Context, key string) (model.CacheEntryInfo, error) {
	info, err := s.fs.Stat(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.CacheEntryInfo{}, repository.ErrBlobNotFound
		}
		return model.CacheEntryInfo{}, fmt.Errorf("failed to stat blob: %w", err)
	}
	return model.CacheEntryInfo{
		Key:        key,
		Size:       info.Size(),
		InsertedAt: info.ModTime(),
	}, nil
}

// Put writes the entry to a temporary file and renames it into place.
func (s *FileStore) Put(_ context.Context, entry *model.CacheEntry) error {
	path := s.path(entry.Key)
	tmp := path + ".tmp"

	if err := s.fs.WriteFile(tmp, entry.Payload, 0o644); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := s.fs.Chtimes(tmp, entry.InsertedAt, entry.InsertedAt); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to stamp blob: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to commit blob: %w", err)
	}
	return nil
}

// Delete removes the file for key.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// List reads the directory; files that are not blobs are skipped.
func (s *FileStore) List(_ context.Context) ([]model.CacheEntryInfo, error) {
	files, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	infos := make([]model.CacheEntryInfo, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		key, ok := keyFromName(f.Name())
		if !ok {
			continue
		}
		infos = append(infos, model.CacheEntryInfo{
			Key:        key,
			Size:       f.Size(),
			InsertedAt: f.ModTime(),
		})
	}
	return infos, nil
}
