package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	colerrors "github.com/colport/colport/internal/errors"
)

// LocalStore implements ArtifactStore on the local filesystem. It is used
// for development and tests, and for exports published to a shared mount.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a local filesystem artifact store rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to create store directory %s", basePath), err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Put copies a local artifact into the store.
func (l *LocalStore) Put(ctx context.Context, localPath, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := l.fullPath(objectPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to create parent for %s", objectPath), err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to open %s", localPath), err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to create %s", objectPath), err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to copy %s", objectPath), err)
	}
	return dst.Close()
}

// Fetch copies an artifact from the store to a local path.
func (l *LocalStore) Fetch(ctx context.Context, objectPath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath := l.fullPath(objectPath)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return colerrors.NewStorageError(colerrors.CodeObjectNotFound,
			fmt.Sprintf("artifact %s not found", objectPath), nil)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to create parent for %s", localPath), err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to open %s", objectPath), err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to create %s", localPath), err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to copy %s", objectPath), err)
	}
	return dst.Close()
}

// Exists reports whether an artifact exists in the store.
func (l *LocalStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(l.fullPath(objectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes an artifact from the store. Idempotent.
func (l *LocalStore) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(l.fullPath(objectPath)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return colerrors.NewStorageError(colerrors.CodeDeleteFailed,
			fmt.Sprintf("failed to delete %s", objectPath), err)
	}
	return nil
}

// List returns all artifact paths under the given prefix.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	searchDir := l.fullPath(prefix)
	var objects []string

	err := filepath.Walk(searchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // prefix doesn't exist, return empty list
			}
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(l.basePath, path)
			if err != nil {
				return err
			}
			objects = append(objects, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return objects, nil
}

func (l *LocalStore) fullPath(objectPath string) string {
	return filepath.Join(l.basePath, objectPath)
}
