package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/adbuilder/internal/blobstore"
)

var ErrNotFound = errors.New("object not found")

// LocalStore keeps objects on disk under basePath/bucket and serves them
// below publicBase.
type LocalStore struct {
	basePath   string
	bucket     string
	publicBase string
}

func NewLocalStore(basePath, bucket, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, bucket), 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{
		basePath:   basePath,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload writes r to bucket/objectPath. Existing objects are never
// overwritten.
func (s *LocalStore) Upload(ctx context.Context, objectPath, mimeType string, r io.Reader) (blobstore.Ref, error) {
	key := s.bucket + "/" + strings.TrimLeft(objectPath, "/")
	filePath, err := s.safeJoin(key)
	if err != nil {
		return blobstore.Ref{}, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return blobstore.Ref{}, fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return blobstore.Ref{}, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return blobstore.Ref{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return blobstore.Ref{}, fmt.Errorf("failed to close file: %w", err)
	}

	ref := blobstore.Ref{Key: key}
	ref.URL = s.PublicURL(ref)
	return ref, nil
}

func (s *LocalStore) PublicURL(ref blobstore.Ref) string {
	return s.publicBase + "/" + ref.Key
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, blobstore.MimeType(filePath), nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *LocalStore) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
