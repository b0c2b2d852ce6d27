package blobstore

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
)

// Ref identifies a stored object. URL is filled in by backends that learn the
// public address at upload time.
type Ref struct {
	Key string
	URL string
}

// Store persists uploaded media under a bucket-relative path and exposes a
// public URL for it.
type Store interface {
	Upload(ctx context.Context, objectPath, mimeType string, r io.Reader) (Ref, error)
	PublicURL(ref Ref) string
	Delete(ctx context.Context, key string) error
}

// Reader is implemented by backends that can serve their own objects.
type Reader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Extension picks a file extension for an upload from its sniffed MIME type.
// The original filename only counts when the type is not one MimeType knows.
func Extension(filename, mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	}
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && len(ext) <= 6 && MimeType(ext) == "application/octet-stream" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// MimeType is the inverse of Extension for the formats accepted as ad media.
func MimeType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
