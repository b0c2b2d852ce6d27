package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/vbonduro/adbuilder/internal/blobstore"
)

// uploadAPI is the part of the cloudinary upload client this store uses.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore uploads ad media into a cloudinary folder named after the
// bucket.
type CloudinaryStore struct {
	upload uploadAPI
	bucket string
}

func NewCloudinaryStore(cloudinaryURL, bucket string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &CloudinaryStore{upload: &cld.Upload, bucket: bucket}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, objectPath, mimeType string, r io.Reader) (blobstore.Ref, error) {
	resp, err := s.upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.bucket,
		PublicID:     publicID(objectPath),
		Overwrite:    api.Bool(false),
		ResourceType: resourceType(mimeType),
	})
	if err != nil {
		return blobstore.Ref{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return blobstore.Ref{}, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return blobstore.Ref{}, errors.New("cloudinary upload: empty secure url")
	}
	return blobstore.Ref{Key: objectKey(resourceType(mimeType), resp.PublicID), URL: resp.SecureURL}, nil
}

func (s *CloudinaryStore) PublicURL(ref blobstore.Ref) string {
	return ref.URL
}

// Delete destroys the object named by a key returned from Upload. Anything
// but an "ok" result is an error, including "not found".
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	kind, id := splitKey(key)
	resp, err := s.upload.Destroy(ctx, uploader.DestroyParams{PublicID: id, ResourceType: kind})
	if err != nil {
		return fmt.Errorf("failed to delete media from cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("failed to delete media from cloudinary: %s", resp.Error.Message)
	}
	if resp.Result != "ok" {
		return fmt.Errorf("failed to delete media %s from cloudinary: result %q", id, resp.Result)
	}
	return nil
}

// objectKey prefixes the public id with its resource type, the way cloudinary
// delivery URLs do, so Delete can target the right resource.
func objectKey(kind, publicID string) string {
	return kind + "/" + publicID
}

func splitKey(key string) (kind, publicID string) {
	if k, id, ok := strings.Cut(key, "/"); ok && (k == "image" || k == "video") {
		return k, id
	}
	return "image", key
}

// publicID strips the extension; cloudinary appends its own.
func publicID(objectPath string) string {
	p := strings.TrimLeft(objectPath, "/")
	return strings.TrimSuffix(p, path.Ext(p))
}

func resourceType(mimeType string) string {
	if strings.HasPrefix(mimeType, "video/") {
		return "video"
	}
	return "image"
}
