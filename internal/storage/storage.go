// Package storage persists uploaded images on local disk, S3 or Azure Blob Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/leafscan/backend/config"
)

// Store saves uploads and reads them back by the reference Save returned.
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ObjectName returns a fresh "<uuid><ext>" name for an upload. The extension
// is taken from the client's file name, lower-cased, and dropped when it is
// not a known image extension.
func ObjectName(original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if !allowedExtensions[ext] {
		ext = ""
	}
	return uuid.NewString() + ext
}

// New builds the Store selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocalStore(cfg.UploadFolder)
	case "s3":
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Store(s3cfg.Client, s3cfg.BucketName, "uploads"), nil
	case "azure":
		azcfg, err := config.NewAzureConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewAzureStore(azcfg.Client, azcfg.Container), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// splitRef parses "<scheme>://<bucket>/<key>".
func splitRef(ref, scheme string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("reference %q is not a %s reference", ref, scheme)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed %s reference %q", scheme, ref)
	}
	return bucket, key, nil
}
