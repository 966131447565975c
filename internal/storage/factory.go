package storage

import (
	"fmt"

	"github.com/classafix/caf-copilot/internal/infra"
)

// New builds the store selected by STORAGE_DRIVER. staticDir is non-empty
// when uploads are kept on local disk and must be served by the API.
func New(cfg *infra.Config) (store Store, staticDir string, err error) {
	switch cfg.StorageDriver {
	case "s3":
		s, err := NewS3Store(S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case "", "filesystem":
		fs, err := NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		return fs, fs.BasePath(), nil
	}
	return nil, "", fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
}
