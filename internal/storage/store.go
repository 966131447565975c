// Package storage keeps uploaded case evidence and hands back a public URL the
// vision model can fetch.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrEmptyObject = errors.New("storage: empty object")

// Object describes a stored upload.
type Object struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Pathname    string `json:"pathname"`
}

// Store persists a binary stream under a name derived from filename.
type Store interface {
	Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (Object, error)
}

// objectName keeps the extension of filename and adds a random suffix so two
// uploads of "photo.jpg" never overwrite each other.
func objectName(filename string) (string, error) {
	clean, err := sanitizeKey(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if err != nil {
		return "", err
	}
	ext := path.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	if stem == "" {
		stem = "upload"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "uploads/" + stem + "-" + suffix + strings.ToLower(ext), nil
}

func detectContentType(filename, contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); byExt != "" {
		return byExt
	}
	if contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
