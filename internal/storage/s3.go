package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// S3Store writes uploads to an S3-compatible bucket. Objects must be publicly
// readable under PublicBaseURL (or the endpoint/bucket path when unset).
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	publicURL  string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		publicURL:  publicBaseURL(cfg, endpoint, bucket),
	}, nil
}

func publicBaseURL(cfg S3Config, endpoint, bucket string) string {
	if base := strings.TrimSpace(cfg.PublicBaseURL); base != "" {
		return base
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(endpoint, "/") + "/" + bucket
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Store) Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (Object, error) {
	if s == nil {
		return Object{}, fmt.Errorf("store is nil")
	}
	if size == 0 {
		return Object{}, ErrEmptyObject
	}
	key, err := objectName(filename)
	if err != nil {
		return Object{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Object{}, fmt.Errorf("ensure bucket: %w", err)
	}
	ct := detectContentType(filename, contentType)
	info, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: ct,
	})
	if err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}
	if info.Size == 0 {
		return Object{}, errors.Join(ErrEmptyObject, s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}))
	}
	return Object{
		URL:         joinURL(s.publicURL, key),
		ContentType: ct,
		Pathname:    key,
	}, nil
}
