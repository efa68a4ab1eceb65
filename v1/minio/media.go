package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
)

// MediaStore persists generated media (images, audio) and hands out links
// to it.
type MediaStore struct {
	client *MinioClient
}

func NewMediaStore(client *MinioClient) *MediaStore {
	return &MediaStore{client: client}
}

// Save stores data under key with the given MIME type and returns a
// presigned GET URL valid for the configured expiry. An empty mimeType is
// stored as application/octet-stream.
func (s *MediaStore) Save(ctx context.Context, key string, data []byte, mimeType string) (uri string, err error) {
	done := s.client.track("save", key)
	defer func() { done(err, int64(len(data)), map[string]interface{}{"content_type": mimeType}) }()

	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidObjectName)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	bucket := s.client.cfg.Connection.BucketName
	_, err = s.client.Client().PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return "", fmt.Errorf("[MinIO] storing %s: %w", key, TranslateError(err))
	}
	return s.URL(ctx, key)
}

// URL returns a presigned GET URL for an existing object.
func (s *MediaStore) URL(ctx context.Context, key string) (string, error) {
	cfg := s.client.cfg
	u, err := s.client.Client().PresignedGetObject(ctx, cfg.Connection.BucketName, key, cfg.PresignedConfig.ExpiryDuration, nil)
	if err != nil {
		return "", fmt.Errorf("[MinIO] presigning %s: %w", key, TranslateError(err))
	}
	if cfg.PresignedConfig.BaseURL != "" {
		return urlGenerator(u, cfg.PresignedConfig.BaseURL)
	}
	return u.String(), nil
}

// Load returns the object's bytes and content type.
func (s *MediaStore) Load(ctx context.Context, key string) (data []byte, mimeType string, err error) {
	done := s.client.track("load", key)
	defer func() { done(err, int64(len(data)), nil) }()

	obj, err := s.client.Client().GetObject(ctx, s.client.cfg.Connection.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", TranslateError(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", TranslateError(err)
	}
	data, err = io.ReadAll(obj)
	if err != nil {
		return nil, "", TranslateError(err)
	}
	return data, info.ContentType, nil
}

func (s *MediaStore) Delete(ctx context.Context, key string) (err error) {
	done := s.client.track("delete", key)
	defer func() { done(err, 0, nil) }()
	err = s.client.Client().RemoveObject(ctx, s.client.cfg.Connection.BucketName, key, minio.RemoveObjectOptions{})
	return TranslateError(err)
}

// urlGenerator replaces the scheme and host of a presigned URL with the
// ones of baseURL, keeping a base path as prefix.
func urlGenerator(presigned *url.URL, baseURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: invalid BaseURL %q", ErrInvalidConfig, baseURL)
	}
	final := *presigned
	final.Scheme = base.Scheme
	final.Host = base.Host
	if p := strings.TrimRight(base.Path, "/"); p != "" {
		final.Path = p + "/" + strings.TrimLeft(presigned.Path, "/")
		final.RawPath = ""
	}
	return final.String(), nil
}
