// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package blobstore signs read URLs for recordings kept in S3-compatible
// object storage.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tuto/meetd/internal/domain/recording/ports"
)

// PlaylistExpiry is how long presigned playlist URLs stay valid.
const PlaylistExpiry = 24 * time.Hour

// Config describes the bucket recordings are written to.
type Config struct {
	// Endpoint may carry a scheme; a bare host is treated as https.
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	Secret    string
}

// Store presigns objects in one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

var _ ports.BlobSigner = (*Store)(nil)

// New builds a Store. No request is made to the endpoint.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blobstore: bucket is required")
	}
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.Secret, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func splitEndpoint(endpoint string) (host string, secure bool, err error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("blobstore: endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("blobstore: endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		secure = true
	case "http":
	default:
		return "", false, fmt.Errorf("blobstore: unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("blobstore: endpoint %q has no host", endpoint)
	}
	return u.Host, secure, nil
}

// PresignGet returns a time-limited GET URL for key.
func (s *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("blobstore: presign %s: %w", key, err)
	}
	return u.String(), nil
}

// PlaylistKey is the object key of a recording's HLS playlist.
func PlaylistKey(storageKey, room string) string {
	return path.Join(storageKey, room+".m3u8")
}
