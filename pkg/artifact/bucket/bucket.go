// Package bucket stores artifacts in an S3-compatible bucket through the
// MinIO client. Figures are stored under images/<id>.png and datasets under
// files/<id>.csv.
package bucket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/debug"
)

// Config holds the bucket connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Name      string
}

// Validate checks the required fields.
func (c Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("bucket endpoint is required"))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("bucket name is required"))
	}
	return errors.Join(errs...)
}

// Store is a MinIO-backed artifact store.
type Store struct {
	client *minio.Client
	bucket string
}

var _ artifact.Store = (*Store)(nil)

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	s := &Store{client: client, bucket: cfg.Name}
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, fmt.Errorf("ensure artifact bucket: %w", err)
	}
	return s, nil
}

// NewWithClient wraps an existing client. The bucket must already exist.
func NewWithClient(client *minio.Client, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("minio client is required")
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Put uploads the artifact with its content type.
func (s *Store) Put(ctx context.Context, kind api.ArtifactKind, id string, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: kind.ContentType()}
	info, err := s.client.PutObject(ctx, s.bucket, ObjectKey(kind, id), bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return err
	}
	debug.Log(debug.Artifact, "artifact uploaded", "bucket", s.bucket, "key", info.Key, "etag", info.ETag)
	return nil
}

// Get downloads the artifact. Missing objects map to artifact.ErrNotFound.
func (s *Store) Get(ctx context.Context, kind api.ArtifactKind, id string) ([]byte, error) {
	if !api.ValidateArtifactID(id) {
		return nil, artifact.ErrNotFound
	}
	key := ObjectKey(kind, id)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, mapError(err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err)
	}
	return data, nil
}

// HealthCheck verifies the bucket is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("artifact bucket missing: %s", s.bucket)
	}
	return nil
}

// ObjectKey returns the bucket key for an artifact.
func ObjectKey(kind api.ArtifactKind, id string) string {
	prefix := "files/"
	if kind == api.ArtifactImage {
		prefix = "images/"
	}
	return prefix + artifact.FileName(kind, id)
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
}

func mapError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return artifact.ErrNotFound
	}
	return err
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
