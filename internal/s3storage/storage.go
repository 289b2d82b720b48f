// Package s3storage keeps candidate resumes in a MinIO/S3 bucket. Browsers
// upload straight to the bucket through presigned PUT URLs; admins download
// through presigned GET URLs.
package s3storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/TalentDesk/internal/config"
)

const resumePrefix = "resumes/"

// Storage wraps MinIO interactions for the resume bucket.
type Storage struct {
	client   *minio.Client
	bucket   string
	region   string
	endpoint string
	secure   bool
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:   client,
		bucket:   cfg.ResumeBucket,
		region:   cfg.S3Region,
		endpoint: cfg.S3Endpoint,
		secure:   cfg.S3UseSSL,
	}, nil
}

// EnsureBucket makes sure the resume bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload is a presigned upload target handed to the candidate's browser.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	ResumeURL string    `json:"resumeUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PresignResumeUpload reserves a fresh object key and returns a PUT URL for
// it. ResumeURL is the value the candidate submits as resumeUrl.
func (s *Storage) PresignResumeUpload(ctx context.Context, fileName string, ttl time.Duration) (*Upload, error) {
	key := ObjectKey(uuid.NewString(), fileName)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, ttl)
	if err != nil {
		return nil, fmt.Errorf("presign resume upload: %w", err)
	}
	return &Upload{
		UploadURL: u.String(),
		ResumeURL: s.objectURL(key),
		ObjectKey: key,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}

// PresignResumeDownload returns a short-lived GET URL for a stored resume.
func (s *Storage) PresignResumeDownload(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(objectKey)))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign resume download: %w", err)
	}
	return u.String(), nil
}

// DownloadResume fetches the resume bytes, refusing objects over maxBytes.
func (s *Storage) DownloadResume(ctx context.Context, objectKey string, maxBytes int64) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get resume object: %w", err)
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat resume object: %w", err)
	}
	if maxBytes > 0 && info.Size > maxBytes {
		return nil, "", fmt.Errorf("resume %s is %d bytes, limit %d", objectKey, info.Size, maxBytes)
	}
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read resume object: %w", err)
	}
	return buf, info.ContentType, nil
}

// KeyFromURL extracts the object key from a resume URL previously produced by
// PresignResumeUpload. It reports false for URLs pointing anywhere else.
func (s *Storage) KeyFromURL(raw string) (string, bool) {
	return KeyFromURL(s.bucket, raw)
}

func (s *Storage) objectURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// ObjectKey builds the key for a resume upload. The file name is reduced to a
// safe base name.
func ObjectKey(id, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == "/" || name == "_" {
		name = "resume"
	}
	return resumePrefix + id + "/" + name
}

// KeyFromURL extracts the object key of a path-style bucket URL.
func KeyFromURL(bucket, raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	prefix := "/" + bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	if !strings.HasPrefix(key, resumePrefix) || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
