// Package media uploads feedback images to S3-compatible object storage.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/five82/washbook/internal/config"
)

// ErrUploadsDisabled is returned when no bucket is configured.
var ErrUploadsDisabled = errors.New("image uploads are disabled")

// MaxImageSize bounds a single upload.
const MaxImageSize = 10 << 20

const keyPrefix = "feedback/"

// ImageUploader stores an image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// NopUploader refuses every upload.
type NopUploader struct{}

func (NopUploader) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", ErrUploadsDisabled
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts images into a bucket under feedback/<uuid><ext>.
type S3Uploader struct {
	client        objectPutter
	bucket        string
	publicBaseURL string
	newID         func() string
}

// New returns an S3Uploader for cfg, or NopUploader when no bucket is set.
func New(cfg config.Media) ImageUploader {
	if !cfg.Enabled() {
		return NopUploader{}
	}
	return NewS3Uploader(cfg)
}

// NewS3Uploader builds a client from cfg. Static keys from cfg win; the
// standard AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY variables are used
// otherwise. A custom endpoint switches to path-style addressing so MinIO
// and similar stores work.
func NewS3Uploader(cfg config.Media) *S3Uploader {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(credentials(cfg)),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return &S3Uploader{
		client:        s3.New(opts),
		bucket:        cfg.Bucket,
		publicBaseURL: publicBaseURL(cfg, region),
		newID:         uuid.NewString,
	}
}

func credentials(cfg config.Media) aws.CredentialsProviderFunc {
	return func(context.Context) (aws.Credentials, error) {
		id, secret := cfg.AccessKeyID, cfg.SecretAccessKey
		if id == "" || secret == "" {
			id, secret = os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("no s3 credentials configured")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "washbook",
		}, nil
	}
}

func publicBaseURL(cfg config.Media, region string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// Upload buffers r and puts it into the bucket. The body is buffered so the
// request stays seekable for signing and retries.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if size > MaxImageSize {
		return "", fmt.Errorf("upload %s: %d bytes exceeds limit of %d", name, size, MaxImageSize)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if n > MaxImageSize {
		return "", fmt.Errorf("upload %s: exceeds limit of %d bytes", name, MaxImageSize)
	}
	if contentType == "" {
		contentType = ContentType(name)
	}

	key := keyPrefix + u.newID() + strings.ToLower(filepath.Ext(name))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filepath.Base(name),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return u.publicBaseURL + "/" + key, nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// UploadFile uploads the file at path.
func UploadFile(ctx context.Context, u ImageUploader, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("open image: %s is a directory", path)
	}
	return u.Upload(ctx, filepath.Base(path), f, info.Size(), ContentType(path))
}
