package cloudflare

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"apexmind_backend/pkg/config"
)

// ObjectStore is the part of the S3 API used against R2.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Uploader struct {
	store   ObjectStore
	bucket  string
	cdnBase string
}

func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		o.UsePathStyle = true
	})
	return client, nil
}

// NewUploader connects to the R2 bucket named in cfg.
func NewUploader(ctx context.Context, cfg config.StorageConfig) (*Uploader, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("R2 storage is not configured")
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewUploaderWithStore(client, cfg.Bucket, cfg.CDNBase), nil
}

func NewUploaderWithStore(store ObjectStore, bucket, cdnBase string) *Uploader {
	return &Uploader{
		store:   store,
		bucket:  bucket,
		cdnBase: strings.TrimRight(cdnBase, "/"),
	}
}

// UploadAvatar stores a processed avatar under avatars/<slug>/ and returns
// its public CDN URL.
func (u *Uploader) UploadAvatar(ctx context.Context, owner string, body io.Reader, contentType, ext string) (string, error) {
	objectKey := path.Join("avatars", slug.Make(owner), uuid.NewString()+ext)

	_, err := u.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload file to R2: %w", err)
	}

	return u.cdnBase + "/" + objectKey, nil
}

// DeleteByURL removes an object previously returned by UploadAvatar. URLs
// outside the CDN base are ignored.
func (u *Uploader) DeleteByURL(ctx context.Context, fullURL string) error {
	objectKey, ok := u.objectKey(fullURL)
	if !ok {
		return nil
	}

	_, err := u.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("could not delete file from R2: %w", err)
	}
	return nil
}

func (u *Uploader) objectKey(fullURL string) (string, bool) {
	prefix := u.cdnBase + "/"
	if fullURL == "" || !strings.HasPrefix(fullURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(fullURL, prefix), true
}
