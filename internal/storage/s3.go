package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectStore is the slice of the bucket API the handlers use.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// S3Store stores objects in an S3-compatible bucket and builds public URLs
// from a configured base.
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewS3Store(client *s3.Client, bucket, publicBase string) *S3Store {
	if publicBase != "" && !strings.HasSuffix(publicBase, "/") {
		publicBase += "/"
	}
	return &S3Store{client: client, bucket: bucket, publicBase: publicBase}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) PublicURL(key string) string {
	return CleanURL(s.publicBase + key)
}

// ObjectKey builds a storage key namespaced by owner with a timestamp and
// random suffix, so writes never need a collision check.
func ObjectKey(userID, fileName string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%d-%s%s", userID, time.Now().UnixMilli(), suffix, ext)
}

// CleanURL percent-escapes characters that break naive URL concatenation.
func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsedURL.String()
}
