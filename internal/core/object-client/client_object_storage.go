package objectclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// S3API is the part of *s3.Client the object client calls.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Client struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	log      *zap.Logger
}

// NewS3Client builds an object client for bucket from a loaded AWS config.
func NewS3Client(awsCfg aws.Config, bucket string, log *zap.Logger) (*S3Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}
	return NewS3ClientWithAPI(s3.NewFromConfig(awsCfg), bucket, log), nil
}

// NewS3ClientWithAPI wraps an existing S3 API implementation.
func NewS3ClientWithAPI(api S3API, bucket string, log *zap.Logger) *S3Client {
	log.Debug("S3 client initialized", zap.String("bucket", bucket))
	return &S3Client{
		client:   api,
		uploader: manager.NewUploader(api),
		bucket:   bucket,
		log:      log,
	}
}

// Exists reports whether key is present in the bucket.
func (c *S3Client) Exists(ctx context.Context, key string) (bool, error) {
	ctxHead, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.HeadObject(ctxHead, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			c.log.Debug("object not found", zap.String("key", key))
			return false, nil
		}
		c.log.Error("s3 head failed", zap.String("key", key), zap.Error(err))
		return false, errs.Upstream("s3 head", key, err)
	}
	return true, nil
}

// ReadJSON decodes the object at key into v and returns its user metadata.
func (c *S3Client) ReadJSON(ctx context.Context, key string, v any) (map[string]string, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			c.log.Debug("object not found", zap.String("key", key))
			return nil, fmt.Errorf("s3 get %s: %w", key, errs.ErrNotFound)
		}
		c.log.Error("s3 get failed", zap.String("key", key), zap.Error(err))
		return nil, errs.Upstream("s3 get", key, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.log.Error("decode object failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	meta := resp.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return meta, nil
}

// WriteJSON replaces the object at key with the JSON encoding of v.
func (c *S3Client) WriteJSON(ctx context.Context, key string, v any, metadata map[string]string) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if _, err := c.uploader.Upload(ctxUpload, input); err != nil {
		c.log.Error("s3 upload failed", zap.String("key", key), zap.Error(err))
		return errs.Upstream("s3 upload", key, err)
	}
	c.log.Debug("object written", zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}

func (c *S3Client) DeleteFile(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("s3 delete %s: %w", key, errs.ErrNotFound)
		}
		c.log.Error("s3 delete failed", zap.String("key", key), zap.Error(err))
		return errs.Upstream("s3 delete", key, err)
	}
	return nil
}

// ListKeys returns every key under prefix, excluding the prefix itself.
func (c *S3Client) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	keys := make([]string, 0)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			c.log.Error("s3 list failed", zap.String("prefix", prefix), zap.Error(err))
			return nil, errs.Upstream("s3 list", prefix, err)
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); k != prefix {
				keys = append(keys, k)
			}
		}
	}
	c.log.Debug("objects listed", zap.String("prefix", prefix), zap.Int("count", len(keys)))
	return keys, nil
}

func isS3NotFound(err error) bool {
	var (
		nf    *types.NotFound
		nsk   *types.NoSuchKey
		apiEr smithy.APIError
	)
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	if errors.As(err, &apiEr) {
		switch apiEr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

var _ core.ObjectClient = (*S3Client)(nil)
