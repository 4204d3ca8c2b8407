package objectclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// GCSClient implements core.ObjectClient on Google Cloud Storage.
type GCSClient struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	log    *zap.Logger
}

func NewGCSClient(ctx context.Context, bucket string, log *zap.Logger, opts ...option.ClientOption) (*GCSClient, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket name not set")
	}
	cl, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	log.Debug("GCS client initialized", zap.String("bucket", bucket))
	return &GCSClient{client: cl, bucket: cl.Bucket(bucket), name: bucket, log: log}, nil
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}

func (c *GCSClient) Exists(ctx context.Context, key string) (bool, error) {
	ctxAttrs, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.bucket.Object(key).Attrs(ctxAttrs)
	if errors.Is(err, storage.ErrObjectNotExist) {
		c.log.Debug("object not found", zap.String("key", key))
		return false, nil
	}
	if err != nil {
		c.log.Error("gcs attrs failed", zap.String("key", key), zap.Error(err))
		return false, errs.Upstream("gcs attrs", key, err)
	}
	return true, nil
}

func (c *GCSClient) ReadJSON(ctx context.Context, key string, v any) (map[string]string, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	obj := c.bucket.Object(key)
	r, err := obj.NewReader(ctxGet)
	if errors.Is(err, storage.ErrObjectNotExist) {
		c.log.Debug("object not found", zap.String("key", key))
		return nil, fmt.Errorf("gcs get %s: %w", key, errs.ErrNotFound)
	}
	if err != nil {
		c.log.Error("gcs get failed", zap.String("key", key), zap.Error(err))
		return nil, errs.Upstream("gcs get", key, err)
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(v); err != nil {
		c.log.Error("decode object failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	attrs, err := obj.Attrs(ctxGet)
	if err != nil || attrs.Metadata == nil {
		return map[string]string{}, nil
	}
	return attrs.Metadata, nil
}

func (c *GCSClient) WriteJSON(ctx context.Context, key string, v any, metadata map[string]string) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	ctxPut, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.bucket.Object(key).NewWriter(ctxPut)
	w.ContentType = "application/json"
	if len(metadata) > 0 {
		w.Metadata = metadata
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		c.log.Error("gcs write failed", zap.String("key", key), zap.Error(err))
		return errs.Upstream("gcs write", key, err)
	}
	if err := w.Close(); err != nil {
		c.log.Error("gcs write failed", zap.String("key", key), zap.Error(err))
		return errs.Upstream("gcs write", key, err)
	}
	c.log.Debug("object written", zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}

func (c *GCSClient) DeleteFile(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := c.bucket.Object(key).Delete(ctxDel)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, errs.ErrNotFound)
	}
	if err != nil {
		c.log.Error("gcs delete failed", zap.String("key", key), zap.Error(err))
		return errs.Upstream("gcs delete", key, err)
	}
	return nil
}

func (c *GCSClient) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	it := c.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	keys := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			c.log.Error("gcs list failed", zap.String("prefix", prefix), zap.Error(err))
			return nil, errs.Upstream("gcs list", prefix, err)
		}
		if attrs.Name != prefix {
			keys = append(keys, attrs.Name)
		}
	}
	c.log.Debug("objects listed", zap.String("prefix", prefix), zap.Int("count", len(keys)))
	return keys, nil
}

var _ core.ObjectClient = (*GCSClient)(nil)
