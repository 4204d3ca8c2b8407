package objectclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/errs"
)

type fakeObject struct {
	body        []byte
	contentType string
	meta        map[string]string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	failAll error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string]fakeObject{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, contentType: aws.ToString(in.ContentType), meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(obj.body)),
		Metadata: obj.meta,
	}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestS3Client_WriteReadRoundTrip(t *testing.T) {
	fake := newFakeS3()
	c := NewS3ClientWithAPI(fake, "bucket", zap.NewNop())
	ctx := context.Background()

	ok, err := c.Exists(ctx, "chat-history/alice.json")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.WriteJSON(ctx, "chat-history/alice.json", doc{Name: "alice", Count: 2}, map[string]string{"owner": "alice"}))

	ok, err = c.Exists(ctx, "chat-history/alice.json")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "application/json", fake.objects["chat-history/alice.json"].contentType)

	var got doc
	meta, err := c.ReadJSON(ctx, "chat-history/alice.json", &got)
	require.NoError(t, err)
	require.Equal(t, doc{Name: "alice", Count: 2}, got)
	require.Equal(t, "alice", meta["owner"])
}

func TestS3Client_ReadMissingIsNotFound(t *testing.T) {
	c := NewS3ClientWithAPI(newFakeS3(), "bucket", zap.NewNop())

	var got doc
	_, err := c.ReadJSON(context.Background(), "missing.json", &got)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NotErrorIs(t, err, errs.ErrUpstream)
}

func TestS3Client_UpstreamErrors(t *testing.T) {
	fake := newFakeS3()
	fake.failAll = errors.New("access denied")
	c := NewS3ClientWithAPI(fake, "bucket", zap.NewNop())
	ctx := context.Background()

	_, err := c.Exists(ctx, "k")
	require.ErrorIs(t, err, errs.ErrUpstream)

	_, err = c.ReadJSON(ctx, "k", &doc{})
	require.ErrorIs(t, err, errs.ErrUpstream)

	_, err = c.ListKeys(ctx, "chat-history/")
	require.ErrorIs(t, err, errs.ErrUpstream)

	require.ErrorIs(t, c.DeleteFile(ctx, "k"), errs.ErrUpstream)
}

func TestS3Client_ListKeysSkipsPrefix(t *testing.T) {
	fake := newFakeS3()
	c := NewS3ClientWithAPI(fake, "bucket", zap.NewNop())
	ctx := context.Background()

	for _, k := range []string{"chat-history/", "chat-history/a.json", "chat-history/b.json", "other/c.json"} {
		require.NoError(t, c.WriteJSON(ctx, k, doc{}, nil))
	}

	keys, err := c.ListKeys(ctx, "chat-history/")
	require.NoError(t, err)
	require.Equal(t, []string{"chat-history/a.json", "chat-history/b.json"}, keys)

	require.NoError(t, c.DeleteFile(ctx, "chat-history/a.json"))
	keys, err = c.ListKeys(ctx, "chat-history/")
	require.NoError(t, err)
	require.Equal(t, []string{"chat-history/b.json"}, keys)
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(aws.Config{}, "", zap.NewNop())
	require.Error(t, err)
}
