package secrets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/markdave123-py/genai-chat/internal/errs"
)

type fakeSSM struct {
	params map[string]string
	err    error
	last   *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("missing")}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(v)}}, nil
}

func TestParameterStore_Get(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{"/genai/sender": "bot@example.com"}}
	s := NewParameterStoreWithAPI(fake, zap.NewNop())

	v, err := s.Get(context.Background(), "/genai/sender")
	require.NoError(t, err)
	require.Equal(t, "bot@example.com", v)
	require.True(t, aws.ToBool(fake.last.WithDecryption))
}

func TestParameterStore_Missing(t *testing.T) {
	s := NewParameterStoreWithAPI(&fakeSSM{params: map[string]string{}}, zap.NewNop())

	_, err := s.Get(context.Background(), "/genai/bucket")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestParameterStore_Upstream(t *testing.T) {
	s := NewParameterStoreWithAPI(&fakeSSM{err: errors.New("throttled")}, zap.NewNop())

	_, err := s.Get(context.Background(), "/genai/bucket")
	require.ErrorIs(t, err, errs.ErrUpstream)
	require.ErrorContains(t, err, "throttled")
}

func TestSecretManagerStore_Get(t *testing.T) {
	var asked string
	s := NewSecretManagerStoreWithAccess("proj-1", func(_ context.Context, name string) ([]byte, error) {
		asked = name
		return []byte("key-123"), nil
	}, zap.NewNop())

	v, err := s.Get(context.Background(), "genai_brevo")
	require.NoError(t, err)
	require.Equal(t, "key-123", v)
	require.Equal(t, "projects/proj-1/secrets/genai_brevo/versions/latest", asked)
}

func TestSecretManagerStore_Errors(t *testing.T) {
	notFound := NewSecretManagerStoreWithAccess("p", func(context.Context, string) ([]byte, error) {
		return nil, status.Error(codes.NotFound, "no such secret")
	}, zap.NewNop())
	_, err := notFound.Get(context.Background(), "genai_bucket")
	require.ErrorIs(t, err, errs.ErrNotFound)

	denied := NewSecretManagerStoreWithAccess("p", func(context.Context, string) ([]byte, error) {
		return nil, status.Error(codes.PermissionDenied, "denied")
	}, zap.NewNop())
	_, err = denied.Get(context.Background(), "genai_bucket")
	require.ErrorIs(t, err, errs.ErrUpstream)
}

type countingStore struct {
	calls atomic.Int32
	val   string
	err   error
	gate  chan struct{}
}

func (c *countingStore) Get(context.Context, string) (string, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.val, c.err
}

func TestCachedStore_MemoizesSuccess(t *testing.T) {
	inner := &countingStore{val: "v"}
	c := NewCachedStore(inner)

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "name")
		require.NoError(t, err)
		require.Equal(t, "v", v)
	}
	require.EqualValues(t, 1, inner.calls.Load())
}

func TestCachedStore_DoesNotCacheErrors(t *testing.T) {
	inner := &countingStore{err: errs.ErrNotFound}
	c := NewCachedStore(inner)

	_, err := c.Get(context.Background(), "name")
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.Get(context.Background(), "name")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedStore_ConcurrentGets(t *testing.T) {
	inner := &countingStore{val: "v", gate: make(chan struct{})}
	c := NewCachedStore(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "name")
			require.NoError(t, err)
			require.Equal(t, "v", v)
		}()
	}
	close(inner.gate)
	wg.Wait()

	calls := inner.calls.Load()
	require.GreaterOrEqual(t, calls, int32(1))

	_, err := c.Get(context.Background(), "name")
	require.NoError(t, err)
	require.Equal(t, calls, inner.calls.Load())
}
