package secrets

import (
	"context"
	"fmt"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// AccessFunc returns the payload of a fully qualified secret version name.
type AccessFunc func(ctx context.Context, versionName string) ([]byte, error)

// SecretManagerStore reads the latest version of secrets in one GCP project.
type SecretManagerStore struct {
	project string
	access  AccessFunc
	closeFn func() error
	log     *zap.Logger
}

func NewSecretManagerStore(ctx context.Context, project string, log *zap.Logger, opts ...option.ClientOption) (*SecretManagerStore, error) {
	if project == "" {
		return nil, fmt.Errorf("GCP project not set")
	}
	cl, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secret manager client: %w", err)
	}
	access := func(ctx context.Context, versionName string) ([]byte, error) {
		resp, err := cl.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: versionName})
		if err != nil {
			return nil, err
		}
		return resp.GetPayload().GetData(), nil
	}
	s := NewSecretManagerStoreWithAccess(project, access, log)
	s.closeFn = cl.Close
	return s, nil
}

func NewSecretManagerStoreWithAccess(project string, access AccessFunc, log *zap.Logger) *SecretManagerStore {
	return &SecretManagerStore{project: project, access: access, log: log}
}

func (s *SecretManagerStore) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

func (s *SecretManagerStore) versionName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name)
}

func (s *SecretManagerStore) Get(ctx context.Context, name string) (string, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	data, err := s.access(ctxGet, s.versionName(name))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			s.log.Debug("secret not found", zap.String("name", name))
			return "", fmt.Errorf("secret %s: %w", name, errs.ErrNotFound)
		}
		s.log.Error("access secret failed", zap.String("name", name), zap.Error(err))
		return "", errs.Upstream("secret manager access", name, err)
	}
	return string(data), nil
}

var _ core.SecretStore = (*SecretManagerStore)(nil)
