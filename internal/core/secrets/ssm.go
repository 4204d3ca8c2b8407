package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// SSMAPI is the part of *ssm.Client the parameter store calls.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore reads secrets from SSM Parameter Store with decryption.
type ParameterStore struct {
	client SSMAPI
	log    *zap.Logger
}

func NewParameterStore(awsCfg aws.Config, log *zap.Logger) *ParameterStore {
	return NewParameterStoreWithAPI(ssm.NewFromConfig(awsCfg), log)
}

func NewParameterStoreWithAPI(api SSMAPI, log *zap.Logger) *ParameterStore {
	return &ParameterStore{client: api, log: log}
}

func (s *ParameterStore) Get(ctx context.Context, name string) (string, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	out, err := s.client.GetParameter(ctxGet, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *ssmtypes.ParameterNotFound
		if errors.As(err, &nf) {
			s.log.Debug("parameter not found", zap.String("name", name))
			return "", fmt.Errorf("ssm parameter %s: %w", name, errs.ErrNotFound)
		}
		s.log.Error("ssm get parameter failed", zap.String("name", name), zap.Error(err))
		return "", errs.Upstream("ssm get", name, err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("ssm parameter %s: %w", name, errs.ErrNotFound)
	}
	return aws.ToString(out.Parameter.Value), nil
}

var _ core.SecretStore = (*ParameterStore)(nil)
