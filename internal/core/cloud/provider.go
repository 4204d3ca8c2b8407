// Package cloud assembles the object store, secret store, notifier and model client
// for the backend selected in configuration.
package cloud

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/genai-chat/internal/config"
	"github.com/markdave123-py/genai-chat/internal/core"
	db "github.com/markdave123-py/genai-chat/internal/core/database"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// SecretNames are the secret store keys a backend reads at startup.
// An empty name is not looked up.
type SecretNames struct {
	Sender     string
	BrevoKey   string
	DBHost     string
	DBUsername string
	DBPassword string
	Bucket     string
}

var (
	AWSSecretNames = SecretNames{
		Sender:     "/genai/sender",
		DBHost:     "/genai/dbHost",
		DBUsername: "/genai/dbUsername",
		DBPassword: "/genai/dbPassword",
		Bucket:     "/genai/bucket",
	}
	GCPSecretNames = SecretNames{
		Sender:     "genai_sender",
		BrevoKey:   "genai_brevo",
		DBHost:     "genai_dbHost",
		DBUsername: "genai_dbUsername",
		DBPassword: "genai_dbPassword",
		Bucket:     "genai_bucket",
	}
)

// Settings are the values resolved from the secret store.
type Settings struct {
	Sender   string
	BrevoKey string
	Bucket   string
	DB       db.ConnInfo
}

// Provider is the capability set of one backend.
type Provider struct {
	Backend  config.Backend
	Secrets  core.SecretStore
	Objects  core.ObjectClient
	Notifier core.Notifier
	Model    core.LLMProvider
	Settings *Settings

	closers []func() error
}

// New builds the provider for cfg.Backend.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Provider, error) {
	switch cfg.Backend {
	case config.BackendAWS:
		return NewAWS(ctx, cfg, log)
	case config.BackendGCP:
		return NewGCP(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Close releases every client that holds a connection.
func (p *Provider) Close() error {
	var all []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}

// LoadSettings resolves names from secrets concurrently.
// A missing sender is tolerated (mail is then only logged); every other present name is required.
func LoadSettings(ctx context.Context, secrets core.SecretStore, names SecretNames, cfg *config.Config) (*Settings, error) {
	s := &Settings{
		DB: db.ConnInfo{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			Name:     cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
			RootCert: cfg.SslCertPath,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(name string, dst *string, optional bool) {
		if name == "" {
			return
		}
		g.Go(func() error {
			v, err := secrets.Get(gctx, name)
			if err != nil {
				if optional && errors.Is(err, errs.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("secret %s: %w", name, err)
			}
			*dst = v
			return nil
		})
	}

	fetch(names.Sender, &s.Sender, true)
	fetch(names.BrevoKey, &s.BrevoKey, true)
	fetch(names.Bucket, &s.Bucket, false)
	fetch(names.DBUsername, &s.DB.User, false)
	fetch(names.DBPassword, &s.DB.Password, false)
	if cfg.DBHost == "" {
		fetch(names.DBHost, &s.DB.Host, false)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}
