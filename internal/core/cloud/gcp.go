package cloud

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/markdave123-py/genai-chat/internal/config"
	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/core/llm"
	"github.com/markdave123-py/genai-chat/internal/core/notifier"
	objectclient "github.com/markdave123-py/genai-chat/internal/core/object-client"
	"github.com/markdave123-py/genai-chat/internal/core/secrets"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewGCP wires Cloud Storage, Secret Manager, Brevo and Gemini.
func NewGCP(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Provider, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope, llm.GenerativeLanguageScope)
	if err != nil {
		return nil, fmt.Errorf("gcp credentials: %w", err)
	}
	project := cfg.GcpProject
	if project == "" {
		project = creds.ProjectID
	}
	if project == "" {
		return nil, fmt.Errorf("GCP_PROJECT not set and not found in credentials")
	}
	credOpt := option.WithCredentials(creds)

	p := &Provider{Backend: config.BackendGCP}

	sm, err := secrets.NewSecretManagerStore(ctx, project, log.Named("secretmanager"), credOpt)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, sm.Close)
	p.Secrets = secrets.NewCachedStore(sm)

	settings, err := LoadSettings(ctx, p.Secrets, GCPSecretNames, cfg)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.Settings = settings

	gcs, err := objectclient.NewGCSClient(ctx, settings.Bucket, log.Named("gcs"), credOpt)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.closers = append(p.closers, gcs.Close)
	p.Objects = gcs

	var mail core.Notifier
	if settings.Sender != "" && settings.BrevoKey != "" {
		mail = notifier.NewBrevoNotifier(settings.BrevoKey, settings.Sender, log.Named("brevo"))
	} else {
		log.Warn("no sender or brevo key configured; emails will only be logged")
		mail = notifier.NewLogNotifier(log.Named("mail"))
	}
	p.Notifier = mail

	modelOpt := credOpt
	if cfg.GeminiAPIKey != "" {
		modelOpt = option.WithAPIKey(cfg.GeminiAPIKey)
	}
	gem, err := llm.NewGeminiLLM(ctx, cfg.ModelID, log.Named("gemini"), modelOpt)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.closers = append(p.closers, gem.Close)
	p.Model = gem

	log.Info("gcp backend ready", zap.String("project", project), zap.String("region", cfg.GcpRegion), zap.String("bucket", settings.Bucket))
	return p, nil
}
