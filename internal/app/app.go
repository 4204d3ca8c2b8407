// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/api/handlers"
	middleware "github.com/markdave123-py/genai-chat/internal/api/middlewares"
	"github.com/markdave123-py/genai-chat/internal/config"
	"github.com/markdave123-py/genai-chat/internal/core/cloud"
	db "github.com/markdave123-py/genai-chat/internal/core/database"
	"github.com/markdave123-py/genai-chat/internal/services"
)

type App struct {
	Cloud    *cloud.Provider
	DBClient *db.DatabaseClient
	Users    *services.UserManager
	Chat     *services.ChatService
	Reaper   *services.TokenReaper
	Server   *Server

	log *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	provider, err := cloud.New(appCtx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("cloud backend %s: %w", cfg.Backend, err)
	}
	log.Info("cloud backend ready", zap.String("backend", string(cfg.Backend)))

	dbClient, err := db.NewDatabaseClient(appCtx, provider.Settings.DB, log.Named("db"))
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	tokens := services.NewTokenStore(dbClient, log.Named("tokens"))
	users := services.NewUserManager(dbClient, tokens, services.NewPasswordHasher(), provider.Notifier, cfg.PublicURL, log.Named("users"))
	history := services.NewHistoryStore(provider.Objects, log.Named("history"))
	chat := services.NewChatService(history, provider.Model, log.Named("chat"))

	if n, err := history.Count(appCtx); err != nil {
		log.Warn("object store probe failed", zap.Error(err))
	} else {
		log.Info("object store ready", zap.Int("histories", n))
	}

	cookies, err := middleware.NewCookieCodec(cfg.CookieSecret, cfg.SecureCookie)
	if err != nil {
		_ = dbClient.Close()
		_ = provider.Close()
		return nil, err
	}
	if cfg.CookieSecret == "" {
		log.Warn("COOKIE_SECRET not set; sessions will not survive a restart")
	}

	views, err := handlers.NewRenderer(log.Named("views"))
	if err != nil {
		_ = dbClient.Close()
		_ = provider.Close()
		return nil, err
	}

	a := &App{
		Cloud:    provider,
		DBClient: dbClient,
		Users:    users,
		Chat:     chat,
		Server:   NewServer(cfg, users, chat, cookies, views, log.Named("http")),
		log:      log,
	}
	if cfg.ReaperInterval > 0 {
		a.Reaper = services.NewTokenReaper(tokens, cfg.ReaperInterval, log.Named("reaper"))
	}
	return a, nil
}

func (a *App) Close() error {
	var all []error
	if a.DBClient != nil {
		all = append(all, a.DBClient.Close())
	}
	if a.Cloud != nil {
		all = append(all, a.Cloud.Close())
	}
	return errors.Join(all...)
}
