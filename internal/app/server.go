package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/genai-chat/internal/api/middlewares"
	"github.com/markdave123-py/genai-chat/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, accounts handlers.AccountService, chat handlers.ChatSender, cookies *appMiddleware.CookieCodec, views *handlers.Renderer, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, accounts, chat, cookies, views, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// NewRouter returns the chi router serving the web pages, /send and the static assets.
func NewRouter(cfg *config.Config, accounts handlers.AccountService, chat handlers.ChatSender, cookies *appMiddleware.CookieCodec, views *handlers.Renderer, log *zap.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(accounts, cookies, views, log)
	chatHandler := handlers.NewChatHandler(chat, views, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(appMiddleware.Recover(log))
	r.Use(middleware.Timeout(60 * time.Second))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Handle("/static/*", http.StripPrefix("/static/", handlers.StaticHandler()))

	// public endpoints
	r.Get("/", authHandler.Index)
	r.Get("/home", authHandler.Home)
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)
	r.Get("/signup", authHandler.SignupPage)
	r.Post("/signup", authHandler.Signup)
	r.Get("/confirm_email", authHandler.ConfirmEmail)
	r.Get("/forgot_password", authHandler.ForgotPasswordPage)
	r.Post("/forgot_password", authHandler.ForgotPassword)
	r.Get("/reset_password", authHandler.ResetPasswordPage)
	r.Post("/reset_password", authHandler.ResetPassword)
	r.Get("/ping", authHandler.Ping)

	// protected endpoints
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.RequireSession(cookies, accounts, log))
		protected.Get("/change_password", authHandler.ChangePasswordPage)
		protected.Post("/change_password", authHandler.ChangePassword)
		protected.Get("/chat", chatHandler.Page)
		protected.Post("/send", chatHandler.Send)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		views.HTML(w, http.StatusNotFound, "error", handlers.Page{Error: "Page not found"})
	})

	return r
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
