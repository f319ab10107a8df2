/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/ahmadjilani1/chathub/internal/configs"
	"github.com/ahmadjilani1/chathub/internal/pkg/auth/jwt"
	"github.com/ahmadjilani1/chathub/internal/pkg/limiter"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
	"github.com/ahmadjilani1/chathub/internal/pkg/resp"
)

const (
	ConnectRate  = 0.5
	ConnectBurst = 10
	PresignRate  = 1
	PresignBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// Rate limiter cleanup stops when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)
	presignLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(PresignRate), PresignBurst)

	r := chi.NewRouter()

	r.Use(newCORS(deps.Config).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "chathub",
			"online":  len(deps.Manager.OnlineUsers()),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Get("/presence", HandleOnlineUsers(deps))

		api.Route("/chats/{chatId}/attachments", func(files chi.Router) {
			files.With(presignLimiter.Middleware).Post("/presign", HandlePresignUploadURL(deps))
			files.Get("/download", HandlePresignDownloadURL(deps))
		})
	})

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(deps, newUpgrader(deps.Config)))

	return r
}

// newUpgrader accepts any origin in development and only ALLOWED_ORIGINS otherwise.
func newUpgrader(cfg *configs.AppConfig) websocket.Upgrader {
	allowed := lo.Keyify(cfg.AllowedOrigins)

	return websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}

func newCORS(cfg *configs.AppConfig) *cors.Cors {
	origins := cfg.AllowedOrigins
	if cfg.IsDevelopment() {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !cfg.IsDevelopment(),
		MaxAge:           300,
	})
}
