package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/pkg/auth/jwt"
	"github.com/ahmadjilani1/chathub/internal/pkg/limiter"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

// HandleWebSocket upgrades the request and drives the connection until it closes.
// A token in the Authorization header or the token query parameter authenticates the connection
// immediately; without one the client must send an authenticate event.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := jwt.TokenFromRequest(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "ip", limiter.ClientIP(r), "error", err.Error())
			return
		}

		client := chat.NewClient(conn, deps.Config.SendQueueSize)

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "ip", limiter.ClientIP(r))

		client.Run(r.Context(), deps.Manager, token)
	}
}
