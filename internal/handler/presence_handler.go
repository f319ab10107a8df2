package handler

import (
	"net/http"

	"github.com/ahmadjilani1/chathub/internal/pkg/auth/jwt"
	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/resp"
)

// HandleOnlineUsers returns the IDs of every user with a live connection.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"userIds": deps.Manager.OnlineUsers(),
		})
	}
}
