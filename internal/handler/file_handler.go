package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/pkg/auth/jwt"
	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
	"github.com/ahmadjilani1/chathub/internal/pkg/req"
	"github.com/ahmadjilani1/chathub/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating upload URL.
type PresignUploadInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// authorizeChat resolves the caller and checks they belong to the chat in the URL.
// It writes the error response itself and returns false when the request must stop.
func authorizeChat(deps *AppDeps, w http.ResponseWriter, r *http.Request) (string, bool) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return "", false
	}

	if deps.Storage == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
		return "", false
	}

	chatID := chi.URLParam(r, "chatId")
	if chatID == "" {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
		return "", false
	}

	ok, err := deps.Directory.IsMember(r.Context(), payload.ID, chatID)
	if err != nil {
		logx.Error(err, "Membership check failed", "chat_id", chatID, "user_id", payload.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return "", false
	}
	if !ok {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotMember))
		return "", false
	}

	return chatID, true
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file upload, scoped to a chat the caller belongs to.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := authorizeChat(deps, w, r)
		if !ok {
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := chat.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := chat.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileKey := chat.AttachmentKeyPrefix(chatID) + uuid.New().String() + fileExt

		url, err := deps.Storage.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			chat.PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, "Failed to presign upload", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignDownloadURL redirects a chat member to a time-limited download URL for an
// attachment stored under that chat.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := authorizeChat(deps, w, r)
		if !ok {
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" || strings.Contains(fileKey, "..") || !strings.HasPrefix(fileKey, chat.AttachmentKeyPrefix(chatID)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), fileKey, chat.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "Failed to presign download", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
