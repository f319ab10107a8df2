package handler

import (
	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/storage"
	"github.com/ahmadjilani1/chathub/internal/configs"
)

// AppDeps carries what the HTTP layer needs. Storage is nil when attachments are disabled.
type AppDeps struct {
	Manager   *chat.Manager
	Directory chat.Directory
	Config    *configs.AppConfig
	Storage   storage.StorageService
}
