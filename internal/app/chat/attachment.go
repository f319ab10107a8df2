package chat

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// MaxAttachmentsCount defines the maximum number of attachments allowed per message.
	MaxAttachmentsCount = 3

	// PresignedURLDuration is the lifetime of presigned upload and download URLs.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes defines the set of permitted MIME types for file attachments.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"application/pdf": {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// Attachment references an uploaded object. URL is only set on delivery.
type Attachment struct {
	Key      string `json:"fileKey" validate:"required,max=512"`
	Name     string `json:"fileName" validate:"required,max=255"`
	MimeType string `json:"mimeType" validate:"required"`
	Size     int64  `json:"fileSize" validate:"gt=0"`
	URL      string `json:"url,omitempty"`
}

// AttachmentKeyPrefix is the storage prefix every attachment of chatID must live under.
func AttachmentKeyPrefix(chatID string) string {
	return fmt.Sprintf("chats/%s/", chatID)
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks that mimeType is allowed and matches the extension of fileName.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrAttachmentTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrAttachmentTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrAttachmentTypeInvalid)
	}

	return nil
}

// ValidateAttachments checks count, key scope, type and size of the attachments of a message
// for chatID. Client-supplied URLs are discarded.
func ValidateAttachments(chatID string, attachments []Attachment) *errs.CustomError {
	if len(attachments) > MaxAttachmentsCount {
		return errs.NewError(errs.ErrAttachmentCountInvalid, MaxAttachmentsCount)
	}

	prefix := AttachmentKeyPrefix(chatID)

	for i := range attachments {
		a := &attachments[i]

		if !strings.HasPrefix(a.Key, prefix) || strings.Contains(a.Key, "..") {
			return errs.NewError(errs.ErrAttachmentKeyInvalid)
		}

		if err := ValidateFileType(a.Name, a.MimeType); err != nil {
			return err
		}

		if err := ValidateFileSize(a.Size); err != nil {
			return err
		}

		a.URL = ""
	}

	return nil
}
