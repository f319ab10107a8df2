package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Presigning is computed locally, so no S3 endpoint needs to be reachable.
func TestS3Client_Presign(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	svc, err := NewStorageService(ctx, ServiceConfig{
		S3BucketName:      "attachments",
		S3Endpoint:        "https://s3.example.test",
		S3AccessKeyID:     "AKIDEXAMPLE",
		S3SecretAccessKey: "secret",
	})
	req.NoError(err)

	upload, err := svc.PresignUpload(ctx, "chats/c1/file.png", "image/png", 1024, 5*time.Minute)
	req.NoError(err)

	u, err := url.Parse(upload)
	req.NoError(err)
	req.Equal("s3.example.test", u.Host)
	req.Equal("/attachments/chats/c1/file.png", u.Path)
	req.Equal("300", u.Query().Get("X-Amz-Expires"))

	download, err := svc.PresignDownload(ctx, "chats/c1/file.png", time.Minute)
	req.NoError(err)
	req.Contains(download, "/attachments/chats/c1/file.png")
}
