package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	req := require.New(t)

	shutdown, err := Setup(context.Background(), "chathub-test", "")
	req.NoError(err)
	req.NotNil(shutdown)
	req.NoError(shutdown(context.Background()))
}
