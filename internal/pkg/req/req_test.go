package req

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
)

type sample struct {
	ChatID string `json:"chatId"`
}

func TestDecodeStrict(t *testing.T) {
	req := require.New(t)

	var dst sample
	req.Nil(DecodeStrict(json.RawMessage(`{"chatId":"c1"}`), &dst))
	req.Equal("c1", dst.ChatID)

	for _, raw := range []string{``, `{"chatId":1}`, `{"chatId":"c1","extra":true}`, `{"chatId":"c1"} {}`, `[`} {
		err := DecodeStrict(json.RawMessage(raw), &dst)
		req.NotNil(err, raw)
		req.Equal(errs.ErrMalformedEvent, err.Code, raw)
	}
}

func TestBindJSON(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"chatId":"c1"}`))
	r.Header.Set("Content-Type", "application/json")
	var dst sample
	req.Nil(BindJSON(httptest.NewRecorder(), r, &dst))
	req.Equal("c1", dst.ChatID)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"chatId":"c1"}`))
	r.Header.Set("Content-Type", "text/plain")
	err := BindJSON(httptest.NewRecorder(), r, &dst)
	req.Equal(errs.ErrUnsupportedMediaType, err.Code)
}
