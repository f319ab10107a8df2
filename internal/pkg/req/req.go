/*
Package req provides helpers for decoding client input.

BindJSON decodes HTTP request bodies; DecodeStrict applies the same strict rules to the
payload of an inbound socket event.
*/
package req

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
)

// MaxJSONBodySize bounds HTTP JSON bodies.
const MaxJSONBodySize int64 = 64 << 10

// BindJSON binds the JSON body of r to dst, rejecting unknown fields and trailing data.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// DecodeStrict decodes raw into dst with the same rules as BindJSON.
// Failures are reported as ErrMalformedEvent.
func DecodeStrict(raw json.RawMessage, dst any) *errs.CustomError {
	if len(bytes.TrimSpace(raw)) == 0 {
		return errs.NewError(errs.ErrMalformedEvent, "missing payload")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrMalformedEvent, "invalid payload")
	}

	if decoder.More() {
		return errs.NewError(errs.ErrMalformedEvent, "unexpected trailing data")
	}

	return nil
}
