package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_FormatsTemplate(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrAttachmentCountInvalid, 3)

	req.Equal(ErrAttachmentCountInvalid, err.Code)
	req.Equal("A message can carry at most 3 attachments.", err.Message)
	req.Equal(http.StatusOK, err.Status)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	req := require.New(t)

	err := NewError(42)

	req.Equal(ErrUnknown, err.Code)
	req.Equal(http.StatusInternalServerError, err.Status)
}

func TestErrorsIs_MatchesOnCode(t *testing.T) {
	req := require.New(t)

	cause := errors.New("connection refused")
	err := fmt.Errorf("send: %w", Wrap(ErrStorage, cause))

	req.ErrorIs(err, NewError(ErrStorage))
	req.NotErrorIs(err, NewError(ErrNotMember))
	req.ErrorIs(err, cause)
	req.True(HasCode(err, ErrStorage))
	req.False(HasCode(cause, ErrStorage))
}
