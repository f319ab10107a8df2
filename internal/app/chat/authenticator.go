package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ahmadjilani1/chathub/internal/app/user"
	"github.com/ahmadjilani1/chathub/internal/pkg/auth/jwt"
	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

// Authenticator turns a credential token into the identity of a known user.
type Authenticator struct {
	dir    Directory
	secret string
	logger zerolog.Logger
}

// NewAuthenticator creates an Authenticator verifying HS256 tokens signed with secret.
func NewAuthenticator(dir Directory, secret string) *Authenticator {
	return &Authenticator{
		dir:    dir,
		secret: secret,
		logger: logx.Component("auth"),
	}
}

// Authenticate verifies token and resolves its subject in the directory.
// Every failure returns ErrAuthFailed; the actual reason is only logged.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (user.Identity, error) {
	payload, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		a.logger.Info().Err(err).Msg("Rejected connection token.")
		return user.Identity{}, errs.NewError(errs.ErrAuthFailed)
	}

	identity, err := a.dir.ResolveIdentity(ctx, payload.ID)
	if err != nil {
		event := a.logger.Info()
		if !errors.Is(err, ErrNotFound) {
			event = a.logger.Error()
		}
		event.Err(err).Str("user_id", payload.ID).Msg("Could not resolve token subject.")
		return user.Identity{}, errs.Wrap(errs.ErrAuthFailed, err)
	}

	return identity, nil
}
