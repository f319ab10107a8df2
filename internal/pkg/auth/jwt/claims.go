package jwt

import "github.com/golang-jwt/jwt/v5"

// Payload defines the claims carried by a chathub access token.
// Tokens are minted by the REST service; this server only verifies them.
type Payload struct {
	// ID is the user identifier the token was issued to. It is resolved against
	// the directory on every connection, so a deleted user is rejected even with a valid token.
	ID string `json:"id"`

	jwt.RegisteredClaims
}
