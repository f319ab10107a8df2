/*
Package user contains core data structures related to user identity.

It defines the identity snapshot attached to a connection at authentication time and embedded
in outbound messages, so recipients can render a sender without a second lookup.
*/
package user

// Identity is the immutable per-connection snapshot of a user.
// It is resolved once at authentication and never re-fetched while the connection lives.
type Identity struct {
	// ID is the unique identifier of the user in the directory store.
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Avatar is a reference (URL or storage key) to the user's avatar image.
	Avatar string `json:"avatar,omitempty"`
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.ID == ""
}
