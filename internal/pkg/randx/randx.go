/*
Package randx provides cryptographically secure identifiers.

Connection IDs are short Base62 strings, convenient in logs; message IDs are UUID v4.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// ConnIDPrefix prefixes every connection identifier.
	ConnIDPrefix = "conn_"

	// ConnIDRawLength is the number of Base62 characters after the prefix.
	ConnIDRawLength = 12
)

// Base62 returns a random Base62 string of the given length.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random base62 character: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ConnID returns a new connection identifier. If the system RNG fails it falls back to a UUID,
// since a connection must never be left without an identity.
func ConnID() string {
	raw, err := Base62(ConnIDRawLength)
	if err != nil {
		return ConnIDPrefix + uuid.NewString()
	}
	return ConnIDPrefix + raw
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
