package bwcrypto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	accessTokenVersion = "0"
	encryptionKeySize  = 16
)

// AccessToken is a machine account access token of the form
// "0.<client id>.<client secret>:<base64 encryption key>".
type AccessToken struct {
	ClientID      uuid.UUID
	ClientSecret  string
	EncryptionKey []byte
}

// ParseAccessToken parses s. The error never includes the token itself.
func ParseAccessToken(s string) (*AccessToken, error) {
	first, key, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing encryption key", ErrInvalidAccessToken)
	}

	parts := strings.Split(first, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 dot separated fields, got %d", ErrInvalidAccessToken, len(parts))
	}
	if parts[0] != accessTokenVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidAccessToken, parts[0])
	}

	clientID, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: client id is not a UUID", ErrInvalidAccessToken)
	}
	if parts[2] == "" {
		return nil, fmt.Errorf("%w: empty client secret", ErrInvalidAccessToken)
	}

	encKey, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not base64", ErrInvalidAccessToken)
	}
	if len(encKey) != encryptionKeySize {
		return nil, fmt.Errorf("%w: encryption key is %d bytes, want %d", ErrInvalidAccessToken, len(encKey), encryptionKeySize)
	}

	return &AccessToken{
		ClientID:      clientID,
		ClientSecret:  parts[2],
		EncryptionKey: encKey,
	}, nil
}

// String re-encodes the token.
func (t *AccessToken) String() string {
	return fmt.Sprintf("%s.%s.%s:%s", accessTokenVersion, t.ClientID, t.ClientSecret,
		base64.StdEncoding.EncodeToString(t.EncryptionKey))
}

// Key derives the key that protects the login response payload.
func (t *AccessToken) Key() (SymmetricKey, error) {
	return deriveShareableKey(t.EncryptionKey, accessTokenKeyName, accessTokenKeyInfo)
}
