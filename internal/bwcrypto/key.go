package bwcrypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32

	accessTokenKeyName = "accesstoken"
	accessTokenKeyInfo = "sm-access-token"
)

// SymmetricKey is an AES-256 encryption key paired with an HMAC-SHA256 key.
type SymmetricKey struct {
	EncKey [keySize]byte
	MacKey [keySize]byte
}

// NewSymmetricKey splits a 64 byte key into its encryption and MAC halves.
func NewSymmetricKey(b []byte) (SymmetricKey, error) {
	var k SymmetricKey
	if len(b) != 2*keySize {
		return k, fmt.Errorf("%w: symmetric key is %d bytes, want %d", ErrInvalidKey, len(b), 2*keySize)
	}
	copy(k.EncKey[:], b[:keySize])
	copy(k.MacKey[:], b[keySize:])
	return k, nil
}

// ParseSymmetricKey decodes a base64 encoded 64 byte key.
func ParseSymmetricKey(s string) (SymmetricKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return SymmetricKey{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return NewSymmetricKey(b)
}

// Bytes returns the encryption key followed by the MAC key.
func (k SymmetricKey) Bytes() []byte {
	return append(k.EncKey[:], k.MacKey[:]...)
}

// String returns the base64 encoding of Bytes.
func (k SymmetricKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

// deriveShareableKey stretches a short secret into a SymmetricKey: an
// HMAC-SHA256 keyed with "bitwarden-<name>" produces the pseudorandom key
// that HKDF-Expand turns into 64 bytes.
func deriveShareableKey(secret []byte, name, info string) (SymmetricKey, error) {
	mac := hmac.New(sha256.New, []byte("bitwarden-"+name))
	mac.Write(secret)
	prk := mac.Sum(nil)

	out := make([]byte, 2*keySize)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte(info)), out); err != nil {
		return SymmetricKey{}, fmt.Errorf("expanding key: %w", err)
	}
	return NewSymmetricKey(out)
}
