package bwcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrInvalidKey         = errors.New("invalid key")
	ErrInvalidEncString   = errors.New("invalid encrypted string")
	ErrMacMismatch        = errors.New("MAC verification failed")
)

// EncStringType identifies the cipher an EncString was produced with. Only
// AesCbc256HmacSha256B64 is used by Secrets Manager.
type EncStringType int

const AesCbc256HmacSha256B64 EncStringType = 2

// EncString is an encrypted value in Bitwarden's "<type>.<iv>|<data>|<mac>"
// notation.
type EncString struct {
	Type EncStringType
	IV   []byte
	Data []byte
	MAC  []byte
}

// ParseEncString parses s.
func ParseEncString(s string) (*EncString, error) {
	typ, rest, ok := strings.Cut(s, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidEncString)
	}
	if typ != "2" {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidEncString, typ)
	}

	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 parts, got %d", ErrInvalidEncString, len(parts))
	}

	var decoded [3][]byte
	for i, p := range parts {
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEncString, err)
		}
		decoded[i] = b
	}

	es := &EncString{Type: AesCbc256HmacSha256B64, IV: decoded[0], Data: decoded[1], MAC: decoded[2]}
	if len(es.IV) != aes.BlockSize {
		return nil, fmt.Errorf("%w: IV is %d bytes", ErrInvalidEncString, len(es.IV))
	}
	if len(es.Data) == 0 || len(es.Data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrInvalidEncString)
	}
	if len(es.MAC) != sha256.Size {
		return nil, fmt.Errorf("%w: MAC is %d bytes", ErrInvalidEncString, len(es.MAC))
	}
	return es, nil
}

func (e *EncString) String() string {
	enc := base64.StdEncoding.EncodeToString
	return fmt.Sprintf("%d.%s|%s|%s", e.Type, enc(e.IV), enc(e.Data), enc(e.MAC))
}

// Decrypt authenticates and decrypts e.
func (e *EncString) Decrypt(key SymmetricKey) ([]byte, error) {
	if !hmac.Equal(computeMAC(key, e.IV, e.Data), e.MAC) {
		return nil, ErrMacMismatch
	}

	block, err := aes.NewCipher(key.EncKey[:])
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(e.Data))
	cipher.NewCBCDecrypter(block, e.IV).CryptBlocks(plain, e.Data)
	return unpad(plain)
}

// DecryptString parses and decrypts s.
func DecryptString(s string, key SymmetricKey) (string, error) {
	es, err := ParseEncString(s)
	if err != nil {
		return "", err
	}
	b, err := es.Decrypt(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Encrypt encrypts plain under key with a random IV.
func Encrypt(plain []byte, key SymmetricKey) (*EncString, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key.EncKey[:])
	if err != nil {
		return nil, err
	}

	data := pad(plain)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, data)

	return &EncString{
		Type: AesCbc256HmacSha256B64,
		IV:   iv,
		Data: data,
		MAC:  computeMAC(key, iv, data),
	}, nil
}

func computeMAC(key SymmetricKey, iv, data []byte) []byte {
	mac := hmac.New(sha256.New, key.MacKey[:])
	mac.Write(iv)
	mac.Write(data)
	return mac.Sum(nil)
}

// pad applies PKCS#7 padding.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrInvalidEncString)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrInvalidEncString)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidEncString)
		}
	}
	return b[:len(b)-n], nil
}
