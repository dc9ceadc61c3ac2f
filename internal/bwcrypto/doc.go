// Package bwcrypto implements the client side cryptography of Bitwarden
// Secrets Manager access tokens: parsing the token, deriving its symmetric
// key, and decrypting type 2 (AES-256-CBC with HMAC-SHA256) EncStrings.
package bwcrypto
