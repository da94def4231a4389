package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// TokenHasher provides one-way hashing of short-lived secrets so they are never stored in plaintext.
type TokenHasher interface {
	Hash(secret string) (string, error)
	Equal(secret, digest string) (bool, error)
}

// SHA256Hasher keys SHA256 with a server-side pepper (HMAC).
type SHA256Hasher struct {
	salt []byte
}

func NewSHA256Hasher(salt string) *SHA256Hasher {
	return &SHA256Hasher{salt: []byte(salt)}
}

// Hash creates a hex-encoded HMAC-SHA256 digest of the given secret.
func (h *SHA256Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}

	mac := hmac.New(sha256.New, h.salt)
	if _, err := mac.Write([]byte(secret)); err != nil {
		return "", err
	}

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Equal recomputes the digest of secret and compares it with digest in constant time.
func (h *SHA256Hasher) Equal(secret, digest string) (bool, error) {
	computed, err := h.Hash(secret)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1, nil
}
