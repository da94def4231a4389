package otp

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/xlzd/gotp"
)

const hotpSecretSize = 20

// Generator produces one-time codes and high-entropy secrets.
type Generator interface {
	RandomCode(length int) (string, error)
	RandomSecret(size int) (string, error)
}

// GOTPGenerator derives numeric codes from a single HOTP evaluation over a
// freshly drawn 160-bit secret from crypto/rand.
//
// HOTP dynamic truncation yields a 31-bit integer that is reduced modulo
// 10^length. For length 6, 2^31 mod 10^6 = 483648, so codes below 483648
// occur 2148 times per 2^31 inputs and the rest 2147 times: a bias of roughly
// 1 part in 2147. Codes are therefore close to, but not exactly, uniform.
type GOTPGenerator struct{}

func NewGOTPGenerator() *GOTPGenerator {
	return &GOTPGenerator{}
}

// RandomCode returns a zero-padded decimal code of exactly length digits.
func (g *GOTPGenerator) RandomCode(length int) (string, error) {
	if length <= 0 || length > 9 {
		return "", fmt.Errorf("unsupported code length %d", length)
	}

	secret := make([]byte, hotpSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("read random secret failed: %w", err)
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
	hotp := gotp.NewHOTP(encoded, length, &gotp.Hasher{HashName: "sha1", Digest: sha1.New})

	code := hotp.At(0)
	if len(code) != length {
		return "", errors.New("generated code has unexpected length")
	}

	return code, nil
}

// RandomSecret returns size random bytes, hex-encoded.
func (g *GOTPGenerator) RandomSecret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("unsupported secret size %d", size)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes failed: %w", err)
	}

	return hex.EncodeToString(b), nil
}
