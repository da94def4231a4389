package csrf

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "csrf_token"
	HeaderName = "X-CSRF-Token"
)

// Validator decides whether a state-changing request carries a valid CSRF proof.
type Validator interface {
	IsValid(r *http.Request) bool
}

// Manager issues signed double-submit tokens: the same value must arrive in the
// CSRF cookie and the X-CSRF-Token header, and its signature and expiry must verify.
type Manager struct {
	signingKey []byte
	method     jwt.SigningMethod
	ttl        time.Duration
	now        func() time.Time
}

func NewManager(cfg config.CSRFConfig) (*Manager, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("empty csrf signing key")
	}

	if cfg.TTL == 0 {
		return nil, errors.New("empty csrf token ttl")
	}

	return &Manager{
		signingKey: []byte(cfg.SigningKey),
		method:     jwt.SigningMethodHS256,
		ttl:        cfg.TTL,
		now:        time.Now,
	}, nil
}

func (m *Manager) Issue() (string, time.Duration, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", 0, fmt.Errorf("generate csrf token id failed: %w", err)
	}

	now := m.now()
	token := jwt.NewWithClaims(m.method, jwt.RegisteredClaims{
		ID:        id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	})

	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", 0, fmt.Errorf("sign csrf token failed: %w", err)
	}

	return signed, m.ttl, nil
}

func (m *Manager) Verify(token string) error {
	_, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return m.signingKey, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())

	return err
}

func (m *Manager) IsValid(r *http.Request) bool {
	header := r.Header.Get(HeaderName)
	if header == "" {
		return false
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
		return false
	}

	return m.Verify(header) == nil
}
