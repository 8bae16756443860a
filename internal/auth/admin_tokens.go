package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	adminIssuer          = "snapfest-admin"
	adminAudience        = "snapfest-api"
	defaultAdminTokenTTL = 12 * time.Hour
)

var (
	// ErrMissingSigningSecret indicates no secret was configured.
	ErrMissingSigningSecret = errors.New("auth: signing secret required")
	// ErrMissingSubject indicates an issue request without a subject.
	ErrMissingSubject = errors.New("auth: subject required")
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// AdminTokensConfig configures HS256 admin token issuing and validation.
type AdminTokensConfig struct {
	SigningSecret []byte
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// AdminTokens issues and validates the bearer tokens guarding the
// administrative surface.
type AdminTokens struct {
	signingSecret []byte
	tokenTTL      time.Duration
	clock         func() time.Time
}

// NewAdminTokens constructs an AdminTokens with sane defaults.
func NewAdminTokens(cfg AdminTokensConfig) (*AdminTokens, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultAdminTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AdminTokens{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		tokenTTL:      ttl,
		clock:         clock,
	}, nil
}

// Issue produces a signed admin JWT for the subject and returns the token
// with its lifetime in seconds.
func (t *AdminTokens) Issue(subject string) (string, int64, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", 0, ErrMissingSubject
	}

	now := t.clock().UTC()
	expiresAt := now.Add(t.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    adminIssuer,
		Audience:  []string{adminAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.signingSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(t.tokenTTL.Seconds()), nil
}

// Validate ensures the admin JWT is well formed and returns the subject.
func (t *AdminTokens) Validate(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidToken, token.Method.Alg())
			}
			return t.signingSecret, nil
		},
		jwt.WithIssuer(adminIssuer),
		jwt.WithAudience(adminAudience),
		jwt.WithTimeFunc(t.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}
