// Package auth issues and verifies the portal's bearer tokens (HS256 JWT).
package auth

import (
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"parish-portal/internal/config"
	"parish-portal/internal/model"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

const clockLeeway = 30 * time.Second

// Claims identify the bearer of a token.
type Claims struct {
	UserID uuid.UUID
	Email  string
	Role   model.Role
}

type portalClaims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// Tokens signs and verifies bearer tokens with a shared secret.
type Tokens struct {
	signer jose.Signer
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a token signer from the auth configuration.
func New(cfg config.AuthConfig) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	key := []byte(cfg.Secret)

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	return &Tokens{
		signer: signer,
		key:    key,
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for c that expires after the configured TTL.
func (t *Tokens) Issue(c Claims) (string, error) {
	now := t.now()
	std := jwt.Claims{
		Subject:  c.UserID.String(),
		Issuer:   t.issuer,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}

	token, err := jwt.Signed(t.signer).
		Claims(std).
		Claims(portalClaims{Email: c.Email, Role: c.Role}).
		Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the signature, issuer and expiry of raw and returns its
// claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var (
		std    jwt.Claims
		portal portalClaims
	)
	if err := tok.Claims(t.key, &std, &portal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expected := jwt.Expected{Issuer: t.issuer, Time: t.now()}
	if err := std.ValidateWithLeeway(expected, clockLeeway); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if std.Expiry == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	userID, err := uuid.Parse(std.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if !portal.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, portal.Role)
	}

	return &Claims{UserID: userID, Email: portal.Email, Role: portal.Role}, nil
}
