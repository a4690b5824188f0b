package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/domain"
)

// ErrNoTokenKey is returned when neither a shared secret nor a public key is
// configured for identity tokens.
var ErrNoTokenKey = errors.New("auth: no identity token key configured")

// IdentityClaims are the claims read from an identity token.
type IdentityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks identity tokens issued by the login provider.
type Verifier struct {
	key      interface{}
	method   string
	issuer   string
	audience string
	leeway   time.Duration
}

// NewVerifier builds a verifier from the auth config. A PEM public key
// selects RS256 and takes precedence over a shared secret (HS256).
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{issuer: cfg.TokenIssuer, audience: cfg.TokenAudience, leeway: 30 * time.Second}
	switch {
	case cfg.TokenPublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.TokenPublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse token public key: %w", err)
		}
		v.key, v.method = key, jwt.SigningMethodRS256.Alg()
	case cfg.TokenSecret != "":
		v.key, v.method = []byte(cfg.TokenSecret), jwt.SigningMethodHS256.Alg()
	default:
		return nil, ErrNoTokenKey
	}
	return v, nil
}

// Verify parses raw and returns the user it identifies. Every failure is
// reported as domain.ErrUnauthenticated.
func (v *Verifier) Verify(raw string) (*User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims IdentityClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return &User{
		ID:      claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
