package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// JWTConfig configures JWT validation.
type JWTConfig struct {
	Secret   []byte
	Issuer   string // checked when set
	Audience string // checked when set
	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration
}

// JWTAuthenticator validates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	cfg    JWTConfig
	parser *jwt.Parser
}

// NewJWTAuthenticator returns an authenticator for cfg.
func NewJWTAuthenticator(cfg JWTConfig) *JWTAuthenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTAuthenticator{cfg: cfg, parser: jwt.NewParser(opts...)}
}

func (a *JWTAuthenticator) Name() string { return string(MethodJWT) }

func (a *JWTAuthenticator) Supports(h http.Header) bool {
	return strings.HasPrefix(h.Get("Authorization"), bearerPrefix)
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, h http.Header) (*Identity, error) {
	raw, ok := strings.CutPrefix(h.Get("Authorization"), bearerPrefix)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, ErrMissingCredentials
	}
	if len(a.cfg.Secret) == 0 {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.cfg.Secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, ErrInvalidCredentials
	}

	id := &Identity{Method: MethodJWT, Claims: claims}
	id.Principal, _ = claims.GetSubject()
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}
