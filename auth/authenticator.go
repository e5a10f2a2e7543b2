package auth

import (
	"context"
	"fmt"
	"net/http"
)

// Authenticator validates the credentials of a request.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: credential problems wrap one of the package sentinels (see
//     IsAuthFailure); anything else is an internal fault.
type Authenticator interface {
	Name() string

	// Supports reports whether h carries credentials of this kind.
	Supports(h http.Header) bool

	Authenticate(ctx context.Context, h http.Header) (*Identity, error)
}

// Any tries each authenticator that supports the request in order and
// returns the first success. With no supporting authenticator the
// request has no credentials.
type Any []Authenticator

func (a Any) Name() string { return "any" }

func (a Any) Supports(h http.Header) bool {
	for _, au := range a {
		if au.Supports(h) {
			return true
		}
	}
	return false
}

func (a Any) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	err := ErrMissingCredentials
	for _, au := range a {
		if !au.Supports(h) {
			continue
		}
		id, aerr := au.Authenticate(ctx, h)
		if aerr == nil {
			return id, nil
		}
		if !IsAuthFailure(aerr) {
			return nil, aerr
		}
		err = aerr
	}
	return nil, err
}

// Config selects and configures the gate.
type Config struct {
	Mode        string // none|api_key|jwt|any
	APIKeys     []string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// New builds the authenticator for cfg. Mode "none" (or "") yields nil:
// no gate.
func New(cfg Config) (Authenticator, error) {
	switch cfg.Mode {
	case "", "none":
		return nil, nil
	case "api_key":
		return NewAPIKeyAuthenticator(cfg.APIKeys), nil
	case "jwt":
		return NewJWTAuthenticator(JWTConfig{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}), nil
	case "any":
		return Any{
			NewAPIKeyAuthenticator(cfg.APIKeys),
			NewJWTAuthenticator(JWTConfig{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}),
		}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, cfg.Mode)
	}
}
