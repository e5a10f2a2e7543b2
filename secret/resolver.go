package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

var (
	// ErrSecretNotFound is returned when a provider has no value for a ref.
	ErrSecretNotFound = errors.New("secret: not found")
	// ErrUnknownProvider is returned for a reference naming an unregistered provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")
	// ErrEmptySecret is returned in strict mode when a provider yields "".
	ErrEmptySecret = errors.New("secret: empty value")
)

// Resolver expands environment variables and secret references in
// configuration values.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver returns a resolver over providers. In strict mode an empty
// resolved secret is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// DefaultResolver returns a strict resolver with the env and file
// providers registered.
func DefaultResolver() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// Register adds provider, replacing any provider with the same name.
func (r *Resolver) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// Resolve returns value with ${VAR} expanded and every secret reference
// replaced. Values without references are returned as expanded.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.lookup(ctx, name, ref)
	}

	matches := inlineRef.FindAllStringSubmatchIndex(expanded, -1)
	out := expanded
	// Replace back to front so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		v, err := r.lookup(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + v + out[m[1]:]
	}
	return out, nil
}

// ResolveAll resolves each of values.
func (r *Resolver) ResolveAll(ctx context.Context, values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		resolved, err := r.Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// IsRef reports whether value is a whole secret reference.
func IsRef(value string) bool {
	_, _, ok := ParseSecretRef(value)
	return ok
}

// ParseSecretRef splits a whole reference "secretref:<provider>:<ref>".
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

func (r *Resolver) lookup(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w from provider %q", ErrEmptySecret, name)
	}
	return v, nil
}
