package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator accepts keys whose SHA-256 digest is configured.
type APIKeyAuthenticator struct {
	hashes [][]byte
}

// NewAPIKeyAuthenticator accepts the keys hashed in hexHashes. Entries
// are compared case-insensitively; malformed entries never match.
func NewAPIKeyAuthenticator(hexHashes []string) *APIKeyAuthenticator {
	a := &APIKeyAuthenticator{}
	for _, h := range hexHashes {
		b, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(h)))
		if err == nil && len(b) == sha256.Size {
			a.hashes = append(a.hashes, b)
		}
	}
	return a
}

func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(h http.Header) bool {
	return h.Get(APIKeyHeader) != ""
}

func (a *APIKeyAuthenticator) Authenticate(_ context.Context, h http.Header) (*Identity, error) {
	key := strings.TrimSpace(h.Get(APIKeyHeader))
	if key == "" {
		return nil, ErrMissingCredentials
	}
	sum := sha256.Sum256([]byte(key))
	match := 0
	for _, want := range a.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], want)
	}
	if match != 1 {
		return nil, ErrInvalidCredentials
	}
	digest := hex.EncodeToString(sum[:])
	return &Identity{
		Principal: "key:" + digest[:8],
		Method:    MethodAPIKey,
	}, nil
}

// HashAPIKey returns the hex SHA-256 digest to configure for key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
