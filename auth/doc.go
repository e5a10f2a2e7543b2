// Package auth gates the query surface behind an API key, a bearer JWT,
// or either. The gate is optional: mode "none" serves everyone.
//
// API keys are configured as SHA-256 hex digests (see HashAPIKey) and
// compared in constant time. JWTs are HMAC-signed with a shared secret
// and may be pinned to an issuer and audience.
package auth
