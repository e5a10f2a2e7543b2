package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Keyer derives cache keys from an operation name and its arguments.
//
// Contract:
// - Determinism: the same operation and arguments always produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(op string, args ...string) (string, error)
}

// OperationKeyer produces "op:arg1:arg2" keys. Arguments are trimmed;
// keys that would exceed MaxKeyLength collapse to "op:#<hash>".
type OperationKeyer struct{}

// NewOperationKeyer creates the default keyer.
func NewOperationKeyer() *OperationKeyer {
	return &OperationKeyer{}
}

// Key builds the cache key for op and args.
func (k *OperationKeyer) Key(op string, args ...string) (string, error) {
	op = strings.TrimSpace(op)
	if op == "" {
		return "", fmt.Errorf("%w: empty operation", ErrInvalidKey)
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, a := range args {
		parts = append(parts, strings.TrimSpace(a))
	}
	key := strings.Join(parts, ":")

	if len(key) > MaxKeyLength || strings.ContainsAny(key, "\n\r") {
		sum := sha256.Sum256([]byte(key))
		key = op + ":#" + hex.EncodeToString(sum[:8])
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var _ Keyer = (*OperationKeyer)(nil)
