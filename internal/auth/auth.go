// Package auth verifies bearer tokens presented to the HTTP API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token matches no known key.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Service checks whether a token grants access to the API.
type Service interface {
	Verify(ctx context.Context, token string) error
}

// StaticKeys accepts a fixed set of API keys.
type StaticKeys struct {
	keys [][]byte
}

// NewStaticKeys ignores blank entries.
func NewStaticKeys(keys []string) *StaticKeys {
	s := &StaticKeys{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			s.keys = append(s.keys, []byte(k))
		}
	}
	return s
}

// Verify compares token against every key in constant time.
func (s *StaticKeys) Verify(_ context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	provided := []byte(token)
	match := 0
	for _, key := range s.keys {
		match |= subtle.ConstantTimeCompare(provided, key)
	}
	if match != 1 {
		return ErrInvalidToken
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
