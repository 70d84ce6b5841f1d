package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by tokens issued for this API.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWT accepts HS256 tokens signed with a shared secret. Tokens must carry
// an exp claim.
type JWT struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWT(secret string) *JWT {
	return &JWT{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (j *JWT) Verify(_ context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	_, err := j.parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}

// Any accepts a token when at least one of its services does.
type Any []Service

func (a Any) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	for _, s := range a {
		if err := s.Verify(ctx, token); err == nil {
			return nil
		}
	}
	return ErrInvalidToken
}
