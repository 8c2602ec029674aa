package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner issues an access token for a user.
type TokenSigner func(uid, email string, ttl time.Duration) (string, error)

// NewHS256Signer returns a TokenSigner producing HS256 JWTs.
func NewHS256Signer(secret []byte) TokenSigner {
	return func(uid, email string, ttl time.Duration) (string, error) {
		now := time.Now()
		claims := Claims{
			UID:   uid,
			Email: email,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
		}

		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	}
}

// ParseToken validates tok against secret and returns its claims.
func ParseToken(secret []byte, tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return c, nil
}
