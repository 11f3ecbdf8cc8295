// Package identitytest signs access tokens the way the identity provider does. Test use only.
package identitytest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Secret   = "test-secret-with-at-least-thirty-two-characters"
	Audience = "authenticated"
)

// Token returns an HS256 access token for userID, valid for ttl from now.
func Token(userID uuid.UUID, ttl time.Duration) string {
	return Sign(Secret, jwt.MapClaims{
		"sub": userID.String(),
		"aud": Audience,
		"exp": time.Now().Add(ttl).Unix(),
	})
}

func Sign(secret string, claims jwt.MapClaims) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}
