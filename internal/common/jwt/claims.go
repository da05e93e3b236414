package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the canonical rider-token payload. The subject is the rider ID
// used to address location updates.
type Claims struct {
	Role string `json:"role"` // always "RIDER" for tokens this agent consumes
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewRiderClaims constructs claims for a rider token.
func NewRiderClaims(riderID string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: "RIDER",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   riderID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
