// Package utils holds the access token helpers shared by the auth
// middleware and the devtoken command.
package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the payload of an access token.  The subject is the user ID in
// decimal; hotel_id scopes staff and admin tokens.
type Claims struct {
	Role    model.Role `json:"role"`
	HotelID uint64     `json:"hotel_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts validated claims into the caller identity.
func (c Claims) Principal() (model.Principal, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return model.Principal{}, fmt.Errorf("invalid subject %q", c.Subject)
	}
	if !c.Role.Valid() {
		return model.Principal{}, fmt.Errorf("invalid role %q", c.Role)
	}
	if c.Role != model.RoleGuest && c.HotelID == 0 {
		return model.Principal{}, errors.New("staff token without hotel_id")
	}
	return model.Principal{UserID: id, Role: c.Role, HotelID: c.HotelID}, nil
}

// NewAccessToken builds and signs an HS256 JWT for p valid for ttl.
func NewAccessToken(secret string, p model.Principal, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:    p.Role,
		HotelID: p.HotelID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(p.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns the caller.  Only
// HMAC signatures are accepted and the token must carry an expiry.
func ParseAccessToken(secret, raw string) (model.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return model.Principal{}, err
	}
	return claims.Principal()
}
