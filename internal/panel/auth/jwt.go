// Package auth mints and verifies session tokens, hashes passwords and
// backup codes, and drives the TOTP setup/verify/disable flows named in
// spec.md §4.C4. JWT and bcrypt are named out-of-scope "primitive"
// collaborators in spec.md §1 — this package is the thin policy layer atop
// them, not a reimplementation.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims mirrors spec.md §6 "JWT claims" exactly.
type Claims struct {
	Sub         string          `json:"sub"`
	Username    string          `json:"username"`
	RoleID      string          `json:"role_id,omitempty"`
	RoleName    string          `json:"role_name,omitempty"`
	Permissions map[string]bool `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and parses HS256 session tokens with the configured
// secret and expiry, per spec.md §6.
type TokenIssuer struct {
	Secret     string
	ExpiryDays int
}

func (t *TokenIssuer) Mint(userID uuid.UUID, username string, roleID *uuid.UUID, roleName string, permissions []string) (string, error) {
	permSet := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		permSet[p] = true
	}
	claims := Claims{
		Sub:         userID.String(),
		Username:    username,
		RoleName:    roleName,
		Permissions: permSet,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(t.ExpiryDays) * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if roleID != nil {
		claims.RoleID = roleID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.Secret))
}

func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return []byte(t.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
