/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/friendsincode/muninn_media/internal/models"
)

// Claims carries the upstream-issued identity. Token issuance lives in the
// identity service; this module only consumes.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Parse validates a token string and extracts the caller identity.
func Parse(secret []byte, token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}

	return &Identity{
		UserID: userID,
		Role:   models.RoleName(claims.Role),
	}, nil
}
