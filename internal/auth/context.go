/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"context"

	"github.com/friendsincode/muninn_media/internal/models"
)

// Identity is the calling actor, authenticated upstream. The engine never
// authenticates; it only authorizes against the role carried here.
type Identity struct {
	UserID string
	Role   models.RoleName
}

type contextKey string

const identityContextKey contextKey = "muninnIdentity"

// WithIdentity attaches the caller identity to the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the caller identity from context if present.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
