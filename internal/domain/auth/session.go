// Package auth defines the session contract the checkout engine consumes.
// Session creation (login) is owned elsewhere; the engine only resolves a
// bearer token to an identity.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when a token resolves to no active session.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated caller: a user id and an admin flag.
type Identity struct {
	UserID int64
	Admin  bool
}

// Repository provides lookup of sessions by their HMAC token hash.
type Repository interface {
	// FindByTokenHash returns ErrUnauthorized when no active session matches.
	FindByTokenHash(ctx context.Context, hash string) (*Identity, error)
}
