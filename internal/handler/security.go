package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/quillcart/bookstore/internal/domain/auth"
)

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// IdentityFromContext extracts the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// authedHandler is an HTTP handler that runs with a resolved identity.
type authedHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// Security authenticates bearer session tokens. Tokens are stored hashed
// with HMAC-SHA256 under a server-side pepper, so a leaked sessions table
// exposes no usable tokens.
type Security struct {
	sessions auth.Repository
	pepper   []byte
}

// NewSecurity creates a Security with the given session repository and HMAC
// pepper.
func NewSecurity(sessions auth.Repository, pepper []byte) *Security {
	return &Security{sessions: sessions, pepper: pepper}
}

// RequireUser resolves the bearer token and invokes next with the identity.
func (s *Security) RequireUser(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next(w, r.WithContext(ctx), id)
	})
}

// RequireAdmin is RequireUser plus the admin flag.
func (s *Security) RequireAdmin(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !id.Admin {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin access required"})
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next(w, r.WithContext(ctx), id)
	})
}

func (s *Security) authenticate(r *http.Request) (auth.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return auth.Identity{}, auth.ErrUnauthorized
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(token))
	hash := hex.EncodeToString(mac.Sum(nil))

	id, err := s.sessions.FindByTokenHash(r.Context(), hash)
	if err != nil {
		return auth.Identity{}, auth.ErrUnauthorized
	}
	return *id, nil
}
