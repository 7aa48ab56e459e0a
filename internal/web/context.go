package web

import (
	"net/http"

	"github.com/JonMunkholm/busreg/internal/core"
)

// requestMetadata adds the client IP and User-Agent to the request context
// so submission logs can name the caller. RemoteAddr has already been
// rewritten by TrustedRealIP.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), r.RemoteAddr)
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity returns the caller resolved by the identity middleware.
func identity(r *http.Request) (core.Identity, error) {
	id, ok := core.IdentityFromContext(r.Context())
	if !ok {
		return core.Identity{}, core.ErrNoIdentity
	}
	return id, nil
}
