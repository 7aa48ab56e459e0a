package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
)

// ErrInvalidToken is returned for bearer tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the token fields the pipeline needs.
type Claims struct {
	Subject string
	Group   string
}

// TokenValidator verifies HS256 bearer tokens.
type TokenValidator struct {
	secret     []byte
	issuer     string
	groupClaim string
}

// NewTokenValidator creates a validator from the auth settings.
func NewTokenValidator(cfg config.AuthConfig) (*TokenValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	groupClaim := cfg.GroupClaim
	if groupClaim == "" {
		groupClaim = "group"
	}
	return &TokenValidator{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		groupClaim: groupClaim,
	}, nil
}

// Validate verifies the signature and standard claims of tokenString and
// extracts the subject and group.
func (v *TokenValidator) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	tok, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported claim type %T", ErrInvalidToken, tok.Claims)
	}

	claims := &Claims{}
	claims.Subject, _ = raw["sub"].(string)
	claims.Group, _ = raw[v.groupClaim].(string)
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Group) == "" {
		return nil, fmt.Errorf("%w: sub and %s claims are required", ErrInvalidToken, v.groupClaim)
	}
	return claims, nil
}

// Resolver maps token claims to tenant and submitter ids.
type Resolver interface {
	Resolve(ctx context.Context, groupName, userName string) (core.Identity, error)
}

// Identity authenticates the bearer token and attaches the resolved
// submitter to the request context. Requests without a valid token get 401.
func Identity(v *TokenValidator, resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.FromContext(r.Context())

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, core.ErrNoIdentity)
				return
			}

			claims, err := v.Validate(token)
			if err != nil {
				logger.Warn("auth: token rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			id, err := resolver.Resolve(r.Context(), claims.Group, claims.Subject)
			if err != nil {
				if errors.Is(err, core.ErrNoIdentity) {
					writeError(w, http.StatusUnauthorized, err)
					return
				}
				logger.Error("auth: resolve identity failed", "error", err)
				writeError(w, http.StatusInternalServerError, err)
				return
			}

			ctx := core.ContextWithIdentity(r.Context(), id)
			ctx = logging.WithLogger(ctx, logger.With(
				"submitter_id", id.SubmitterID,
				"tenant_id", id.TenantID,
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
