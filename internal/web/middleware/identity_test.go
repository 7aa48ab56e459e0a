package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/core"
)

const testSecret = "test-secret"

type fakeResolver struct {
	err   error
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, group, user string) (core.Identity, error) {
	f.calls = append(f.calls, group+"/"+user)
	if f.err != nil {
		return core.Identity{}, f.err
	}
	return core.Identity{
		SubmitterID:   "sub-" + user,
		SubmitterName: user,
		TenantID:      "ten-" + group,
		TenantName:    group,
	}, nil
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "alice",
		"group": "Bristol",
		"iss":   "busreg-test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func newIdentityHandler(t *testing.T, resolver Resolver) (http.Handler, *core.Identity) {
	t.Helper()
	v, err := NewTokenValidator(config.AuthConfig{JWTSecret: testSecret, Issuer: "busreg-test"})
	require.NoError(t, err)

	var seen core.Identity
	h := Identity(v, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := core.IdentityFromContext(r.Context())
		if ok {
			seen = id
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func TestIdentity_ValidToken(t *testing.T) {
	resolver := &fakeResolver{}
	h, seen := newIdentityHandler(t, resolver)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"Bristol/alice"}, resolver.calls)
	assert.Equal(t, "sub-alice", seen.SubmitterID)
	assert.Equal(t, "ten-Bristol", seen.TenantID)
}

func TestIdentity_Rejections(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "someone-else"

	noGroup := validClaims()
	delete(noGroup, "group")

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "missing header", header: "", wantCode: "AUTH001"},
		{name: "not bearer", header: "Basic abc", wantCode: "AUTH001"},
		{name: "garbage token", header: "Bearer not.a.token", wantCode: "AUTH002"},
		{name: "wrong secret", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims()), wantCode: "AUTH002"},
		{name: "wrong algorithm", header: "Bearer " + signToken(t, jwt.SigningMethodHS384, []byte(testSecret), validClaims()), wantCode: "AUTH002"},
		{name: "expired", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired), wantCode: "AUTH002"},
		{name: "wrong issuer", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer), wantCode: "AUTH002"},
		{name: "missing group claim", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noGroup), wantCode: "AUTH002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{}
			h, _ := newIdentityHandler(t, resolver)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Empty(t, resolver.calls)
		})
	}
}

func TestIdentity_ResolverFailure(t *testing.T) {
	h, _ := newIdentityHandler(t, &fakeResolver{err: errors.New("dial tcp: connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNewTokenValidator_RequiresSecret(t *testing.T) {
	_, err := NewTokenValidator(config.AuthConfig{})
	assert.Error(t, err)
}
