package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureIdentity(mw func(http.Handler) http.Handler, req *http.Request) Identity {
	var got Identity
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestIdentityMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Remote-User", " alice ")
	req.Header.Set("X-Remote-Group", "editors, menuforge-admins,,")

	id := captureIdentity(IdentityMiddleware(), req)
	assert.Equal(t, "alice", id.User)
	assert.Equal(t, []string{"editors", "menuforge-admins"}, id.Groups)

	id = captureIdentity(IdentityMiddleware(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, Anonymous, id.User)
	assert.Empty(t, id.Groups)
}

func TestActor(t *testing.T) {
	assert.Equal(t, Anonymous, Actor(context.Background()))
	assert.Equal(t, "bob", Actor(WithIdentity(context.Background(), Identity{User: "bob"})))
}

func TestJWTIdentityMiddleware(t *testing.T) {
	mw, err := JWTIdentityMiddleware(JWTConfig{Issuer: "menuforge-test"}, nil)
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name       string
		header     string
		wantUser   string
		wantGroups []string
	}{
		{
			name:       "groups list",
			header:     "Bearer " + sign(jwt.MapClaims{"sub": "alice", "iss": "menuforge-test", "groups": []any{"menuforge-admins", "staff"}}),
			wantUser:   "alice",
			wantGroups: []string{"menuforge-admins", "staff"},
		},
		{
			name:       "groups string",
			header:     "bearer " + sign(jwt.MapClaims{"sub": "bob", "iss": "menuforge-test", "groups": "a, b"}),
			wantUser:   "bob",
			wantGroups: []string{"a", "b"},
		},
		{
			name:     "wrong issuer",
			header:   "Bearer " + sign(jwt.MapClaims{"sub": "mallory", "iss": "elsewhere"}),
			wantUser: Anonymous,
		},
		{
			name:     "garbage token",
			header:   "Bearer not-a-token",
			wantUser: Anonymous,
		},
		{
			name:     "no header",
			wantUser: Anonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			id := captureIdentity(mw, req)
			assert.Equal(t, tt.wantUser, id.User)
			assert.Equal(t, tt.wantGroups, id.Groups)
		})
	}
}

func TestJWTIdentityMiddlewareBadKeyPath(t *testing.T) {
	_, err := JWTIdentityMiddleware(JWTConfig{PublicKeyPath: "/nonexistent/key.pem"}, nil)
	assert.Error(t, err)
}
