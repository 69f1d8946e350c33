package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowjournal/backend/internal/model"
	"github.com/flowjournal/backend/pkg/testutil"
	"github.com/flowjournal/backend/pkg/xcontext"
)

func Test_AuthVerifier_Middleware(t *testing.T) {
	ctx := testutil.MockContext()
	middleware := NewAuthVerifier().WithAccessToken().Middleware()

	token, err := xcontext.TokenEngine(ctx).Generate(
		time.Minute, model.AccessToken{ID: "user-1", Name: "someone"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/points/total", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	newCtx, err := middleware(xcontext.WithHTTPRequest(ctx, req))
	require.NoError(t, err)
	require.Equal(t, "user-1", xcontext.RequestUserID(newCtx))
}

func Test_AuthVerifier_Middleware_rejectsBadTokens(t *testing.T) {
	ctx := testutil.MockContext()
	middleware := NewAuthVerifier().WithAccessToken().Middleware()

	// No credentials at all.
	req := httptest.NewRequest("GET", "/points/total", nil)
	_, err := middleware(xcontext.WithHTTPRequest(ctx, req))
	require.Error(t, err)

	// A token signed with another secret.
	req = httptest.NewRequest("GET", "/points/total", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	_, err = middleware(xcontext.WithHTTPRequest(ctx, req))
	require.Error(t, err)
}

func Test_AuthVerifier_Middleware_cookieFallback(t *testing.T) {
	ctx := testutil.MockContext()
	middleware := NewAuthVerifier().WithAccessToken().Middleware()

	token, err := xcontext.TokenEngine(ctx).Generate(
		time.Minute, model.AccessToken{ID: "user-2", Name: "someone"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/points/total", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	newCtx, err := middleware(xcontext.WithHTTPRequest(ctx, req))
	require.NoError(t, err)
	require.Equal(t, "user-2", xcontext.RequestUserID(newCtx))
}
