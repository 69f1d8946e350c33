package middleware

import (
	"context"
	"strings"

	"github.com/flowjournal/backend/internal/model"
	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/flowjournal/backend/pkg/router"
	"github.com/flowjournal/backend/pkg/xcontext"
)

type AuthVerifier struct {
	useAccessToken bool
}

func NewAuthVerifier() *AuthVerifier {
	return &AuthVerifier{}
}

func (a *AuthVerifier) WithAccessToken() *AuthVerifier {
	a.useAccessToken = true
	return a
}

func (a *AuthVerifier) Middleware() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		if a.useAccessToken {
			token := getAccessToken(ctx)
			if token == "" {
				return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
			}

			var info model.AccessToken
			if err := xcontext.TokenEngine(ctx).Verify(token, &info); err != nil {
				xcontext.Logger(ctx).Debugf("Cannot verify access token: %v", err)
				return nil, errorx.New(errorx.Unauthenticated, "Invalid access token")
			}

			return xcontext.WithRequestUserID(ctx, info.ID), nil
		}

		return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	}
}

func getAccessToken(ctx context.Context) string {
	req := xcontext.HTTPRequest(ctx)
	if req == nil {
		return ""
	}

	authorization := req.Header.Get("Authorization")
	if authorization != "" {
		token, found := strings.CutPrefix(authorization, "Bearer ")
		if !found {
			return ""
		}

		return token
	}

	cookie, err := req.Cookie(xcontext.Configs(ctx).Auth.AccessToken.Name)
	if err != nil {
		return ""
	}

	return cookie.Value
}
