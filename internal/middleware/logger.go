package middleware

import (
	"errors"
	"fmt"

	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/flowjournal/backend/pkg/router"
	"github.com/flowjournal/backend/pkg/xcontext"
)

// Logger writes one line per request after the handler finished, tagging the
// authenticated user when there is one.
func Logger() router.CloserFunc {
	return func(ctx *router.Context) {
		info := fmt.Sprintf("%s | %s", ctx.Request().Method, ctx.Request().URL.Path)
		if userID := xcontext.RequestUserID(ctx); userID != "" {
			info = fmt.Sprintf("%s | %s", info, userID)
		}

		err := ctx.Error()
		if err == nil {
			ctx.Logger().Infof(info)
			return
		}

		var errx errorx.Error
		if errors.As(err, &errx) {
			ctx.Logger().Warnf("%s | %d", info, errx.Code)
		} else {
			ctx.Logger().Errorf("%s | unexpected: %v", info, err)
		}
	}
}
