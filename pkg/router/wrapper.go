package router

import (
	"context"
	"net/http"

	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/flowjournal/backend/pkg/xcontext"
	"github.com/gin-gonic/gin"
)

func wrapHandler[Request, Response any](
	r *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	befores := r.befores
	afters := r.afters
	closers := r.closers

	return func(gctx *gin.Context) {
		ctx := xcontext.WithDB(gctx.Request.Context(), r.db)
		ctx = xcontext.WithConfigs(ctx, r.cfg)
		ctx = xcontext.WithLogger(ctx, r.logger)
		ctx = xcontext.WithTokenEngine(ctx, r.tokenEngine)
		ctx = xcontext.WithHTTPRequest(ctx, gctx.Request)

		var req Request
		if err := bindRequest(gctx, method, &req); err != nil {
			writeResponse(gctx, nil, errorx.New(errorx.BadRequest, "Cannot bind the request"))
			runClosers(ctx, closers, gctx.Request, nil, err)
			return
		}

		resp, err := func() (*Response, error) {
			for _, m := range befores {
				newCtx, err := m(ctx)
				if err != nil {
					return nil, err
				}
				ctx = newCtx
			}

			resp, err := handler(ctx, &req)
			if err != nil {
				return nil, err
			}

			for _, m := range afters {
				newCtx, err := m(ctx)
				if err != nil {
					return nil, err
				}
				ctx = newCtx
			}

			return resp, nil
		}()

		if err != nil {
			writeResponse(gctx, nil, err)
		} else {
			writeResponse(gctx, resp, nil)
		}

		runClosers(ctx, closers, gctx.Request, resp, err)
	}
}

func bindRequest(gctx *gin.Context, method string, req any) error {
	if len(gctx.Params) > 0 {
		if err := gctx.ShouldBindUri(req); err != nil {
			return err
		}
	}

	switch method {
	case http.MethodGet:
		return gctx.ShouldBindQuery(req)
	case http.MethodPost:
		if gctx.Request.ContentLength == 0 {
			return nil
		}
		return gctx.ShouldBindJSON(req)
	}

	return nil
}

func runClosers(
	ctx context.Context, closers []CloserFunc, r *http.Request, resp any, err error,
) {
	closerCtx := &Context{Context: ctx, request: r, response: resp, err: err}
	for _, closer := range closers {
		closer(closerCtx)
	}
}
