package router

import (
	"context"
	"net/http"

	"github.com/flowjournal/backend/pkg/logger"
	"github.com/flowjournal/backend/pkg/xcontext"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before or after a handler. It may derive a new context
// (e.g. to attach the authenticated user id); returning an error aborts the
// request with that error.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc always runs after the response is decided, success or not.
type CloserFunc func(ctx *Context)

// Context is handed to closers; it exposes the request outcome.
type Context struct {
	context.Context

	request  *http.Request
	response any
	err      error
}

func (c *Context) Request() *http.Request {
	return c.request
}

func (c *Context) Response() any {
	return c.response
}

func (c *Context) Error() error {
	return c.err
}

func (c *Context) Logger() logger.Logger {
	return xcontext.Logger(c.Context)
}
