// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/epitaph76/cloudtune/internal/api/playerv1/playerv1connect"
)

const (
	// TokenHeader is the header name for the control token.
	TokenHeader = "X-Player-Token"
)

// publicProcedures can be called without a token.
var publicProcedures = map[string]bool{
	playerv1connect.PlayerServiceGetStatusProcedure:   true,
	playerv1connect.LibraryServiceListTracksProcedure: true,
}

// NewTokenInterceptor creates an interceptor that validates the control token
// for every unary procedure that changes state.
// Streaming procedures are read-only and are not intercepted.
func NewTokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if publicProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			got := req.Header().Get(TokenHeader)
			if got == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			return next(ctx, req)
		}
	}
}

// NewClientTokenInterceptor attaches token to every outgoing request.
func NewClientTokenInterceptor(token string) connect.Interceptor {
	return &clientToken{token: token}
}

type clientToken struct {
	token string
}

func (c *clientToken) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if c.token != "" {
			req.Header().Set(TokenHeader, c.token)
		}
		return next(ctx, req)
	}
}

func (c *clientToken) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		if c.token != "" {
			conn.RequestHeader().Set(TokenHeader, c.token)
		}
		return conn
	}
}

func (c *clientToken) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
