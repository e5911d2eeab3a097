package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HealthMethodPrefix covers the standard health service, which liveness checks call without a token
const HealthMethodPrefix = "/grpc.health.v1.Health/"

const bearerScheme = "Bearer"

// AuthInterceptor returns a gRPC unary server interceptor that checks the
// shared API token on every call except those whose full method starts with
// one of exemptPrefixes. HealthMethodPrefix is always exempt.
// The token may be sent bare or as "Bearer <token>".
func AuthInterceptor(validToken string, exemptPrefixes ...string) grpc.UnaryServerInterceptor {
	exempt := append([]string{HealthMethodPrefix}, exemptPrefixes...)
	want := []byte(validToken)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		for _, prefix := range exempt {
			if strings.HasPrefix(info.FullMethod, prefix) {
				return handler(ctx, req)
			}
		}

		token, err := bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		// an unset server token never authenticates
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// bearerToken extracts the caller's token from the authorization metadata
func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}

	token := strings.TrimSpace(values[0])
	if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, bearerScheme) {
		token = strings.TrimSpace(rest)
	} else if strings.EqualFold(token, bearerScheme) {
		token = ""
	}
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "empty authorization token")
	}
	return token, nil
}
