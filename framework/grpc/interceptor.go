// Package oidcgrpc provides gRPC interceptors that verify bearer tokens
// carried in request metadata.
package oidcgrpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	oidcrp "github.com/authware/go-oidc-rp"
)

// TokenExtractor pulls a bearer token out of an incoming gRPC context.
// An empty string with a nil error means no token was presented.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor reads the token from the "authorization"
// metadata entry, accepting the same bearer scheme variants as the HTTP
// extractor.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", nil
	}

	parts := strings.Fields(strings.TrimSpace(values[0]))
	if len(parts) != 2 || !strings.EqualFold(strings.TrimSuffix(parts[0], ":"), "bearer") {
		return "", errors.New("authorization metadata format must be Bearer {token}")
	}
	return parts[1], nil
}

// Interceptor verifies tokens on unary and stream calls.
type Interceptor struct {
	verifyToken         oidcrp.VerifyToken
	tokenExtractor      TokenExtractor
	credentialsOptional bool
	exclusionChecker    func(fullMethod string) bool
	logger              oidcrp.Logger
}

// Option configures the Interceptor.
type Option func(*Interceptor)

// WithTokenExtractor replaces the metadata token extractor.
func WithTokenExtractor(e TokenExtractor) Option {
	return func(i *Interceptor) {
		if e != nil {
			i.tokenExtractor = e
		}
	}
}

// WithCredentialsOptional lets calls without a token through
// unauthenticated.
func WithCredentialsOptional(value bool) Option {
	return func(i *Interceptor) { i.credentialsOptional = value }
}

// WithExclusionChecker skips verification for methods the checker
// accepts, e.g. health checks.
func WithExclusionChecker(checker func(fullMethod string) bool) Option {
	return func(i *Interceptor) { i.exclusionChecker = checker }
}

// WithLogger sets the logger.
func WithLogger(l oidcrp.Logger) Option {
	return func(i *Interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

// New builds an Interceptor around the given verification function,
// typically Verifier.Verify.
func New(verify oidcrp.VerifyToken, opts ...Option) *Interceptor {
	i := &Interceptor{
		verifyToken:    verify,
		tokenExtractor: MetadataTokenExtractor,
		logger:         oidcrp.NoopLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// authenticate extracts and verifies the token, returning a context
// carrying the claims.
func (i *Interceptor) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	if i.exclusionChecker != nil && i.exclusionChecker(fullMethod) {
		return ctx, nil
	}

	token, err := i.tokenExtractor(ctx)
	if err != nil {
		i.logger.Warnf("could not extract token for %s: %v", fullMethod, err)
		return nil, status.Errorf(codes.Unauthenticated, "error extracting token: %v", err)
	}

	if token == "" {
		if i.credentialsOptional {
			return ctx, nil
		}
		return nil, status.Error(codes.Unauthenticated, "token missing")
	}

	claims, err := i.verifyToken(ctx, token)
	if err != nil {
		i.logger.Debugf("token verification failed for %s: %v", fullMethod, err)
		return nil, status.Errorf(codes.Unauthenticated, "token invalid: %v", err)
	}

	return oidcrp.NewContextWithClaims(ctx, claims), nil
}

// UnaryServerInterceptor returns a unary interceptor enforcing token
// verification.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		newCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// StreamServerInterceptor returns a stream interceptor enforcing token
// verification.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: newCtx})
	}
}

// wrappedStream overrides the stream context with the authenticated one.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *wrappedStream) Context() context.Context { return s.ctx }
