// Package auth provides a gRPC unary interceptor, an HTTP middleware and JWT
// token helpers securing the tool surface.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// CallToolMethod is the full gRPC method name of the tool dispatcher.
const CallToolMethod = "/gbizinfo.v1.ToolService/CallTool"

const bearerPrefix = "Bearer "

var (
	errMissingBearer = errors.New("invalid authorization format: missing Bearer prefix")
	errEmptyToken    = errors.New("invalid authorization format: empty token")
)

type claimsKey struct{}

// Interceptor checks HS256 bearer tokens on a fixed set of gRPC methods.
type Interceptor struct {
	secret    []byte
	protected map[string]bool
}

// NewAuthInterceptor protects the given full method names, or only CallTool
// when none are given. Listing tools stays public.
func NewAuthInterceptor(jwtSecret string, methods ...string) *Interceptor {
	if len(methods) == 0 {
		methods = []string{CallToolMethod}
	}
	protected := make(map[string]bool, len(methods))
	for _, m := range methods {
		protected[m] = true
	}
	return &Interceptor{secret: []byte(jwtSecret), protected: protected}
}

// Unary returns the interceptor to install with grpc.UnaryInterceptor.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !i.protected[info.FullMethod] {
			return handler(ctx, req)
		}
		ctx, err := i.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (i *Interceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata missing")
	}
	token, err := extractTokenFromMetadata(md)
	if err != nil {
		return nil, err
	}
	claims, err := parseToken(token, i.secret)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return withClaims(ctx, claims), nil
}

// Subject returns the "sub" claim of an authenticated request, or "" for
// anonymous ones.
func Subject(ctx context.Context) string {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.RegisteredClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}

func withClaims(ctx context.Context, claims *jwt.RegisteredClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func extractTokenFromMetadata(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization header missing")
	}
	token, err := bearerToken(values[0])
	if err != nil {
		return "", status.Error(codes.Unauthenticated, err.Error())
	}
	return token, nil
}

func bearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errMissingBearer
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// validateToken parses tokenString with secret and returns its claims.
func validateToken(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	return parseToken(tokenString, []byte(secret))
}

// parseToken accepts only HS256 tokens carrying an expiry.
func parseToken(tokenString string, secret []byte) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
