package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	validSecret   = "test-secret"
	invalidSecret = "wrong-secret"
	userID        = "test-user"
	listTools     = "/gbizinfo.v1.ToolService/ListTools"
)

func signToken(secret string, expiresAt time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": expiresAt.Unix(),
	})
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func bearerContext(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

// echoSubject answers with the authenticated subject.
func echoSubject(ctx context.Context, _ interface{}) (interface{}, error) {
	return Subject(ctx), nil
}

func TestAuthInterceptor(t *testing.T) {
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID}).SignedString([]byte(validSecret))

	tests := []struct {
		name     string
		method   string
		ctx      context.Context
		wantCode codes.Code
		wantSub  string
	}{
		{"valid token", CallToolMethod, bearerContext(signToken(validSecret, time.Now().Add(time.Hour))), codes.OK, userID},
		{"wrong secret", CallToolMethod, bearerContext(signToken(invalidSecret, time.Now().Add(time.Hour))), codes.Unauthenticated, ""},
		{"expired token", CallToolMethod, bearerContext(signToken(validSecret, time.Now().Add(-time.Hour))), codes.Unauthenticated, ""},
		{"token without expiry", CallToolMethod, bearerContext(noExpiry), codes.Unauthenticated, ""},
		{"missing metadata", CallToolMethod, context.Background(), codes.Unauthenticated, ""},
		{"listing is public", listTools, context.Background(), codes.OK, ""},
	}

	unary := NewAuthInterceptor(validSecret).Unary()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := unary(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, echoSubject)
			if tt.wantCode != codes.OK {
				assert.Equal(t, tt.wantCode, status.Code(err))
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, resp)
		})
	}
}

func TestAuthInterceptor_CustomMethods(t *testing.T) {
	unary := NewAuthInterceptor(validSecret, listTools).Unary()

	_, err := unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: listTools}, echoSubject)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: CallToolMethod}, echoSubject)
	assert.NoError(t, err)
}

func TestExtractTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name      string
		md        metadata.MD
		wantToken string
		wantCode  codes.Code
	}{
		{"valid authorization header", metadata.Pairs("authorization", "Bearer valid-token"), "valid-token", codes.OK},
		{"missing authorization header", metadata.MD{}, "", codes.Unauthenticated},
		{"malformed authorization header", metadata.Pairs("authorization", "InvalidPrefix valid-token"), "", codes.Unauthenticated},
		{"empty bearer token", metadata.Pairs("authorization", "Bearer "), "", codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractTokenFromMetadata(tt.md)
			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestGenerateToken(t *testing.T) {
	tokenString, err := GenerateToken("cli-user", validSecret, 0)
	require.NoError(t, err)

	claims, err := validateToken(tokenString, validSecret)
	require.NoError(t, err)
	assert.Equal(t, "cli-user", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), claims.ExpiresAt.Time, time.Minute)

	_, err = validateToken(tokenString, invalidSecret)
	assert.Error(t, err)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = validateToken(unsigned, validSecret)
	assert.Error(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(validSecret))
	require.NoError(t, err)
	_, err = validateToken(hs512, validSecret)
	assert.Error(t, err)
}
