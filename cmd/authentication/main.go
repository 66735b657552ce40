// This is a **mock authentication service**, designed to provide JWT tokens
// for the gbizinfo tool routes when JWT_SECRET is set.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/auth"
	"go.uber.org/zap"
)

const (
	defaultPort    = "8081"       // Default port for the authentication service
	defaultSecret  = "jwt_secret" // Secret for signing JWT
	defaultSubject = "gbizinfo-cli"
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenHandler struct {
	secret string
	ttl    time.Duration
	logger *zap.Logger
}

// ServeHTTP issues a token for the subject in ?sub=, or the default one.
func (h *tokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub := r.URL.Query().Get("sub")
	if sub == "" {
		sub = defaultSubject
	}

	token, err := auth.GenerateToken(sub, h.secret, h.ttl)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	resp := TokenResponse{Token: token, ExpiresAt: time.Now().Add(h.ttl).UTC()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode token", zap.Error(err))
	}
	h.logger.Info("token issued", zap.String("sub", sub))
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = defaultSecret
	}
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.Handle("/token", &tokenHandler{secret: secret, ttl: auth.DefaultTokenTTL, logger: logger.Named("auth_service")})

	logger.Info("Authentication service running", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Fatal("authentication service stopped", zap.Error(err))
	}
}
