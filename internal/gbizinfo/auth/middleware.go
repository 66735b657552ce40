package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

var errMissingHeader = errors.New("authorization header required")

// HTTPMiddleware requires a valid bearer token on every route except the
// health check and the public tool listing.
func HTTPMiddleware(next http.Handler, jwtSecret string) http.Handler {
	secret := []byte(jwtSecret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractTokenFromHeader(r)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		claims, err := parseToken(token, secret)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	return bearerToken(header)
}

func isPublic(r *http.Request) bool {
	return r.URL.Path == "/healthz" || (r.Method == http.MethodGet && r.URL.Path == "/api/tools")
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
