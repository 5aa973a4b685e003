package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures bearer-token authentication for the facade.
type AuthConfig struct {
	// Enabled enables authentication. If false, every request is allowed.
	Enabled bool

	// JWTSecret is the shared secret for HS256 JWT validation.
	JWTSecret string

	// Issuer is the expected "iss" claim, checked only when non-empty.
	Issuer string
}

// requireAuth rejects any request without a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			err = s.validateJWT(token)
		}
		if err != nil {
			s.logger.Warn("unauthorized request", "path", r.URL.Path, "err", err)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("Authorization header must be 'Bearer <token>'")
	}
	return token, nil
}

// validateJWT checks the token signature and, when configured, the issuer.
func (s *Server) validateJWT(tokenString string) error {
	if s.auth.JWTSecret == "" {
		return errors.New("no JWT secret configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}

	if s.auth.Issuer != "" {
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return errors.New("invalid token claims")
		}
		issuer, _ := claims.GetIssuer()
		if issuer != s.auth.Issuer {
			return fmt.Errorf("invalid issuer: expected %s, got %s", s.auth.Issuer, issuer)
		}
	}
	return nil
}
