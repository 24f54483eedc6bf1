package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL is the access token lifetime in minutes when the
// config leaves it unset.
const defaultTokenTTL = 60

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin authenticates the dashboard user and returns a JWT token.
//
// HomePulse is single-user: the dashboard authenticates with the admin
// password from config (HOMEPULSE_ADMIN_PASSWORD).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if s.secCfg.AdminPassword == "" {
		writeUnauthorized(w, "admin password not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.secCfg.AdminPassword)) != 1 {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Duration(ttl) * time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secCfg.JWT.Secret))
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60, // seconds
	})
}

// validateToken parses and verifies a JWT issued by handleLogin.
//
// Returns:
//   - error: If the token is malformed, expired, or signed with the
//     wrong key or algorithm
func (s *Server) validateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secCfg.JWT.Secret), nil
	})
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
