package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emotibot/emotibot/config"
)

const JwtAlg = "HS256"

var ErrSecretNotSet = errors.New(
	"auth secret not set. Ensure EMOTIBOT_AUTH_SECRET is set in your environment",
)

// GenerateToken signs a long-lived API token with the configured secret.
func GenerateToken(cfg *config.Config) (string, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return "", ErrSecretNotSet
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"sub": "emotibot",
	})
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("error generating auth token: %w", err)
	}

	return tokenString, nil
}

// JWTVerifier returns middleware that extracts and verifies bearer tokens.
// Pair it with jwtauth.Authenticator to reject unauthenticated requests.
func JWTVerifier(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return nil, ErrSecretNotSet
	}
	tokenAuth := jwtauth.New(JwtAlg, secret, nil)
	return jwtauth.Verifier(tokenAuth), nil
}
