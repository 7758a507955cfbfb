package service

import (
	"errors"
	"fmt"
	"time"

	"filtro/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Authenticator interface {
	// Login checks the credentials and returns a signed bearer token.
	Login(username, password string) (string, error)
	// Verify parses a bearer token and returns the identity it was issued for.
	Verify(token string) (string, error)
}

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type TokenService struct {
	users  map[string]string
	secret []byte
	ttl    time.Duration
}

func NewTokenService() (*TokenService, error) {
	var users map[string]string

	err := viper.UnmarshalKey("auth.users", &users)
	if err != nil {
		return nil, errors.New("failed to load user credentials")
	}

	secret := viper.GetString("auth.jwt_secret")
	if secret == "" {
		return nil, errors.New("auth.jwt_secret is not set")
	}

	ttl := viper.GetDuration("auth.token_ttl")
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	log.Info().Int("users", len(users)).Dur("tokenTTL", ttl).Msg("token service ready")

	return &TokenService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

func (s *TokenService) Login(username, password string) (string, error) {
	stored, ok := s.users[username]
	if !ok || stored != password {
		return "", domain.ErrInvalidCredentials
	}

	now := time.Now()
	claims := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

func (s *TokenService) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token claims")
	}

	return claims.Username, nil
}
