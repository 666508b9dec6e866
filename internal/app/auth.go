// internal/app/auth.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

var ErrUnauthorized = errors.New("unauthorized")

type Auth struct {
	enabled     bool
	sessions    *TokenManager
	tokenHeader string
}

func NewAuth(config *Config) (*Auth, error) {
	if !config.Server.EnableAuth {
		return &Auth{enabled: false, tokenHeader: config.Auth.TokenHeader}, nil
	}

	client, err := connectRedis(config.Auth.RedisURL)
	if err != nil {
		return nil, err
	}

	return &Auth{
		enabled:     true,
		sessions:    NewTokenManager(client, config.Auth.SessionKeyTemplate),
		tokenHeader: config.Auth.TokenHeader,
	}, nil
}

// NewAuthWithSessions enables auth over an existing session manager.
func NewAuthWithSessions(sessions *TokenManager, tokenHeader string) *Auth {
	if tokenHeader == "" {
		tokenHeader = "Authorization"
	}
	return &Auth{enabled: true, sessions: sessions, tokenHeader: tokenHeader}
}

func connectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (a *Auth) Enabled() bool       { return a.enabled }
func (a *Auth) TokenHeader() string { return a.tokenHeader }

func (a *Auth) Sessions() *TokenManager { return a.sessions }

func (a *Auth) Close() error {
	if a.sessions != nil {
		return a.sessions.Close()
	}
	return nil
}

// Authenticate checks a "Bearer <token>" header value against the session
// store. With auth disabled every request passes and the session is nil.
func (a *Auth) Authenticate(ctx context.Context, header string) (*models.Session, error) {
	if !a.enabled {
		return nil, nil
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return nil, fmt.Errorf("%w: invalid authorization header format", ErrUnauthorized)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}

	session, err := a.sessions.Lookup(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		logger.Debug.Printf("Session not found for token %s...", mask(token))
		return nil, fmt.Errorf("%w: unknown session", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if err := a.sessions.Touch(ctx, token); err != nil {
		logger.Error.Printf("Failed to touch session of %s: %v", session.Manager, err)
	}
	return session, nil
}

func mask(token string) string {
	if len(token) <= len(tokenPrefix)+4 {
		return "***"
	}
	return token[:len(tokenPrefix)+4]
}
