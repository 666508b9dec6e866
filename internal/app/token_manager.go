package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

const (
	timeFormat  = "2006-01-02 15:04:05"
	tokenPrefix = "sk-mess-"

	DefaultSessionKeyTemplate = "session:{token}"
)

var ErrSessionNotFound = errors.New("session not found")

// TokenManager issues and looks up manager sessions stored as redis hashes.
type TokenManager struct {
	redis       *redis.Client
	keyTemplate string
}

func NewTokenManager(redis *redis.Client, keyTemplate string) *TokenManager {
	if keyTemplate == "" {
		keyTemplate = DefaultSessionKeyTemplate
	}
	return &TokenManager{redis: redis, keyTemplate: keyTemplate}
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

func (tm *TokenManager) key(token string) string {
	return strings.ReplaceAll(tm.keyTemplate, "{token}", token)
}

// Issue creates a session for manager. A zero ttl never expires.
func (tm *TokenManager) Issue(ctx context.Context, manager string, ttl time.Duration) (*models.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	key := tm.key(token)

	pipe := tm.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"token":                 token,
		"manager":               manager,
		"request_count":         0,
		"last_request_dttm_utc": now.Format(timeFormat),
		"created_dttm_utc":      now.Format(timeFormat),
	})
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		Token:           token,
		Manager:         manager,
		LastRequestTime: now.Truncate(time.Second),
		CreatedTime:     now.Truncate(time.Second),
	}, nil
}

// Lookup returns the session for token or ErrSessionNotFound.
func (tm *TokenManager) Lookup(ctx context.Context, token string) (*models.Session, error) {
	values, err := tm.redis.HGetAll(ctx, tm.key(token)).Result()
	if err == redis.Nil || (err == nil && len(values) == 0) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if values["token"] != token {
		return nil, ErrSessionNotFound
	}

	lastReqTime, _ := time.Parse(timeFormat, values["last_request_dttm_utc"])
	createdTime, _ := time.Parse(timeFormat, values["created_dttm_utc"])
	reqCount, _ := strconv.Atoi(values["request_count"])

	return &models.Session{
		Token:           values["token"],
		Manager:         values["manager"],
		RequestCount:    reqCount,
		LastRequestTime: lastReqTime,
		CreatedTime:     createdTime,
	}, nil
}

// Touch records one more authenticated request on the session.
func (tm *TokenManager) Touch(ctx context.Context, token string) error {
	key := tm.key(token)

	pipe := tm.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "request_count", 1)
	pipe.HSet(ctx, key, "last_request_dttm_utc", time.Now().UTC().Format(timeFormat))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update session stats: %w", err)
	}
	return nil
}

func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	n, err := tm.redis.Del(ctx, tm.key(token)).Result()
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// List returns every live session.
func (tm *TokenManager) List(ctx context.Context) ([]*models.Session, error) {
	// FIXME: scans are expensive
	pattern := tm.key("*")
	iter := tm.redis.Scan(ctx, 0, pattern, 0).Iterator()

	var sessions []*models.Session
	for iter.Next(ctx) {
		token := strings.TrimPrefix(iter.Val(), tm.key(""))
		session, err := tm.Lookup(ctx, token)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (tm *TokenManager) Close() error {
	if tm.redis != nil {
		return tm.redis.Close()
	}
	return nil
}
