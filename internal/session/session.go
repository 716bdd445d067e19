// Package session keeps server-side login sessions in Redis.
//
// The client holds a short HS256 JWT whose jti names the Redis key
// "sess:<jti>". A session is valid only while the signature verifies, the
// token has not expired and the key still exists, so deleting the key
// revokes the session immediately.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/komix/komix-api/internal/utils"
	"github.com/redis/go-redis/v9"
)

// ErrUnauthenticated means the token is missing, invalid, expired or revoked.
var ErrUnauthenticated = errors.New("unauthenticated")

const (
	sessionPrefix     = "sess:"
	userSessionPrefix = "user_sess:"
	issuer            = "komix"
)

// Manager issues, resolves and revokes sessions.
type Manager struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager builds a Redis-backed session manager.
func NewManager(client *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{
		client: client,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of a new session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for userID and returns the token the client must present.
func (m *Manager) Create(ctx context.Context, userID int64) (string, error) {
	jti, err := utils.GenerateToken(16)
	if err != nil {
		return "", err
	}
	uid := strconv.FormatInt(userID, 10)

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, sessionPrefix+jti, uid, m.ttl)
	pipe.SAdd(ctx, userSessionPrefix+uid, jti)
	pipe.Expire(ctx, userSessionPrefix+uid, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        jti,
		Subject:   uid,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Resolve returns the user bound to token.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, error) {
	claims, err := m.parse(token)
	if err != nil {
		return 0, ErrUnauthenticated
	}

	uid, err := m.client.Get(ctx, sessionPrefix+claims.ID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrUnauthenticated
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load session: %w", err)
	}
	if uid != claims.Subject {
		return 0, ErrUnauthenticated
	}

	userID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}

// Destroy ends the session carried by token. Unknown tokens are ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, sessionPrefix+claims.ID)
	pipe.SRem(ctx, userSessionPrefix+claims.Subject, claims.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DestroyAll ends every session of userID.
func (m *Manager) DestroyAll(ctx context.Context, userID int64) error {
	setKey := userSessionPrefix + strconv.FormatInt(userID, 10)
	jtis, err := m.client.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, sessionPrefix+jti)
	}
	keys = append(keys, setKey)
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty token")
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
