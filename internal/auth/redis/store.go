// Package redis provides a session store backed by Redis. Sessions are
// stored as JSON values with a TTL matching the session expiry, so stale
// entries fall out without a sweeper. A per-user set of session ids makes
// bulk revocation a bounded operation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/clock"
)

const (
	sessionKeyPrefix  = "portal:session:"
	userIndexPrefix   = "portal:user_sessions:"
	userIndexPattern  = "portal:user_sessions:*"
	indexScanPageSize = 256
)

type store struct {
	rdb   *redis.Client
	clock clock.Clock
}

// New builds a domain.SessionRepository on top of the given Redis client.
func New(rdb *redis.Client, clk clock.Clock) domain.SessionRepository {
	return &store{rdb: rdb, clock: clk}
}

type sessionRecord struct {
	ID             string       `json:"id"`
	UserID         snowflake.ID `json:"user_id"`
	CSRFToken      string       `json:"csrf_token"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
	IPAddress      string       `json:"ip_address,omitempty"`
	UserAgent      string       `json:"user_agent,omitempty"`
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userIndexKey(userID snowflake.ID) string {
	return userIndexPrefix + userID.String()
}

func (s *store) CreateSession(ctx context.Context, session *domain.Session) error {
	rec := sessionRecord{
		ID:             session.ID,
		UserID:         session.UserID,
		CSRFToken:      session.CSRFToken,
		CreatedAt:      session.CreatedAt,
		ExpiresAt:      session.ExpiresAt,
		LastActivityAt: session.LastActivityAt,
		IPAddress:      session.IPAddress,
		UserAgent:      session.UserAgent,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return domain.ErrSessionExpired
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, userIndexKey(session.UserID), session.ID)
	pipe.Expire(ctx, userIndexKey(session.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	payload, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &domain.Session{
		ID:             rec.ID,
		UserID:         rec.UserID,
		CSRFToken:      rec.CSRFToken,
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.ExpiresAt,
		LastActivityAt: rec.LastActivityAt,
		IPAddress:      rec.IPAddress,
		UserAgent:      rec.UserAgent,
	}, nil
}

func (s *store) TouchSession(ctx context.Context, id string, at time.Time) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	session.LastActivityAt = at

	rec := sessionRecord{
		ID:             session.ID,
		UserID:         session.UserID,
		CSRFToken:      session.CSRFToken,
		CreatedAt:      session.CreatedAt,
		ExpiresAt:      session.ExpiresAt,
		LastActivityAt: session.LastActivityAt,
		IPAddress:      session.IPAddress,
		UserAgent:      session.UserAgent,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(id), payload, redis.KeepTTL).Err()
}

func (s *store) DeleteSession(ctx context.Context, id string) (bool, error) {
	session, err := s.GetSession(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, userIndexKey(session.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

func (s *store) DeleteSessionsByUser(ctx context.Context, userID snowflake.ID) (int64, error) {
	ids, err := s.rdb.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}

	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, keys...)
	pipe.Del(ctx, userIndexKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return del.Val(), nil
}

// DeleteExpiredSessions is a no-op for the Redis store since keys carry a
// TTL and expire on their own. The index sets expire alongside them.
func (s *store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *store) ListActiveSessionIDs(ctx context.Context, now time.Time) (map[snowflake.ID][]string, error) {
	out := make(map[snowflake.ID][]string)

	iter := s.rdb.Scan(ctx, 0, userIndexPattern, indexScanPageSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw := strings.TrimPrefix(key, userIndexPrefix)
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		ids, err := s.rdb.SMembers(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		// Index sets can lag behind key expiry. Keep only ids whose
		// session key is still live.
		for _, id := range ids {
			exists, err := s.rdb.Exists(ctx, sessionKey(id)).Result()
			if err != nil {
				return nil, err
			}
			if exists > 0 {
				out[snowflake.ID(uid)] = append(out[snowflake.ID(uid)], id)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
