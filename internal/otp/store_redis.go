package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"verity/pkg/platform/sentinel"
)

// RedisStore keeps challenge state in Redis with a TTL matching the challenge
// expiry, so abandoned challenges vanish without a sweep. Codes are stored as
// bcrypt hashes only.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed challenge store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "otp:challenge:"}
}

type redisChallenge struct {
	ReferenceID       string    `json:"reference_id"`
	CodeHash          []byte    `json:"code_hash"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	Resends           int       `json:"resends"`
}

func (s *RedisStore) key(referenceID string) string {
	return s.prefix + referenceID
}

// Save persists the challenge, hashing the code if the hash is not already
// present. The key expires shortly after the challenge itself does.
func (s *RedisStore) Save(ctx context.Context, challenge *Challenge) error {
	hash := challenge.CodeHash
	if len(hash) == 0 && challenge.Code != "" {
		var err error
		hash, err = HashCode(challenge.Code)
		if err != nil {
			return err
		}
	}
	payload, err := json.Marshal(redisChallenge{
		ReferenceID:       challenge.ReferenceID,
		CodeHash:          hash,
		IssuedAt:          challenge.IssuedAt,
		ExpiresAt:         challenge.ExpiresAt,
		AttemptsRemaining: challenge.AttemptsRemaining,
		Resends:           challenge.Resends,
	})
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	ttl := time.Until(challenge.ExpiresAt) + time.Minute
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, s.key(challenge.ReferenceID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

// Find loads the challenge for a reference. The returned challenge carries
// only the code hash; Manager.Check falls back to bcrypt comparison.
func (s *RedisStore) Find(ctx context.Context, referenceID string) (*Challenge, error) {
	raw, err := s.client.Get(ctx, s.key(referenceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	var rc redisChallenge
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return &Challenge{
		ReferenceID:       rc.ReferenceID,
		CodeHash:          rc.CodeHash,
		IssuedAt:          rc.IssuedAt,
		ExpiresAt:         rc.ExpiresAt,
		AttemptsRemaining: rc.AttemptsRemaining,
		Resends:           rc.Resends,
	}, nil
}

// Delete removes the challenge. Missing keys are not an error; delete is
// called on every terminal transition and must be idempotent.
func (s *RedisStore) Delete(ctx context.Context, referenceID string) error {
	if err := s.client.Del(ctx, s.key(referenceID)).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}
