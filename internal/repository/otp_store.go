package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type ChallengeResult int

const (
	ChallengeMissing ChallengeResult = iota
	ChallengeMatched
	ChallengeMismatch
	ChallengeExhausted
)

// verifyChallenge consumes the challenge on a match and counts a failed
// attempt otherwise, deleting it once the limit is hit. It returns -1 when
// there is no live challenge, 0 on a match, or the attempts used so far.
var verifyChallenge = redis.NewScript(`
local h = redis.call('HGET', KEYS[1], 'hash')
if not h then
	return -1
end
if h == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 0
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if attempts >= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
end
return attempts
`)

// ChallengeStore keeps hashed one-time codes in Redis. Keys are namespaced by
// purpose so a sign-in code cannot reset a password.
type ChallengeStore struct {
	rdb *redis.Client
}

func NewChallengeStore(rdb *redis.Client) *ChallengeStore {
	return &ChallengeStore{rdb: rdb}
}

func challengeKey(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func cooldownKey(purpose, email string) string {
	return fmt.Sprintf("otp:cooldown:%s:%s", purpose, email)
}

// AcquireCooldown returns false while a previous code is still cooling down.
func (s *ChallengeStore) AcquireCooldown(ctx context.Context, purpose, email string, d time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, cooldownKey(purpose, email), 1, d).Result()
	if err != nil {
		return false, fmt.Errorf("acquire otp cooldown: %w", err)
	}
	return ok, nil
}

// Save replaces any live challenge for the email.
func (s *ChallengeStore) Save(ctx context.Context, purpose, email, codeHash string, ttl time.Duration) error {
	key := challengeKey(purpose, email)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "hash", codeHash, "attempts", 0)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save otp challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Verify(ctx context.Context, purpose, email, codeHash string, maxAttempts int) (ChallengeResult, error) {
	n, err := verifyChallenge.Run(ctx, s.rdb, []string{challengeKey(purpose, email)}, codeHash, maxAttempts).Int()
	if err != nil {
		return ChallengeMissing, fmt.Errorf("verify otp challenge: %w", err)
	}
	switch {
	case n < 0:
		return ChallengeMissing, nil
	case n == 0:
		return ChallengeMatched, nil
	case n >= maxAttempts:
		return ChallengeExhausted, nil
	default:
		return ChallengeMismatch, nil
	}
}
