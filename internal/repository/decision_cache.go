package repository

import (
	"context"
	"errors"
	"time"

	"mindcascade/internal/domain"

	redis "github.com/redis/go-redis/v9"
)

// DecisionCache keeps each session's launch decision in Redis so every
// instance serves the same answer for the session's lifetime.
type DecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDecisionCache returns a cache over client. A nil client yields a cache
// that remembers nothing.
func NewDecisionCache(client *redis.Client, ttl time.Duration) *DecisionCache {
	return &DecisionCache{client: client, ttl: ttl}
}

func decisionKey(sessionID string) string {
	return "gate:" + sessionID
}

// Get returns the stored decision, or false when none is stored.
func (c *DecisionCache) Get(ctx context.Context, sessionID string) (domain.Decision, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}
	v, err := c.client.Get(ctx, decisionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	d := domain.Decision(v)
	if d != domain.DecisionNormal && d != domain.DecisionAlternate {
		return "", false, nil
	}
	return d, true, nil
}

// Put stores d unless a decision is already stored, and returns the decision
// that ends up stored.
func (c *DecisionCache) Put(ctx context.Context, sessionID string, d domain.Decision) (domain.Decision, error) {
	if c == nil || c.client == nil {
		return d, nil
	}
	key := decisionKey(sessionID)
	ok, err := c.client.SetNX(ctx, key, string(d), c.ttl).Result()
	if err != nil {
		return d, err
	}
	if ok {
		return d, nil
	}
	v, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return d, err
	}
	return domain.Decision(v), nil
}
