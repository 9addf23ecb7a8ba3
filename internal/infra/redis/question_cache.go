package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"vitisco-room-service/internal/domain"
)

// BankLoader fetches the full question bank from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// QuestionCache keeps the serialized question bank in Redis so several
// instances share one copy. On a miss the loader runs once per instance
// (singleflight) and the bank is written back with a jittered TTL.
type QuestionCache struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader BankLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const bankKey = "quiz:questions:bank"

func (c *QuestionCache) Random(ctx context.Context, n int) ([]domain.Question, error) {
	bank, err := c.bankFor(ctx)
	if err != nil {
		return nil, err
	}
	if len(bank) == 0 {
		return nil, domain.ErrQuestionUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.rnd.Perm(len(bank))
	if n > len(bank) {
		n = len(bank)
	}
	picked := make([]domain.Question, 0, n)
	for _, i := range idx[:n] {
		picked = append(picked, bank[i])
	}
	return picked, nil
}

func (c *QuestionCache) bankFor(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := c.cached(ctx); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := c.cached(ctx); ok {
			return bank, nil
		}

		bank, err := c.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(bank)
		if err != nil {
			return nil, fmt.Errorf("marshal question bank: %w", err)
		}
		_ = c.client.Set(ctx, bankKey, raw, c.ttlWithJitter()).Err()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, bankKey).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var bank []domain.Question
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, false
	}
	return bank, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
