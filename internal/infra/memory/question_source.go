package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vitisco-room-service/internal/domain"
)

// BankLoader fetches the full question bank from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// StaticQuestionSource serves random picks from a fixed bank (demos/tests).
type StaticQuestionSource struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: questions,
	}
}

func (s *StaticQuestionSource) Random(_ context.Context, n int) ([]domain.Question, error) {
	if len(s.questions) == 0 {
		return nil, domain.ErrQuestionUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sample(s.rnd, s.questions, n), nil
}

// LoadBank exposes the full bank so the source doubles as a cache loader.
func (s *StaticQuestionSource) LoadBank(context.Context) ([]domain.Question, error) {
	if len(s.questions) == 0 {
		return nil, domain.ErrQuestionUnavailable
	}
	return s.questions, nil
}

// CachedQuestionSource keeps the question bank in memory with a TTL so every
// game start doesn't hit the backing store. Concurrent misses collapse into
// one load via singleflight.
type CachedQuestionSource struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.Mutex
	rnd       *rand.Rand
	bank      []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionSource(loader BankLoader, ttl time.Duration) *CachedQuestionSource {
	return &CachedQuestionSource{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedQuestionSource) Random(ctx context.Context, n int) ([]domain.Question, error) {
	bank, err := c.bankFor(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return sample(c.rnd, bank, n), nil
}

func (c *CachedQuestionSource) bankFor(ctx context.Context) ([]domain.Question, error) {
	now := c.clock()

	c.mu.Lock()
	if c.bank != nil && c.expiresAt.After(now) {
		bank := c.bank
		c.mu.Unlock()
		return bank, nil
	}
	c.mu.Unlock()

	result, err, _ := c.sf.Do("bank", func() (interface{}, error) {
		now := c.clock()
		c.mu.Lock()
		if c.bank != nil && c.expiresAt.After(now) {
			bank := c.bank
			c.mu.Unlock()
			return bank, nil
		}
		c.mu.Unlock()

		bank, err := c.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.bank = bank
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedQuestionSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// sample returns up to n distinct questions in random order.
func sample(rnd *rand.Rand, bank []domain.Question, n int) []domain.Question {
	idx := rnd.Perm(len(bank))
	if n > len(bank) {
		n = len(bank)
	}
	picked := make([]domain.Question, 0, n)
	for _, i := range idx[:n] {
		picked = append(picked, bank[i])
	}
	return picked
}
