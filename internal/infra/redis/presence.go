package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence mirrors active room codes into Redis, best effort. Keys expire on
// their own if an instance dies without cleaning up.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	return &Presence{client: client, ttl: ttl}
}

func (p *Presence) Mark(code string) {
	_ = p.client.Set(context.Background(), p.key(code), "1", p.ttl).Err()
}

func (p *Presence) Clear(code string) {
	_ = p.client.Del(context.Background(), p.key(code)).Err()
}

func (p *Presence) key(code string) string {
	return "room:active:" + code
}
