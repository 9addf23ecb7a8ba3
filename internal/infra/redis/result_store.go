package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vitisco-room-service/internal/domain"
)

const (
	leaderboardKey = "quiz:leaderboard"
	namesKey       = "quiz:leaderboard:names"
)

// ResultStore accumulates scores in a sorted set, one member per player.
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(client *redis.Client) *ResultStore {
	return &ResultStore{client: client}
}

func (s *ResultStore) Record(ctx context.Context, result domain.GameResult) error {
	pipe := s.client.Pipeline()
	pipe.ZIncrBy(ctx, leaderboardKey, float64(result.Score), result.PlayerID)
	pipe.HSet(ctx, namesKey, result.PlayerID, result.DisplayName)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *ResultStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	names, _ := s.client.HGetAll(ctx, namesKey).Result()

	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		playerID, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    playerID,
			DisplayName: names[playerID],
			Score:       int(m.Score),
		})
	}
	return entries, nil
}
