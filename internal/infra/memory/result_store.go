package memory

import (
	"context"
	"sort"
	"sync"

	"vitisco-room-service/internal/domain"
)

// ResultStore keeps game results in memory. The default when neither
// Postgres nor Redis is configured.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.GameResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Record(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Leaderboard aggregates total score per player, highest first.
func (s *ResultStore) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.LeaderboardEntry)
	for _, r := range s.results {
		entry, ok := totals[r.PlayerID]
		if !ok {
			entry = &domain.LeaderboardEntry{PlayerID: r.PlayerID, DisplayName: r.DisplayName}
			totals[r.PlayerID] = entry
		}
		entry.Score += r.Score
		entry.DisplayName = r.DisplayName
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for _, entry := range totals {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Results returns a copy of everything recorded, for tests.
func (s *ResultStore) Results() []domain.GameResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GameResult, len(s.results))
	copy(out, s.results)
	return out
}
