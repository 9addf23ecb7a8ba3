package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"vitisco-room-service/internal/domain"
)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	ID          int64     `bun:"id,pk,autoincrement"`
	RoomCode    string    `bun:"room_code"`
	PlayerID    string    `bun:"player_id"`
	DisplayName string    `bun:"display_name"`
	Score       int       `bun:"score"`
	CompletedAt time.Time `bun:"completed_at"`
}

// ResultStore persists game results through bun.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Record(ctx context.Context, result domain.GameResult) error {
	row := gameResultRow{
		RoomCode:    result.RoomCode,
		PlayerID:    result.PlayerID,
		DisplayName: result.DisplayName,
		Score:       result.Score,
		CompletedAt: result.CompletedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// Leaderboard sums recorded scores per player, highest first.
func (s *ResultStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []domain.LeaderboardEntry
	err := s.db.NewSelect().
		Model((*gameResultRow)(nil)).
		ColumnExpr("player_id").
		ColumnExpr("max(display_name) AS display_name").
		ColumnExpr("sum(score) AS score").
		GroupExpr("player_id").
		OrderExpr("score DESC").
		Limit(limit).
		Scan(ctx, &entries)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return entries, nil
}
