package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"vitisco-room-service/internal/domain"
)

// QuestionSource selects random question rows from Postgres.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) Random(ctx context.Context, n int) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt, options, correct_option_id, COALESCE(media_url, '')
		 FROM questions ORDER BY random() LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// LoadBank returns the full bank so a cache layer can sample locally.
func (s *QuestionSource) LoadBank(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt, options, correct_option_id, COALESCE(media_url, '') FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

type questionRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanQuestions(rows questionRows) ([]domain.Question, error) {
	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var rawOptions []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &rawOptions, &q.CorrectOptionID, &q.MediaURL); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}
