package app

import (
	"context"
	"log"
	"time"

	"vitisco-room-service/internal/domain"
)

// GameConfig holds the tunable rules of a game. Zero values fall back to the
// defaults the original product shipped with: 2 players, 5 questions, 20
// second rounds, 3 second reveal, 10 base points plus half the remaining time.
type GameConfig struct {
	Capacity      int
	QuestionCount int
	RoundSeconds  int
	TickInterval  time.Duration
	SettleDelay   time.Duration
	BasePoints    int
	BonusFactor   float64
}

func (c GameConfig) withDefaults() GameConfig {
	if c.Capacity <= 0 {
		c.Capacity = 2
	}
	if c.QuestionCount <= 0 {
		c.QuestionCount = 5
	}
	if c.RoundSeconds <= 0 {
		c.RoundSeconds = 20
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.BasePoints <= 0 {
		c.BasePoints = 10
	}
	if c.BonusFactor <= 0 {
		c.BonusFactor = 0.5
	}
	return c
}

// QuestionSource supplies a random question set at game start.
type QuestionSource interface {
	Random(ctx context.Context, n int) ([]domain.Question, error)
}

// ResultStore durably records final scores and serves the leaderboard query.
// Record is invoked outside the game loop and is allowed to fail.
type ResultStore interface {
	Record(ctx context.Context, result domain.GameResult) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// RoomService ties the registry to question content and result persistence.
type RoomService struct {
	cfg       GameConfig
	registry  *Registry
	questions QuestionSource
	results   ResultStore
}

func NewRoomService(cfg GameConfig, questions QuestionSource, results ResultStore, presence PresenceMarker) *RoomService {
	s := &RoomService{
		cfg:       cfg.withDefaults(),
		questions: questions,
		results:   results,
	}
	s.registry = NewRegistry(s.cfg, presence, s.publishResults)
	return s
}

// Registry exposes the room registry, mainly for tests and diagnostics.
func (s *RoomService) Registry() *Registry { return s.registry }

// CreateRoom opens a new room with the connection as host.
func (s *RoomService) CreateRoom(connID, name string, sink chan<- domain.Event, requestedCode string) (*Room, error) {
	return s.registry.CreateRoom(connID, name, sink, requestedCode)
}

// JoinRoom adds the connection to an existing waiting room.
func (s *RoomService) JoinRoom(code, connID, name string, sink chan<- domain.Event) (*Room, error) {
	return s.registry.JoinRoom(code, connID, name, sink)
}

// JoinRandom matches the connection into any waiting room, creating one if
// nothing is joinable.
func (s *RoomService) JoinRandom(connID, name string, sink chan<- domain.Event) (*Room, error) {
	return s.registry.JoinRandom(connID, name, sink)
}

// StartGame validates the request, fetches a fresh question set and kicks off
// the first round.
func (s *RoomService) StartGame(ctx context.Context, code, connID string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := room.canStart(connID); err != nil {
		return err
	}

	questions, err := s.questions.Random(ctx, s.cfg.QuestionCount)
	if err != nil {
		log.Printf("question fetch failed for room %s: %v", code, err)
		return domain.ErrQuestionUnavailable
	}
	if len(questions) == 0 {
		return domain.ErrQuestionUnavailable
	}
	return room.startGame(connID, questions)
}

// SubmitAnswer scores one answer for the current round.
func (s *RoomService) SubmitAnswer(code, connID, optionID string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.submitAnswer(connID, optionID)
}

// SendMessage relays a chat line to the room.
func (s *RoomService) SendMessage(code, connID, text string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.chat(connID, text)
}

// Disconnect handles a transport-level connection loss.
func (s *RoomService) Disconnect(connID string) {
	s.registry.RemovePlayer(connID)
}

// Leaderboard serves the aggregate of recorded results.
func (s *RoomService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.results.Leaderboard(ctx, limit)
}

// publishResults runs on a detached goroutine once a room finishes. Failed
// writes are logged and never retried; the in-memory outcome already reached
// the players. The room is deleted afterwards regardless.
func (s *RoomService) publishResults(code string, results []domain.GameResult) {
	for _, result := range results {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.results.Record(ctx, result); err != nil {
			log.Printf("result write failed for room %s player %s: %v", result.RoomCode, result.PlayerID, err)
		}
		cancel()
	}
	s.registry.DeleteRoom(code)
}
