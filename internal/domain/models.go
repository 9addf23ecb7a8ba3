package domain

import "time"

// RoomStatus tracks where a room is in its lifecycle.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
// CorrectOptionID never leaves the server; outbound payloads carry QuestionView.
type Question struct {
	ID              string   `json:"id"`
	Prompt          string   `json:"prompt"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	MediaURL        string   `json:"mediaUrl,omitempty"`
}

// View strips the correct option from a question for broadcast.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  q.Options,
		MediaURL: q.MediaURL,
	}
}

// QuestionView is the client-safe shape of a question.
type QuestionView struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options"`
	MediaURL string   `json:"mediaUrl,omitempty"`
}

// PlayerView is a snapshot-friendly view of a room participant.
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// FinalScore is one row of the end-of-game scoreboard.
type FinalScore struct {
	PlayerID string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// GameResult is the durable record of a player's final score for one room.
type GameResult struct {
	RoomCode    string    `json:"roomCode"`
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// LeaderboardEntry aggregates recorded results for one player.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}
