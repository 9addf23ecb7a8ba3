package domain

// Event is the outbound wire envelope delivered to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Outbound event types. Within one room every client observes broadcasts in
// the same order; private events go only to the connection that triggered them.
const (
	EventRoomCreated    = "room-created"
	EventRoomJoined     = "room-joined" // private
	EventPlayersUpdated = "players-updated"
	EventRoomReady      = "room-ready"
	EventGameStarted    = "game-started"
	EventNextQuestion   = "next-question"
	EventTimeUpdate     = "time-update"
	EventQuestionEnded  = "question-ended"
	EventAnswerResult   = "answer-result" // private
	EventGameFinished   = "game-finished"
	EventPlayerLeft     = "player-left"
	EventGameEnded      = "game-ended"
	EventNewMessage     = "new-message"
	EventError          = "error" // private
)

// RoomPayload accompanies room-created and room-joined.
type RoomPayload struct {
	RoomCode string       `json:"roomCode"`
	Players  []PlayerView `json:"players"`
}

// PlayersPayload accompanies players-updated and player-left.
type PlayersPayload struct {
	Players []PlayerView `json:"players"`
}

// QuestionPayload accompanies game-started and next-question.
type QuestionPayload struct {
	CurrentQuestion QuestionView `json:"currentQuestion"`
	QuestionNumber  int          `json:"questionNumber"`
	TotalQuestions  int          `json:"totalQuestions"`
	TimeLeft        int          `json:"timeLeft"`
}

// TimePayload accompanies time-update ticks.
type TimePayload struct {
	TimeLeft int `json:"timeLeft"`
}

// RevealPayload accompanies question-ended.
type RevealPayload struct {
	CorrectOptionID string `json:"correctOptionId"`
}

// AnswerResultPayload is the private outcome of one submission.
type AnswerResultPayload struct {
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
}

// ScoresPayload accompanies game-finished.
type ScoresPayload struct {
	Scores []FinalScore `json:"scores"`
}

// ReasonPayload accompanies game-ended aborts.
type ReasonPayload struct {
	Reason string `json:"reason"`
}

// ChatPayload accompanies new-message broadcasts.
type ChatPayload struct {
	ID     int64  `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// ErrorPayload carries a caller-facing rejection.
type ErrorPayload struct {
	Message string `json:"message"`
}
