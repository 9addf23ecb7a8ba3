package app

import (
	"log"
	"sort"
	"sync"
	"time"

	"vitisco-room-service/internal/domain"
)

// player is a participant owned exclusively by its room.
type player struct {
	id          string
	name        string
	isHost      bool
	hasAnswered bool
	sink        chan<- domain.Event
}

// deliver pushes an event without blocking the room. A full sink means the
// connection has stopped draining; the event is dropped rather than reordered.
func (p *player) deliver(ev domain.Event) {
	select {
	case p.sink <- ev:
	default:
		log.Printf("dropping %s event for stalled connection %s", ev.Type, p.id)
	}
}

// Room is the serialization domain for one game: every mutating operation and
// every timer callback takes the room mutex, so broadcasts leave in a single
// order and no two operations on the same code interleave.
type Room struct {
	code     string
	cfg      GameConfig
	onFinish func(code string, results []domain.GameResult)

	mu        sync.Mutex
	status    domain.RoomStatus
	players   []*player
	questions []domain.Question
	current   int
	timeLeft  int
	scores    map[string]int
	timer     *roundTimer

	// gen invalidates timer and settle callbacks that belong to an earlier
	// round; it is bumped whenever a round ends, the game aborts, or the
	// room shuts down.
	gen uint64
}

func newRoom(code string, cfg GameConfig, onFinish func(string, []domain.GameResult)) *Room {
	return &Room{
		code:   code,
		cfg:    cfg,
		status: domain.StatusWaiting,
		scores: make(map[string]int),

		onFinish: onFinish,
	}
}

// Code returns the room's shareable identifier.
func (r *Room) Code() string { return r.code }

// Status returns the current lifecycle state.
func (r *Room) Status() domain.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// PlayerCount returns the number of connected participants.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Players returns a snapshot of the participant list.
func (r *Room) Players() []domain.PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewsLocked()
}

func (r *Room) playerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.id)
	}
	return ids
}

// join appends a participant. The first player in becomes host. welcome is the
// private event type sent back to the new connection (room-created for the
// founder, room-joined otherwise).
func (r *Room) join(id, name string, sink chan<- domain.Event, welcome string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusWaiting {
		return domain.ErrRoomNotFound
	}
	if len(r.players) >= r.cfg.Capacity {
		return domain.ErrRoomFull
	}

	p := &player{id: id, name: name, isHost: len(r.players) == 0, sink: sink}
	r.players = append(r.players, p)

	p.deliver(domain.Event{Type: welcome, Payload: domain.RoomPayload{
		RoomCode: r.code,
		Players:  r.viewsLocked(),
	}})
	r.broadcastLocked(domain.Event{Type: domain.EventPlayersUpdated, Payload: domain.PlayersPayload{
		Players: r.viewsLocked(),
	}})
	if len(r.players) == r.cfg.Capacity {
		r.broadcastLocked(domain.Event{Type: domain.EventRoomReady})
	}
	return nil
}

// removePlayer drops a participant and reports whether the room is now empty.
// An empty room is shut down here; the registry deletes the handle. If the
// host left, the next remaining player is promoted. A mid-game leave aborts
// the game back to waiting.
func (r *Room) removePlayer(id string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(r.players) == 0
	}

	left := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.scores, id)

	if len(r.players) == 0 {
		r.shutdownLocked()
		return true
	}

	if left.isHost {
		r.players[0].isHost = true
	}

	r.broadcastLocked(domain.Event{Type: domain.EventPlayerLeft, Payload: domain.PlayersPayload{
		Players: r.viewsLocked(),
	}})

	if r.status == domain.StatusPlaying {
		r.cancelTimerLocked()
		r.gen++
		r.status = domain.StatusWaiting
		r.questions = nil
		r.current = 0
		r.clearAnswersLocked()
		r.broadcastLocked(domain.Event{Type: domain.EventGameEnded, Payload: domain.ReasonPayload{
			Reason: "player disconnected",
		}})
	}
	return false
}

// canStart pre-validates a start request so content is only fetched for
// requests that can succeed. startGame re-validates under the same rules.
func (r *Room) canStart(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canStartLocked(requesterID)
}

func (r *Room) canStartLocked(requesterID string) error {
	if r.status != domain.StatusWaiting {
		return domain.ErrRoomNotFound
	}
	p := r.findLocked(requesterID)
	if p == nil {
		return domain.ErrPlayerNotFound
	}
	if !p.isHost {
		return domain.ErrNotHost
	}
	if len(r.players) < r.cfg.Capacity {
		return domain.ErrInsufficientPlayers
	}
	return nil
}

// startGame moves the room to playing, seeds scores, broadcasts the first
// question and arms the round timer.
func (r *Room) startGame(requesterID string, questions []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.canStartLocked(requesterID); err != nil {
		return err
	}

	r.status = domain.StatusPlaying
	r.questions = questions
	r.current = 0
	r.scores = make(map[string]int, len(r.players))
	for _, p := range r.players {
		r.scores[p.id] = 0
	}
	r.clearAnswersLocked()

	r.broadcastLocked(domain.Event{Type: domain.EventGameStarted, Payload: domain.QuestionPayload{
		CurrentQuestion: questions[0].View(),
		QuestionNumber:  1,
		TotalQuestions:  len(questions),
		TimeLeft:        r.cfg.RoundSeconds,
	}})
	r.armTimerLocked()
	return nil
}

// submitAnswer records one answer per player per round, scoring correct
// answers by remaining time. When every player has answered the round ends
// immediately instead of waiting out the clock.
func (r *Room) submitAnswer(playerID, optionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusPlaying {
		return domain.ErrGameNotPlaying
	}
	p := r.findLocked(playerID)
	if p == nil {
		return domain.ErrPlayerNotFound
	}
	if p.hasAnswered {
		return domain.ErrAlreadyAnswered
	}
	p.hasAnswered = true

	question := r.questions[r.current]
	correct := optionID == question.CorrectOptionID
	points := 0
	if correct {
		points = r.cfg.BasePoints + int(float64(r.timeLeft)*r.cfg.BonusFactor)
		r.scores[playerID] += points
	}

	p.deliver(domain.Event{Type: domain.EventAnswerResult, Payload: domain.AnswerResultPayload{
		Correct:    correct,
		Points:     points,
		TotalScore: r.scores[playerID],
	}})

	if r.allAnsweredLocked() {
		r.endRoundLocked()
	}
	return nil
}

// chat broadcasts a message to the room without touching game state.
func (r *Room) chat(playerID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(playerID)
	if p == nil {
		return domain.ErrPlayerNotFound
	}
	r.broadcastLocked(domain.Event{Type: domain.EventNewMessage, Payload: domain.ChatPayload{
		ID:     time.Now().UnixMilli(),
		Sender: p.name,
		Text:   text,
	}})
	return nil
}

// shutdown tears the room down ahead of registry deletion.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdownLocked()
}

func (r *Room) shutdownLocked() {
	r.cancelTimerLocked()
	r.gen++
}

// armTimerLocked starts the countdown for the current question. It cancels
// any previous handle first, which keeps the one-live-timer invariant out of
// callers' hands entirely.
func (r *Room) armTimerLocked() {
	r.cancelTimerLocked()
	r.timeLeft = r.cfg.RoundSeconds
	gen := r.gen
	r.timer = startRoundTimer(r.cfg.RoundSeconds, r.cfg.TickInterval,
		func(left int) { r.handleTick(gen, left) },
		func() { r.handleTimeout(gen) },
	)
}

func (r *Room) cancelTimerLocked() {
	if r.timer != nil {
		r.timer.cancel()
		r.timer = nil
	}
}

func (r *Room) handleTick(gen uint64, left int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || r.status != domain.StatusPlaying {
		return
	}
	r.timeLeft = left
	r.broadcastLocked(domain.Event{Type: domain.EventTimeUpdate, Payload: domain.TimePayload{TimeLeft: left}})
}

func (r *Room) handleTimeout(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || r.status != domain.StatusPlaying {
		return
	}
	r.endRoundLocked()
}

// endRoundLocked closes the current question: the timer is cancelled before
// anything else so an in-flight countdown cannot fire into the next round,
// then the reveal goes out and the advance is scheduled after the settle
// delay. Bumping gen makes the timeout path and the all-answered path
// mutually exclusive; whichever runs second becomes a no-op.
func (r *Room) endRoundLocked() {
	r.cancelTimerLocked()
	r.gen++
	gen := r.gen

	r.broadcastLocked(domain.Event{Type: domain.EventQuestionEnded, Payload: domain.RevealPayload{
		CorrectOptionID: r.questions[r.current].CorrectOptionID,
	}})

	time.AfterFunc(r.cfg.SettleDelay, func() { r.advanceRound(gen) })
}

func (r *Room) advanceRound(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || r.status != domain.StatusPlaying {
		return
	}

	r.current++
	if r.current >= len(r.questions) {
		r.finishLocked()
		return
	}

	r.clearAnswersLocked()
	r.broadcastLocked(domain.Event{Type: domain.EventNextQuestion, Payload: domain.QuestionPayload{
		CurrentQuestion: r.questions[r.current].View(),
		QuestionNumber:  r.current + 1,
		TotalQuestions:  len(r.questions),
		TimeLeft:        r.cfg.RoundSeconds,
	}})
	r.armTimerLocked()
}

// finishLocked ends the game, broadcasts the scoreboard and hands results to
// the publisher on a detached goroutine so a slow store cannot block the room.
func (r *Room) finishLocked() {
	r.status = domain.StatusFinished
	r.cancelTimerLocked()

	scores := make([]domain.FinalScore, 0, len(r.players))
	for _, p := range r.players {
		scores = append(scores, domain.FinalScore{PlayerID: p.id, Name: p.name, Score: r.scores[p.id]})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Name < scores[j].Name
	})

	r.broadcastLocked(domain.Event{Type: domain.EventGameFinished, Payload: domain.ScoresPayload{Scores: scores}})

	completed := time.Now()
	results := make([]domain.GameResult, 0, len(r.players))
	for _, p := range r.players {
		results = append(results, domain.GameResult{
			RoomCode:    r.code,
			PlayerID:    p.id,
			DisplayName: p.name,
			Score:       r.scores[p.id],
			CompletedAt: completed,
		})
	}
	if r.onFinish != nil {
		go r.onFinish(r.code, results)
	}
}

func (r *Room) findLocked(id string) *player {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *Room) allAnsweredLocked() bool {
	for _, p := range r.players {
		if !p.hasAnswered {
			return false
		}
	}
	return true
}

func (r *Room) clearAnswersLocked() {
	for _, p := range r.players {
		p.hasAnswered = false
	}
}

func (r *Room) broadcastLocked(ev domain.Event) {
	for _, p := range r.players {
		p.deliver(ev)
	}
}

func (r *Room) viewsLocked() []domain.PlayerView {
	views := make([]domain.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, domain.PlayerView{ID: p.id, Name: p.name, IsHost: p.isHost})
	}
	return views
}
