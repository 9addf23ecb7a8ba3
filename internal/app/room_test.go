package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vitisco-room-service/internal/domain"
)

// fastConfig keeps full rounds under 100ms so game-flow tests stay quick.
func fastConfig() GameConfig {
	return GameConfig{
		Capacity:      2,
		QuestionCount: 2,
		RoundSeconds:  3,
		TickInterval:  10 * time.Millisecond,
		SettleDelay:   30 * time.Millisecond,
		BasePoints:    10,
		BonusFactor:   0.5,
	}
}

type fakeQuestions struct {
	questions []domain.Question
	err       error
}

func (f *fakeQuestions) Random(_ context.Context, n int) ([]domain.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.questions) {
		n = len(f.questions)
	}
	return f.questions[:n], nil
}

type captureResults struct {
	mu      sync.Mutex
	results []domain.GameResult
}

func (c *captureResults) Record(_ context.Context, result domain.GameResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	return nil
}

func (c *captureResults) Leaderboard(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (c *captureResults) recorded() []domain.GameResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.GameResult, len(c.results))
	copy(out, c.results)
	return out
}

func twoQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: "first",
			Options: []domain.Option{
				{ID: "o1", Text: "right"},
				{ID: "o2", Text: "wrong"},
			},
			CorrectOptionID: "o1",
		},
		{
			ID:     "q2",
			Prompt: "second",
			Options: []domain.Option{
				{ID: "o1", Text: "wrong"},
				{ID: "o2", Text: "right"},
			},
			CorrectOptionID: "o2",
		},
	}
}

func newTestService(questions []domain.Question) (*RoomService, *captureResults) {
	results := &captureResults{}
	service := NewRoomService(fastConfig(), &fakeQuestions{questions: questions}, results, nil)
	return service, results
}

func newSink() chan domain.Event {
	return make(chan domain.Event, 64)
}

// nextEvent reads events until it sees the wanted type, skipping ticks and
// anything else in between. Times out rather than blocking forever.
func nextEvent(t *testing.T, sink <-chan domain.Event, want string) domain.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func drainType(sink <-chan domain.Event, want string) int {
	count := 0
	for {
		select {
		case ev := <-sink:
			if ev.Type == want {
				count++
			}
		default:
			return count
		}
	}
}

func setupPlayingRoom(t *testing.T, service *RoomService) (code string, hostSink, guestSink chan domain.Event) {
	t.Helper()
	hostSink = newSink()
	guestSink = newSink()

	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	code = room.Code()

	if _, err := service.JoinRoom(code, "guest", "Bob", guestSink); err != nil {
		t.Fatalf("join room: %v", err)
	}
	nextEvent(t, hostSink, domain.EventRoomReady)
	nextEvent(t, guestSink, domain.EventRoomReady)

	if err := service.StartGame(context.Background(), code, "host"); err != nil {
		t.Fatalf("start game: %v", err)
	}
	nextEvent(t, hostSink, domain.EventGameStarted)
	nextEvent(t, guestSink, domain.EventGameStarted)
	return code, hostSink, guestSink
}

func TestGameStartedCarriesFirstQuestion(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	hostSink := newSink()
	guestSink := newSink()

	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := service.JoinRoom(room.Code(), "guest", "Bob", guestSink); err != nil {
		t.Fatalf("join room: %v", err)
	}
	if err := service.StartGame(context.Background(), room.Code(), "host"); err != nil {
		t.Fatalf("start game: %v", err)
	}

	ev := nextEvent(t, hostSink, domain.EventGameStarted)
	payload, ok := ev.Payload.(domain.QuestionPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", ev.Payload)
	}
	if payload.QuestionNumber != 1 || payload.TotalQuestions != 2 {
		t.Fatalf("expected question 1 of 2, got %d of %d", payload.QuestionNumber, payload.TotalQuestions)
	}
	if payload.TimeLeft != 3 {
		t.Fatalf("expected timeLeft=3, got %d", payload.TimeLeft)
	}
	if payload.CurrentQuestion.ID != "q1" {
		t.Fatalf("expected q1 first, got %s", payload.CurrentQuestion.ID)
	}
}

func TestStartGameValidation(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	hostSink := newSink()
	guestSink := newSink()

	if err := service.StartGame(context.Background(), "NOPE", "host"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	code := room.Code()

	if err := service.StartGame(context.Background(), code, "host"); !errors.Is(err, domain.ErrInsufficientPlayers) {
		t.Fatalf("expected ErrInsufficientPlayers, got %v", err)
	}

	if _, err := service.JoinRoom(code, "guest", "Bob", guestSink); err != nil {
		t.Fatalf("join room: %v", err)
	}
	if err := service.StartGame(context.Background(), code, "guest"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestStartGameQuestionFetchFailure(t *testing.T) {
	results := &captureResults{}
	service := NewRoomService(fastConfig(), &fakeQuestions{err: errors.New("db down")}, results, nil)

	hostSink := newSink()
	guestSink := newSink()
	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := service.JoinRoom(room.Code(), "guest", "Bob", guestSink); err != nil {
		t.Fatalf("join room: %v", err)
	}

	if err := service.StartGame(context.Background(), room.Code(), "host"); !errors.Is(err, domain.ErrQuestionUnavailable) {
		t.Fatalf("expected ErrQuestionUnavailable, got %v", err)
	}
	if got := room.Status(); got != domain.StatusWaiting {
		t.Fatalf("room should stay waiting after failed start, got %s", got)
	}
}

func TestCorrectAnswerScoresWithTimeBonus(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	code, hostSink, _ := setupPlayingRoom(t, service)

	// Answer before the first tick: full time bonus on top of base points.
	if err := service.SubmitAnswer(code, "host", "o1"); err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	ev := nextEvent(t, hostSink, domain.EventAnswerResult)
	result := ev.Payload.(domain.AnswerResultPayload)
	if !result.Correct {
		t.Fatalf("expected correct answer")
	}
	if result.Points != 11 { // 10 + floor(3 * 0.5)
		t.Fatalf("expected 11 points, got %d", result.Points)
	}
	if result.TotalScore != 11 {
		t.Fatalf("expected total 11, got %d", result.TotalScore)
	}
}

func TestDuplicateAnswerRejected(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	code, hostSink, _ := setupPlayingRoom(t, service)

	if err := service.SubmitAnswer(code, "host", "o2"); err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	first := nextEvent(t, hostSink, domain.EventAnswerResult).Payload.(domain.AnswerResultPayload)
	if first.Correct || first.TotalScore != 0 {
		t.Fatalf("expected incorrect answer with zero score, got %+v", first)
	}

	if err := service.SubmitAnswer(code, "host", "o1"); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
}

func TestAllAnsweredAdvancesEarly(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	code, hostSink, guestSink := setupPlayingRoom(t, service)

	started := time.Now()
	if err := service.SubmitAnswer(code, "host", "o1"); err != nil {
		t.Fatalf("host answer: %v", err)
	}
	if err := service.SubmitAnswer(code, "guest", "o1"); err != nil {
		t.Fatalf("guest answer: %v", err)
	}

	reveal := nextEvent(t, hostSink, domain.EventQuestionEnded)
	if elapsed := time.Since(started); elapsed > 25*time.Millisecond {
		t.Fatalf("expected immediate reveal, took %v", elapsed)
	}
	if got := reveal.Payload.(domain.RevealPayload).CorrectOptionID; got != "o1" {
		t.Fatalf("expected reveal of o1, got %s", got)
	}

	next := nextEvent(t, hostSink, domain.EventNextQuestion).Payload.(domain.QuestionPayload)
	if next.QuestionNumber != 2 || next.CurrentQuestion.ID != "q2" {
		t.Fatalf("expected question 2 (q2), got %d (%s)", next.QuestionNumber, next.CurrentQuestion.ID)
	}
	nextEvent(t, guestSink, domain.EventNextQuestion)
}

func TestNoDoubleAdvanceAfterEarlyReveal(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	code, hostSink, _ := setupPlayingRoom(t, service)

	_ = service.SubmitAnswer(code, "host", "o1")
	_ = service.SubmitAnswer(code, "guest", "o1")
	nextEvent(t, hostSink, domain.EventQuestionEnded)
	nextEvent(t, hostSink, domain.EventNextQuestion)

	// Let the original round-1 timer window pass entirely; a stale timer
	// firing would produce an extra reveal for round 2.
	time.Sleep(60 * time.Millisecond)
	if n := drainType(hostSink, domain.EventQuestionEnded); n > 1 {
		t.Fatalf("expected at most one reveal while round 2 runs, got %d", n)
	}
}

func TestTimeoutRevealsAndScoresOnlyAnswering(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	code, hostSink, guestSink := setupPlayingRoom(t, service)

	if err := service.SubmitAnswer(code, "host", "o1"); err != nil {
		t.Fatalf("host answer: %v", err)
	}
	hostResult := nextEvent(t, hostSink, domain.EventAnswerResult).Payload.(domain.AnswerResultPayload)
	if !hostResult.Correct || hostResult.TotalScore == 0 {
		t.Fatalf("expected host scored, got %+v", hostResult)
	}

	// Guest never answers; the round must end on the clock.
	nextEvent(t, hostSink, domain.EventQuestionEnded)
	nextEvent(t, guestSink, domain.EventQuestionEnded)

	next := nextEvent(t, guestSink, domain.EventNextQuestion).Payload.(domain.QuestionPayload)
	if next.QuestionNumber != 2 {
		t.Fatalf("expected question 2 after timeout, got %d", next.QuestionNumber)
	}
}

func TestGameFinishedPublishesOneResultPerPlayer(t *testing.T) {
	service, results := newTestService(twoQuestions())
	code, hostSink, guestSink := setupPlayingRoom(t, service)

	for round := 0; round < 2; round++ {
		_ = service.SubmitAnswer(code, "host", "o1")
		_ = service.SubmitAnswer(code, "guest", "o2")
		nextEvent(t, hostSink, domain.EventQuestionEnded)
		if round == 0 {
			nextEvent(t, hostSink, domain.EventNextQuestion)
			nextEvent(t, guestSink, domain.EventNextQuestion)
		}
	}

	finished := nextEvent(t, guestSink, domain.EventGameFinished).Payload.(domain.ScoresPayload)
	if len(finished.Scores) != 2 {
		t.Fatalf("expected two final scores, got %d", len(finished.Scores))
	}

	deadline := time.After(time.Second)
	for {
		if len(results.recorded()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 2 results recorded, got %d", len(results.recorded()))
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Finished rooms leave the registry once results are handed off.
	deadline = time.After(time.Second)
	for service.Registry().RoomCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("expected room deleted after finish")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMidGameLeaveAbortsToWaiting(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	code, hostSink, _ := setupPlayingRoom(t, service)

	service.Disconnect("guest")

	left := nextEvent(t, hostSink, domain.EventPlayerLeft).Payload.(domain.PlayersPayload)
	if len(left.Players) != 1 || left.Players[0].ID != "host" {
		t.Fatalf("expected only host remaining, got %+v", left.Players)
	}
	ended := nextEvent(t, hostSink, domain.EventGameEnded).Payload.(domain.ReasonPayload)
	if ended.Reason == "" {
		t.Fatalf("expected abort reason")
	}

	room, ok := service.Registry().Get(code)
	if !ok {
		t.Fatalf("room should survive with one player left")
	}
	if got := room.Status(); got != domain.StatusWaiting {
		t.Fatalf("expected waiting after abort, got %s", got)
	}
}

func TestHostLeaveMigratesHost(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	hostSink := newSink()
	guestSink := newSink()

	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := service.JoinRoom(room.Code(), "guest", "Bob", guestSink); err != nil {
		t.Fatalf("join room: %v", err)
	}

	service.Disconnect("host")

	left := nextEvent(t, guestSink, domain.EventPlayerLeft).Payload.(domain.PlayersPayload)
	if len(left.Players) != 1 || !left.Players[0].IsHost {
		t.Fatalf("expected remaining player promoted to host, got %+v", left.Players)
	}

	// The promoted host can start once capacity is met again.
	extraSink := newSink()
	if _, err := service.JoinRoom(room.Code(), "extra", "Cara", extraSink); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if err := service.StartGame(context.Background(), room.Code(), "guest"); err != nil {
		t.Fatalf("promoted host should start game: %v", err)
	}
}

func TestAnswerOutsideGameRejected(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	hostSink := newSink()

	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := service.SubmitAnswer(room.Code(), "host", "o1"); !errors.Is(err, domain.ErrGameNotPlaying) {
		t.Fatalf("expected ErrGameNotPlaying, got %v", err)
	}
}

func TestChatBroadcastsWithoutTouchingGame(t *testing.T) {
	service, _ := newTestService(twoQuestions())
	hostSink := newSink()
	guestSink := newSink()

	room, err := service.CreateRoom("host", "Alice", hostSink, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := service.JoinRoom(room.Code(), "guest", "Bob", guestSink); err != nil {
		t.Fatalf("join room: %v", err)
	}

	if err := service.SendMessage(room.Code(), "guest", "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	msg := nextEvent(t, hostSink, domain.EventNewMessage).Payload.(domain.ChatPayload)
	if msg.Sender != "Bob" || msg.Text != "hello" {
		t.Fatalf("unexpected chat payload %+v", msg)
	}
	if got := room.Status(); got != domain.StatusWaiting {
		t.Fatalf("chat must not change status, got %s", got)
	}
}
