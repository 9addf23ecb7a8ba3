package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no joinable room exists for a code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room is already at capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrCodeConflict indicates an explicitly requested room code is taken.
	ErrCodeConflict = errors.New("room code already in use")
	// ErrNotHost is returned when a non-host tries to start the game.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrInsufficientPlayers is returned when a game is started below capacity.
	ErrInsufficientPlayers = errors.New("not enough players to start")
	// ErrGameNotPlaying is returned for answers submitted outside a live round.
	ErrGameNotPlaying = errors.New("game is not in progress")
	// ErrAlreadyAnswered is returned for duplicate answers in the same round.
	ErrAlreadyAnswered = errors.New("answer already submitted this round")
	// ErrPlayerNotFound is returned when a connection is not part of the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrQuestionUnavailable indicates question content could not be loaded.
	ErrQuestionUnavailable = errors.New("questions unavailable")
)
