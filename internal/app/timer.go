package app

import (
	"sync"
	"time"
)

// roundTimer is a cancellable countdown for one question. A room owns at most
// one live timer; armTimerLocked is the only way to start one and it cancels
// any predecessor first, so two countdowns can never coexist for a room.
type roundTimer struct {
	stop chan struct{}
	once sync.Once
}

// startRoundTimer counts down from seconds, invoking onTick after every
// interval with the remaining time and onExpire when it reaches zero.
// Callbacks run on the timer goroutine and must re-validate room state.
func startRoundTimer(seconds int, interval time.Duration, onTick func(left int), onExpire func()) *roundTimer {
	t := &roundTimer{stop: make(chan struct{})}
	go t.run(seconds, interval, onTick, onExpire)
	return t
}

func (t *roundTimer) run(seconds int, interval time.Duration, onTick func(left int), onExpire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	left := seconds
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			left--
			onTick(left)
			if left <= 0 {
				onExpire()
				return
			}
		}
	}
}

// cancel stops the countdown. Safe to call more than once and after expiry.
func (t *roundTimer) cancel() {
	t.once.Do(func() { close(t.stop) })
}
