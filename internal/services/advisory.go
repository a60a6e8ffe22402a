package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type AdvisoryLevel string

const (
	AdvisorySuccess AdvisoryLevel = "success"
	AdvisoryError   AdvisoryLevel = "error"
)

type Advisory struct {
	ID        string        `json:"id"`
	Level     AdvisoryLevel `json:"level"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AdvisoryBoard holds the one advisory currently shown. Success advisories
// clear themselves after successTTL; errors stay until dismissed or replaced.
type AdvisoryBoard struct {
	successTTL time.Duration

	mu      sync.Mutex
	current *Advisory
	timer   *time.Timer
}

func NewAdvisoryBoard(successTTL time.Duration) *AdvisoryBoard {
	return &AdvisoryBoard{successTTL: successTTL}
}

func (b *AdvisoryBoard) Success(message string) Advisory {
	return b.post(AdvisorySuccess, message)
}

func (b *AdvisoryBoard) Error(message string) Advisory {
	return b.post(AdvisoryError, message)
}

func (b *AdvisoryBoard) post(level AdvisoryLevel, message string) Advisory {
	a := Advisory{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimer()
	b.current = &a
	if level == AdvisorySuccess {
		b.timer = time.AfterFunc(b.successTTL, func() { b.Dismiss(a.ID) })
	}
	return a
}

func (b *AdvisoryBoard) Current() (Advisory, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Advisory{}, false
	}
	return *b.current, true
}

// Dismiss clears the advisory if it is still the current one.
func (b *AdvisoryBoard) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.current.ID != id {
		return false
	}
	b.current = nil
	b.stopTimer()
	return true
}

// Stop cancels a pending auto-clear.
func (b *AdvisoryBoard) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimer()
}

func (b *AdvisoryBoard) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
