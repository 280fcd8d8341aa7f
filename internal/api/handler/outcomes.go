package handler

import (
	"sync"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// DefaultOutcomeLogSize is the number of outcomes an OutcomeLog retains.
const DefaultOutcomeLogSize = 50

// OutcomeLog keeps the most recent playback outcomes for polling clients.
type OutcomeLog struct {
	mu    sync.Mutex
	items []model.Outcome
	size  int
}

// NewOutcomeLog creates a log keeping the last size outcomes.
func NewOutcomeLog(size int) *OutcomeLog {
	if size <= 0 {
		size = DefaultOutcomeLogSize
	}
	return &OutcomeLog{size: size}
}

// Record appends an outcome, dropping the oldest once full.
// It matches the playback controller's subscriber signature.
func (l *OutcomeLog) Record(o model.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, o)
	if over := len(l.items) - l.size; over > 0 {
		l.items = append(l.items[:0:0], l.items[over:]...)
	}
}

// Recent returns the retained outcomes, oldest first.
func (l *OutcomeLog) Recent() []model.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Outcome, len(l.items))
	copy(out, l.items)
	return out
}
