// Package circuitbreaker sheds remote calls after repeated transport
// failures. Rural uplinks drop for hours at a time; an open breaker
// makes sync passes fail fast instead of burning their batch timeout
// against a dead tower.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is shedding calls.
var ErrOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu          sync.Mutex
	state       state
	failures    int
	lastFailure time.Time
	now         func() time.Time
}

// New returns a closed breaker that opens after threshold consecutive
// failures and admits a probe call once cooldown has passed.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Execute runs fn unless the breaker is open. A success in the half-open
// probe closes the breaker; any failure reopens it.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.failures >= b.threshold || b.state == stateHalfOpen {
			b.state = stateOpen
		}
		return err
	}
	b.state = stateClosed
	b.failures = 0
	return nil
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) < b.cooldown {
		return ErrOpen
	}
	b.state = stateHalfOpen
	return nil
}
