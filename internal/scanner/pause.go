package scanner

import (
	"context"
	"sync"
	"time"
)

// Pauser is a cooperative gate checked by workers before each probe.
// Probes already in flight finish normally; only dispatch stops.
// A nil *Pauser never blocks.
type Pauser struct {
	mu          sync.Mutex
	resumed     chan struct{} // closed on resume; nil while running
	paused      bool
	pausedSince time.Time
	totalPaused time.Duration
}

// NewPauser creates a Pauser in the running state.
func NewPauser() *Pauser {
	return &Pauser{}
}

// Wait blocks the calling worker while dispatch is paused. It returns early
// once ctx is done, so a pause never outlives a cancelled scan.
func (p *Pauser) Wait(ctx context.Context) {
	if p == nil {
		return
	}
	for {
		p.mu.Lock()
		if !p.paused {
			p.mu.Unlock()
			return
		}
		ch := p.resumed
		p.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return
		}
	}
}

// Toggle flips between paused and running and returns the new state
// (true = paused).
func (p *Pauser) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.resumeLocked()
	} else {
		p.paused = true
		p.pausedSince = time.Now()
		p.resumed = make(chan struct{})
	}
	return p.paused
}

// Resume releases all waiting workers. It is a no-op when not paused.
func (p *Pauser) Resume() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.resumeLocked()
	}
}

func (p *Pauser) resumeLocked() {
	p.totalPaused += time.Since(p.pausedSince)
	p.paused = false
	close(p.resumed)
	p.resumed = nil
}

// IsPaused reports whether dispatch is currently paused.
func (p *Pauser) IsPaused() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// PausedDuration returns the accumulated paused time, including any
// ongoing pause.
func (p *Pauser) PausedDuration() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.totalPaused
	if p.paused {
		d += time.Since(p.pausedSince)
	}
	return d
}
