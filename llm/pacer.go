package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Paced wraps a Client with a minimum interval between calls and a cap on
// concurrent calls. The enrichment pipeline uses it to stay under provider
// rate limits when walking a whole roster of personas.
type Paced struct {
	inner    Client
	sem      *semaphore.Weighted
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewPaced wraps client so calls are at least interval apart and at most
// maxConcurrent run at once. maxConcurrent < 1 is treated as 1.
func NewPaced(client Client, interval time.Duration, maxConcurrent int64) *Paced {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Paced{
		inner:    client,
		sem:      semaphore.NewWeighted(maxConcurrent),
		interval: interval,
	}
}

// Complete implements Client.
func (p *Paced) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	if err := p.pace(ctx); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, prompt)
}

// pace reserves the next call slot and sleeps until it arrives.
func (p *Paced) pace(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	wait := p.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	p.next = now.Add(wait + p.interval)
	p.mu.Unlock()

	if wait == 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
