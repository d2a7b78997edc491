// internal/pool/pool.go
// Package pool manages a fixed set of pre-warmed browser sessions that
// scenarios borrow exclusively and hand back when they finish. The pool size
// is the cap on concurrent browser usage regardless of how many scenarios are
// scheduled in parallel.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// Pool hands out sessions with mutual exclusion. The semaphore counts free
// sessions and provides the cancellable wait; mu guards the collections.
type Pool struct {
	logger   *zap.Logger
	capacity int
	sem      *semaphore.Weighted

	mu        sync.Mutex
	available []driver.Session          // FIFO
	inUse     map[string]driver.Session // keyed by session ID
	all       []driver.Session
	closed    bool

	// done is cancelled by Close to wake every blocked Acquire.
	done       context.Context
	cancelDone context.CancelFunc
}

// Stats is a consistent snapshot of the pool taken under its lock.
type Stats struct {
	Capacity  int
	Available []string // session IDs, in hand-out order
	InUse     []string
}

// New eagerly creates capacity sessions from factory. Construction is
// all-or-nothing: if any session fails, those already created are closed and
// a *ResourceCreationError is returned.
func New(ctx context.Context, capacity int, factory driver.Factory, logger *zap.Logger) (*Pool, error) {
	logger = logger.Named("pool")
	if capacity <= 0 {
		return nil, NewResourceCreationError(0, capacity, fmt.Errorf("capacity must be positive, got %d", capacity))
	}

	sessions := make([]driver.Session, 0, capacity)
	for i := 0; i < capacity; i++ {
		s, err := factory.CreateSession(ctx)
		if err == nil && s == nil {
			err = errors.New("factory returned a nil session")
		}
		if err != nil {
			logger.Error("Session creation failed, tearing down partial pool.",
				zap.Int("created", len(sessions)),
				zap.Int("capacity", capacity),
				zap.Error(err),
			)
			closeAll(context.WithoutCancel(ctx), sessions, logger)
			return nil, NewResourceCreationError(len(sessions), capacity, err)
		}
		logger.Debug("Session created.", zap.String("session_id", s.ID()), zap.Int("slot", i))
		sessions = append(sessions, s)
	}

	done, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger:     logger,
		capacity:   capacity,
		sem:        semaphore.NewWeighted(int64(capacity)),
		available:  append([]driver.Session(nil), sessions...),
		inUse:      make(map[string]driver.Session, capacity),
		all:        sessions,
		done:       done,
		cancelDone: cancel,
	}
	logger.Info("Session pool initialized.", zap.Int("capacity", capacity))
	return p, nil
}

// Capacity returns the fixed number of sessions the pool owns.
func (p *Pool) Capacity() int { return p.capacity }

// Acquire blocks until a session is free and returns it, moving it from
// available to in-use. There is no deadline besides ctx: cancelling ctx while
// blocked returns an *InterruptedWaitError.
func (p *Pool) Acquire(ctx context.Context) (driver.Session, error) {
	return p.acquire(ctx, 0)
}

// AcquireTimeout is Acquire with a bounded wait. When timeout elapses first it
// returns a *PoolExhaustedError; cancellation of ctx still yields an
// *InterruptedWaitError.
func (p *Pool) AcquireTimeout(ctx context.Context, timeout time.Duration) (driver.Session, error) {
	if timeout <= 0 {
		return p.acquire(ctx, 0)
	}
	return p.acquire(ctx, timeout)
}

func (p *Pool) acquire(ctx context.Context, timeout time.Duration) (driver.Session, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		waitCtx, cancelTimeout = context.WithTimeout(waitCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(p.done, cancel)
	defer stop()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		waited := time.Since(start)
		switch {
		case p.done.Err() != nil:
			return nil, ErrPoolClosed
		case ctx.Err() != nil:
			p.logger.Debug("Session wait interrupted.", zap.Duration("waited", waited), zap.Error(ctx.Err()))
			return nil, NewInterruptedWaitError(waited, ctx.Err())
		default:
			p.logger.Warn("Session pool exhausted.", zap.Duration("timeout", timeout), zap.Int("capacity", p.capacity))
			return nil, NewPoolExhaustedError(p.capacity, timeout)
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}
	// Holding a unit guarantees a free session: units outstanding never
	// exceed the number of sessions in use.
	s := p.available[0]
	p.available[0] = nil
	p.available = p.available[1:]
	p.inUse[s.ID()] = s
	free := len(p.available)
	p.mu.Unlock()

	p.logger.Debug("Session acquired.",
		zap.String("session_id", s.ID()),
		zap.Duration("waited", time.Since(start)),
		zap.Int("available", free),
	)
	return s, nil
}

// Release returns s to the pool and wakes one waiter. Releasing nil, a
// session that is not currently checked out, or any session after Close is
// a no-op, since cleanup paths may not know whether acquisition succeeded.
func (p *Pool) Release(s driver.Session) {
	if s == nil {
		p.logger.Debug("Release called with nil session, ignoring.")
		return
	}

	p.mu.Lock()
	held, ok := p.inUse[s.ID()]
	if !ok || held != s {
		p.mu.Unlock()
		p.logger.Debug("Release of a session not checked out, ignoring.", zap.String("session_id", s.ID()))
		return
	}
	delete(p.inUse, s.ID())
	p.available = append(p.available, s)
	free := len(p.available)
	p.mu.Unlock()

	p.sem.Release(1)
	p.logger.Debug("Session released.", zap.String("session_id", s.ID()), zap.Int("available", free))
}

// Stats returns a snapshot of which sessions are free and which are held.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Stats{
		Capacity:  p.capacity,
		Available: make([]string, 0, len(p.available)),
		InUse:     make([]string, 0, len(p.inUse)),
	}
	for _, s := range p.available {
		st.Available = append(st.Available, s.ID())
	}
	for id := range p.inUse {
		st.InUse = append(st.InUse, id)
	}
	return st
}

// Close wakes all waiters with ErrPoolClosed and closes every session,
// including ones still checked out. It is idempotent.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	sessions := p.all
	p.available = nil
	p.inUse = make(map[string]driver.Session)
	p.mu.Unlock()

	p.cancelDone()
	p.logger.Info("Closing session pool.", zap.Int("sessions", len(sessions)))
	return closeAll(ctx, sessions, p.logger)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// closeAll closes every session and joins the failures.
func closeAll(ctx context.Context, sessions []driver.Session, logger *zap.Logger) error {
	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			logger.Warn("Failed to close session.", zap.String("session_id", s.ID()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
