// Package queue implements per-identity admission lanes.
//
// Each requesting identity gets its own lane: an unbounded FIFO drained by a
// single goroutine, so jobs for one identity never overlap and always run in
// arrival order. Lanes for different identities are fully independent.
//
// Lanes are created on first use and never removed; the map grows with the
// number of distinct users, not with request volume.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "igdownbot/pkg/logx"
)

// Job is one unit of admitted work. It runs to completion; there is no
// cancellation once admitted beyond process shutdown.
type Job func(ctx context.Context)

type Config struct {
	// Throttle caps job starts at one per Window per identity.
	// When false, admission is gated only by the one-at-a-time rule.
	Throttle bool
	// Window is the minimum spacing between job starts within a lane.
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 15 * time.Second
	}
	return c
}

var ErrNotStarted = errors.New("queue manager not started")

type Manager struct {
	log logx.Logger

	mu    sync.Mutex
	cfg   Config
	lanes map[int64]*lane
	ctx   context.Context

	wg sync.WaitGroup
}

type lane struct {
	identity int64

	mu   sync.Mutex
	fifo []Job

	wake    chan struct{}
	limiter *rate.Limiter
}

type Snapshot struct {
	Lanes  int
	Queued int
}

func NewManager(cfg Config, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{
		log:   log,
		cfg:   cfg.withDefaults(),
		lanes: make(map[int64]*lane),
	}
}

// Start binds the manager to its lifetime context. Lane goroutines exit when
// the context is done; queued jobs that never started are abandoned then.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
}

// Stop waits for in-flight jobs to finish, up to the given context.
// Callers cancel the Start context first.
func (m *Manager) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply updates the throttle policy at runtime. Existing lanes pick up the
// new limit on their next admission.
func (m *Manager) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	m.mu.Lock()
	m.cfg = cfg
	for _, l := range m.lanes {
		l.limiter.SetLimit(laneLimit(cfg))
	}
	m.mu.Unlock()
}

// Enqueue appends a job to the identity's lane, creating the lane on first
// use. Admission never drops a job; it only delays its start.
func (m *Manager) Enqueue(identity int64, job Job) error {
	if job == nil {
		return nil
	}

	m.mu.Lock()
	if m.ctx == nil {
		m.mu.Unlock()
		return ErrNotStarted
	}
	l, ok := m.lanes[identity]
	if !ok {
		l = &lane{
			identity: identity,
			wake:     make(chan struct{}, 1),
			limiter:  rate.NewLimiter(laneLimit(m.cfg), 1),
		}
		m.lanes[identity] = l
		m.wg.Add(1)
		go func(ctx context.Context) {
			defer m.wg.Done()
			l.run(ctx, m.log)
		}(m.ctx)
		m.log.Debug("lane created", logx.Int64("identity", identity))
	}
	m.mu.Unlock()

	l.push(job)
	return nil
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{Lanes: len(m.lanes)}
	for _, l := range m.lanes {
		l.mu.Lock()
		s.Queued += len(l.fifo)
		l.mu.Unlock()
	}
	return s
}

func laneLimit(cfg Config) rate.Limit {
	if !cfg.Throttle {
		return rate.Inf
	}
	return rate.Every(cfg.Window)
}

func (l *lane) push(job Job) {
	l.mu.Lock()
	l.fifo = append(l.fifo, job)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) pop() (Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.fifo) == 0 {
		return nil, false
	}
	job := l.fifo[0]
	l.fifo = l.fifo[1:]
	return job, true
}

func (l *lane) run(ctx context.Context, log logx.Logger) {
	for {
		job, ok := l.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-l.wake:
				continue
			}
		}

		// Rate-limited admission. On shutdown the remaining queue is abandoned.
		if err := l.limiter.Wait(ctx); err != nil {
			return
		}

		log.Debug("job started", logx.Int64("identity", l.identity))
		job(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
