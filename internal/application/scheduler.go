package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pricetracker-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCacheTTL = 60 * time.Second

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Status describes the scheduler for the control surface.
type Status struct {
	State     State
	SessionID string
	Config    domain.TrackingConfig
	// Pending is a reconfiguration waiting for the next cycle boundary.
	Pending *domain.TrackingConfig
}

// Scheduler drives periodic polls through the cache into the history store
// and publishes a Snapshot after every attempt. History and snapshot writes
// happen on the poll goroutine only.
type Scheduler struct {
	cache    PriceCache
	history  HistoryStore
	clock    Clock
	timer    TimerFunc
	newID    func() string
	cacheTTL time.Duration
	log      *zap.Logger

	// lifecycle serializes Start, Stop and Reconfigure.
	lifecycle sync.Mutex

	mu        sync.Mutex
	state     State
	cfg       domain.TrackingConfig
	pending   *domain.TrackingConfig
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
	refresh   chan chan error

	snap atomic.Pointer[domain.Snapshot]
}

type Option func(*Scheduler)

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }
func WithTimer(t TimerFunc) Option { return func(s *Scheduler) { s.timer = t } }
func WithLogger(l *zap.Logger) Option { return func(s *Scheduler) { s.log = l } }
func WithSessionIDs(f func() string) Option { return func(s *Scheduler) { s.newID = f } }

// WithCacheTTL sets the default cache ttl; each cycle uses
// min(interval, ttl).
func WithCacheTTL(d time.Duration) Option { return func(s *Scheduler) { s.cacheTTL = d } }

func NewScheduler(cache PriceCache, history HistoryStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		cache:   cache,
		history: history,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.timer == nil {
		s.timer = realTimer
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = defaultCacheTTL
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.snap.Store(&domain.Snapshot{
		Prices:    map[domain.AssetID]domain.PriceSample{},
		Histories: map[domain.AssetID][]domain.PriceSample{},
	})
	return s
}

// Start begins a new tracking session. An invalid config fails without any
// state change. The first poll fires immediately.
func (s *Scheduler) Start(cfg domain.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}

	cfg = cfg.Clone()
	sessionID := s.newID()
	s.history.Clear()
	s.history.Reset(cfg.Assets)
	s.snap.Store(&domain.Snapshot{
		SessionID: sessionID,
		Assets:    cfg.Assets,
		Prices:    map[domain.AssetID]domain.PriceSample{},
		Histories: s.history.All(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.state = StateRunning
	s.cfg = cfg
	s.pending = nil
	s.sessionID = sessionID
	s.cancel = cancel
	s.done = make(chan struct{})
	s.refresh = make(chan chan error)

	go s.run(ctx, &session{id: sessionID, cfg: cfg}, s.refresh, s.done)

	s.log.Info("scheduler.started",
		zap.String("session_id", sessionID),
		zap.Int("assets", len(cfg.Assets)),
		zap.Int("interval_seconds", cfg.IntervalSeconds),
	)
	return nil
}

// Stop cancels the pending wait and any in-flight cycle and returns once the
// poll goroutine has exited. The last snapshot stays readable; the session's
// history series are dropped. Stopping a scheduler that is not running is a
// no-op.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.pending = nil
	s.cancel()
	done := s.done
	sessionID := s.sessionID
	s.mu.Unlock()

	<-done
	s.history.Clear()
	s.log.Info("scheduler.stopped", zap.String("session_id", sessionID))
}

// Reconfigure replaces the tracking config at the next cycle boundary.
func (s *Scheduler) Reconfigure(cfg domain.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return ErrNotRunning
	}
	c := cfg.Clone()
	s.pending = &c
	s.log.Info("scheduler.reconfigure_pending",
		zap.String("session_id", s.sessionID),
		zap.Int("assets", len(c.Assets)),
		zap.Int("interval_seconds", c.IntervalSeconds),
	)
	return nil
}

// Refresh runs a cycle now on the poll goroutine and returns its fetch error.
// The next scheduled wait restarts after it.
func (s *Scheduler) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	refresh, done := s.refresh, s.done
	s.mu.Unlock()

	reply := make(chan error, 1)
	select {
	case refresh <- reply:
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, SessionID: s.sessionID, Config: s.cfg.Clone()}
	if s.pending != nil {
		p := s.pending.Clone()
		st.Pending = &p
	}
	return st
}

// CurrentSnapshot returns the view of the most recently completed cycle. It
// never waits for an in-flight fetch.
func (s *Scheduler) CurrentSnapshot() domain.Snapshot {
	return *s.snap.Load()
}

type session struct {
	id    string
	cfg   domain.TrackingConfig
	cycle uint64
}

func (s *Scheduler) run(ctx context.Context, sess *session, refresh <-chan chan error, done chan<- struct{}) {
	defer close(done)

	s.poll(ctx, sess)
	for {
		var reply chan error
		tick, stop := s.timer(sess.cfg.Interval())
		select {
		case <-ctx.Done():
			stop()
			return
		case <-tick:
		case reply = <-refresh:
			stop()
		}
		s.applyPending(sess)
		err := s.poll(ctx, sess)
		if reply != nil {
			reply <- err
		}
	}
}

func (s *Scheduler) applyPending(sess *session) {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	if p == nil {
		s.mu.Unlock()
		return
	}
	prevID := sess.id
	sess.id = s.newID()
	sess.cfg = *p
	s.cfg = *p
	s.sessionID = sess.id
	s.mu.Unlock()

	s.history.Reset(sess.cfg.Assets)
	s.log.Info("scheduler.reconfigured",
		zap.String("previous_session_id", prevID),
		zap.String("session_id", sess.id),
		zap.Int("assets", len(sess.cfg.Assets)),
		zap.Int("interval_seconds", sess.cfg.IntervalSeconds),
	)
}

// poll runs one cycle. The result is either committed as a whole or, when
// the session was cancelled mid-fetch, discarded.
func (s *Scheduler) poll(ctx context.Context, sess *session) error {
	start := s.clock.Now()
	ttl := min(sess.cfg.Interval(), s.cacheTTL)
	log := s.log.With(zap.String("session_id", sess.id), zap.Uint64("cycle", sess.cycle+1))

	prices, err := s.cache.GetOrFetch(ctx, sess.cfg.Assets, ttl)
	if ctx.Err() != nil {
		log.Info("poll.discarded")
		return ctx.Err()
	}
	sess.cycle++
	prev := s.snap.Load()

	if err != nil {
		log.Warn("poll.failed",
			zap.String("kind", domain.KindOf(err).String()),
			zap.Error(err),
		)
		s.snap.Store(s.buildSnapshot(sess, prev.Prices, start, err))
		return err
	}

	latest := make(map[domain.AssetID]domain.PriceSample, len(sess.cfg.Assets))
	for _, a := range sess.cfg.Assets {
		if p, ok := prev.Prices[a]; ok {
			latest[a] = p
		}
	}
	updated := 0
	for _, a := range sess.cfg.Assets {
		price, ok := prices[a]
		if !ok {
			continue
		}
		sample := domain.PriceSample{Asset: a, Price: price, ObservedAt: start}
		s.history.Append(a, sample)
		latest[a] = sample
		updated++
	}
	s.snap.Store(s.buildSnapshot(sess, latest, start, nil))

	log.Info("poll.completed",
		zap.Int("assets", len(sess.cfg.Assets)),
		zap.Int("updated", updated),
		zap.Duration("duration", s.clock.Now().Sub(start)),
	)
	return nil
}

func (s *Scheduler) buildSnapshot(sess *session, prices map[domain.AssetID]domain.PriceSample, at time.Time, err error) *domain.Snapshot {
	kept := make(map[domain.AssetID]domain.PriceSample, len(sess.cfg.Assets))
	for _, a := range sess.cfg.Assets {
		if p, ok := prices[a]; ok {
			kept[a] = p
		}
	}
	return &domain.Snapshot{
		SessionID: sess.id,
		Cycle:     sess.cycle,
		UpdatedAt: at,
		Assets:    sess.cfg.Assets,
		Prices:    kept,
		Histories: s.history.All(),
		Stale:     err != nil,
		LastError: err,
	}
}
