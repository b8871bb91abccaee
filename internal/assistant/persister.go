package assistant

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/domain"
)

// SessionSaver schedules a session for durable storage. Pending exposes a
// snapshot that is scheduled but not yet written.
type SessionSaver interface {
	Schedule(session *domain.ChatSession)
	Pending(sessionID string) (*domain.ChatSession, bool)
}

type pendingSave struct {
	session *domain.ChatSession
	timer   clockwork.Timer
}

// PersisterStats counts persistence activity since start
type PersisterStats struct {
	Scheduled int64 `json:"scheduled"`
	Saved     int64 `json:"saved"`
	Failed    int64 `json:"failed"`
	Pending   int   `json:"pending"`
}

// Persister writes sessions to the repository after a quiet period. Saves
// scheduled for the same session within the debounce window collapse into
// one save of the latest snapshot. A failed save is logged and dropped; it is
// never retried.
type Persister struct {
	repo     domain.SessionRepository
	clock    clockwork.Clock
	debounce time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingSave

	scheduled atomic.Int64
	saved     atomic.Int64
	failed    atomic.Int64
}

// NewPersister creates a persister. timeout bounds each individual save.
func NewPersister(repo domain.SessionRepository, clock clockwork.Clock, debounce, timeout time.Duration, logger zerolog.Logger) *Persister {
	return &Persister{
		repo:     repo,
		clock:    clock,
		debounce: debounce,
		timeout:  timeout,
		logger:   logger.With().Str("component", "persister").Logger(),
		pending:  make(map[string]*pendingSave),
	}
}

// Schedule queues session for saving, replacing any pending snapshot of the
// same session and restarting its timer. The caller must not mutate session
// afterwards; pass a snapshot.
func (p *Persister) Schedule(session *domain.ChatSession) {
	p.scheduled.Add(1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.pending[session.ID]; ok {
		prev.timer.Stop()
	}
	ps := &pendingSave{session: session}
	ps.timer = p.clock.AfterFunc(p.debounce, func() { p.fire(session.ID, ps) })
	p.pending[session.ID] = ps
}

// Pending returns a copy of the snapshot waiting to be saved for sessionID
func (p *Persister) Pending(sessionID string) (*domain.ChatSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ps, ok := p.pending[sessionID]
	if !ok {
		return nil, false
	}
	return ps.session.Snapshot(), true
}

func (p *Persister) fire(id string, ps *pendingSave) {
	p.mu.Lock()
	if p.pending[id] != ps {
		// Superseded or flushed.
		p.mu.Unlock()
		return
	}
	delete(p.pending, id)
	p.mu.Unlock()

	p.save(ps.session)
}

func (p *Persister) save(session *domain.ChatSession) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.repo.Save(ctx, domain.NewSessionRecord(session, p.clock.Now())); err != nil {
		p.failed.Add(1)
		p.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to persist session")
		return
	}
	p.saved.Add(1)
}

// Flush saves every pending session immediately
func (p *Persister) Flush() {
	p.mu.Lock()
	batch := make([]*domain.ChatSession, 0, len(p.pending))
	for id, ps := range p.pending {
		ps.timer.Stop()
		batch = append(batch, ps.session)
		delete(p.pending, id)
	}
	p.mu.Unlock()

	for _, s := range batch {
		p.save(s)
	}
	if len(batch) > 0 {
		p.logger.Info().Int("sessions", len(batch)).Msg("flushed pending sessions")
	}
}

// Stats returns the persistence counters
func (p *Persister) Stats() PersisterStats {
	p.mu.Lock()
	pending := len(p.pending)
	p.mu.Unlock()

	return PersisterStats{
		Scheduled: p.scheduled.Load(),
		Saved:     p.saved.Load(),
		Failed:    p.failed.Load(),
		Pending:   pending,
	}
}
