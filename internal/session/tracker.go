package session

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultInactivityTimeout is how long an agent may stay silent before its
// session is considered over and a snapshot trigger is raised.
const DefaultInactivityTimeout = 5 * time.Minute

// Triggerer receives coalesced snapshot triggers. Implemented by Worker.
type Triggerer interface {
	Trigger()
}

// session is the per-agent state. Exists only while the agent is active.
type session struct {
	lastOrdinal  int64
	lastActivity time.Time
	timer        *time.Timer

	// gen invalidates in-flight timer callbacks: a callback whose captured
	// generation no longer matches was cancelled or superseded.
	gen uint64
}

// Tracker tracks last-seen activity per client session and converts
// session-lifecycle signals into snapshot triggers.
//
// Thread-safety: all methods are safe for concurrent use. Timer callbacks
// synchronize through the same mutex as the signal methods, so a deadline
// firing concurrently with a cancellation cannot double-trigger beyond what
// the worker's coalescing already absorbs.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*session
	timeout  time.Duration
	trigger  Triggerer
	logger   *slog.Logger
}

// NewTracker creates a tracker that raises triggers on t.
// timeout <= 0 falls back to DefaultInactivityTimeout.
func NewTracker(t Triggerer, timeout time.Duration, logger *slog.Logger) *Tracker {
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sessions: make(map[string]*session),
		timeout:  timeout,
		trigger:  t,
		logger:   logger,
	}
}

// RecordActivity notes that an agent's activity was ingested at the given
// ordinal and (re)schedules the agent's inactivity deadline, cancelling any
// prior pending deadline.
//
// Invoked once per successfully ingested activity. Duplicate-uuid ingestion
// calls do not reach here, so replayed submissions never extend a session.
func (tr *Tracker) RecordActivity(agent string, ordinal int64, at time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	s, ok := tr.sessions[agent]
	if !ok {
		s = &session{}
		tr.sessions[agent] = s
	}

	if ordinal > s.lastOrdinal {
		s.lastOrdinal = ordinal
	}
	s.lastActivity = at

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(tr.timeout, func() {
		tr.expire(agent, gen)
	})
}

// EndSession tears down the agent's session and raises a trigger
// immediately. Invoked by the external beacon/heartbeat mechanism.
//
// Ending an unknown agent still triggers: the beacon may arrive after an
// inactivity deadline already tore the session down, and the trigger is
// harmless under coalescing.
func (tr *Tracker) EndSession(agent string, lastOrdinal int64) {
	tr.mu.Lock()
	if s, ok := tr.sessions[agent]; ok {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(tr.sessions, agent)
	}
	tr.mu.Unlock()

	tr.logger.Info("session ended", "agent", agent, "last_ordinal", lastOrdinal)
	tr.trigger.Trigger()
}

// expire is the inactivity deadline callback. A stale generation means the
// deadline was cancelled or rescheduled after this callback was already
// scheduled to run; it does nothing.
func (tr *Tracker) expire(agent string, gen uint64) {
	tr.mu.Lock()
	s, ok := tr.sessions[agent]
	if !ok || s.gen != gen {
		tr.mu.Unlock()
		return
	}
	lastOrdinal := s.lastOrdinal
	delete(tr.sessions, agent)
	tr.mu.Unlock()

	tr.logger.Info("session timed out", "agent", agent, "last_ordinal", lastOrdinal)
	tr.trigger.Trigger()
}

// ActiveSessions returns the number of agents currently tracked.
// Used by tests and operational introspection.
func (tr *Tracker) ActiveSessions() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.sessions)
}

// Shutdown cancels all pending deadlines without triggering.
// Pending activity ranges are picked up by the next trigger after restart;
// the log loses nothing.
func (tr *Tracker) Shutdown() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for agent, s := range tr.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.gen++
		delete(tr.sessions, agent)
	}
}
