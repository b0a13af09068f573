package authstate

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-fintrack/logging"
)

const loggerName = "authstate.manager"

// Manager caches the latest Session delivered by its Source and fans it out
// to observers.
//
// Observers run outside every lock and may call any Manager method from
// inside a callback, Subscribe and Cleanup included. Each registration gets
// its replay first and later deliveries in order. A delivery that arrives
// while the same observer is still running is queued and handed over once
// that call returns.
type Manager struct {
	source   Source
	logger   logging.Logger
	provider logging.LoggerProvider

	mu          sync.Mutex
	current     Session
	seq         uint64
	observers   map[uint64]*registration
	nextToken   uint64
	initialized bool
	resolved    bool
	generation  uint64
	unsubscribe func()
}

// NewManager creates an uninitialized Manager bound to source.
func NewManager(source Source) *Manager {
	provider, logger := logging.ResolveLogger(loggerName, nil, nil)
	return &Manager{
		source:    source,
		logger:    logger,
		provider:  provider,
		observers: make(map[uint64]*registration),
	}
}

// WithLogger sets the logger used for lifecycle and observer fault messages.
func (m *Manager) WithLogger(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	m.logger = logger
	return m
}

// WithLoggerProvider resolves the manager logger from provider.
func (m *Manager) WithLoggerProvider(provider logging.LoggerProvider) *Manager {
	m.provider, m.logger = logging.ResolveLogger(loggerName, provider, m.logger)
	return m
}

// Initialize attaches to the source. Calling it again before Cleanup logs a
// warning and does nothing.
func (m *Manager) Initialize() {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		m.logger.Warn("auth state manager already initialized")
		return
	}
	if m.source == nil {
		m.mu.Unlock()
		m.logger.Error("auth state manager has no session source")
		return
	}
	m.initialized = true
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.logger.Debug("auth state manager subscribing to session source")

	// The source may deliver synchronously from here, so no lock is held.
	unsubscribe := m.source.OnSessionChanged(func(session Session) {
		m.deliver(gen, session)
	})

	m.mu.Lock()
	if m.generation != gen {
		// Cleanup ran while we were attaching.
		m.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		return
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

// Subscribe registers observer and synchronously replays the cached Session
// to it before returning. The returned function removes this registration
// and is safe to call more than once.
func (m *Manager) Subscribe(observer Observer) func() {
	if observer == nil {
		return func() {}
	}

	m.mu.Lock()
	m.nextToken++
	token := m.nextToken
	reg := &registration{token: token, observer: observer, busy: true, last: m.seq}
	m.observers[token] = reg
	current := m.current
	m.mu.Unlock()

	// reg starts busy so deliveries racing the replay queue up behind it.
	m.invoke(token, observer, current, "replay")
	m.drain(reg)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, token)
			m.mu.Unlock()
		})
	}
}

// CurrentUser returns the cached Session.
func (m *Manager) CurrentUser() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsReady reports whether Initialize has run and Cleanup has not since.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// IsResolved reports whether the source delivered at least one Session since
// the last Initialize.
func (m *Manager) IsResolved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved
}

// Cleanup detaches from the source, drops every observer and resets the
// cached Session. It is safe to call repeatedly or before Initialize, and
// the Manager can be initialized again afterwards.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	wasInitialized := m.initialized
	m.unsubscribe = nil
	m.observers = make(map[uint64]*registration)
	m.current = SignedOut()
	m.initialized = false
	m.resolved = false
	m.generation++
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if wasInitialized {
		m.logger.Debug("auth state manager cleaned up")
	}
}

// ObserverCount returns the number of registered observers.
func (m *Manager) ObserverCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

func (m *Manager) deliver(gen uint64, session Session) {
	m.mu.Lock()
	if gen != m.generation || !m.initialized {
		m.mu.Unlock()
		m.logger.Debug("dropping session delivered after cleanup", "session", session.String())
		return
	}
	m.current = session
	m.resolved = true
	m.seq++
	seq := m.seq
	targets := make([]*registration, 0, len(m.observers))
	for _, reg := range m.observers {
		targets = append(targets, reg)
	}
	m.mu.Unlock()

	m.logger.Debug("notifying observers", "count", len(targets), "session", session.String())
	for _, reg := range targets {
		if reg.enqueue(queued{seq: seq, gen: gen, session: session}) {
			m.drain(reg)
		}
	}
}

// drain hands queued sessions to reg until its queue is empty. Only the
// caller that flipped reg to busy runs it.
func (m *Manager) drain(reg *registration) {
	for {
		item, ok := reg.next()
		if !ok {
			return
		}
		if !m.attached(reg, item.gen) {
			reg.reset()
			return
		}
		m.invoke(reg.token, reg.observer, item.session, "notify")
	}
}

// attached reports whether reg is still registered under generation gen.
func (m *Manager) attached(reg *registration, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen && m.observers[reg.token] == reg
}

// invoke runs a single observer, recovering and logging a panic so the
// remaining observers are still notified.
func (m *Manager) invoke(token uint64, observer Observer, session Session, phase string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("auth state observer failed",
				"phase", phase,
				"observer", token,
				"session", session.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	observer(session)
}

type queued struct {
	seq     uint64
	gen     uint64
	session Session
}

type registration struct {
	token    uint64
	observer Observer

	mu      sync.Mutex
	busy    bool
	last    uint64
	pending []queued
}

// enqueue queues item unless a newer one was already queued. It returns
// true when the caller now owns the queue and must drain it.
func (r *registration) enqueue(item queued) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.seq <= r.last {
		return false
	}
	r.last = item.seq
	r.pending = append(r.pending, item)
	if r.busy {
		return false
	}
	r.busy = true
	return true
}

// next pops the oldest queued session, or clears busy when none is left.
func (r *registration) next() (queued, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		r.busy = false
		return queued{}, false
	}
	item := r.pending[0]
	r.pending = r.pending[1:]
	return item, true
}

func (r *registration) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	r.busy = false
}
