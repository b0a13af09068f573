package authstate_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func (l *captureLogger) byLevel(level string) []logCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logCall
	for _, c := range l.calls {
		if c.level == level {
			out = append(out, c)
		}
	}
	return out
}

// fakeSource records subscriptions and lets tests push sessions.
type fakeSource struct {
	mu               sync.Mutex
	subscribeCalls   int
	unsubscribeCalls int
	callbacks        map[int]func(authstate.Session)
	nextID           int

	// initial, when set, is delivered synchronously on subscribe.
	initial *authstate.Session
}

func newFakeSource() *fakeSource {
	return &fakeSource{callbacks: make(map[int]func(authstate.Session))}
}

func (f *fakeSource) OnSessionChanged(fn func(authstate.Session)) func() {
	f.mu.Lock()
	f.subscribeCalls++
	f.nextID++
	id := f.nextID
	f.callbacks[id] = fn
	initial := f.initial
	f.mu.Unlock()

	if initial != nil {
		fn(*initial)
	}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribeCalls++
		delete(f.callbacks, id)
	}
}

func (f *fakeSource) emit(session authstate.Session) {
	f.mu.Lock()
	callbacks := make([]func(authstate.Session), 0, len(f.callbacks))
	for _, fn := range f.callbacks {
		callbacks = append(callbacks, fn)
	}
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(session)
	}
}

func (f *fakeSource) subscriptions() (subscribed, unsubscribed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribeCalls, f.unsubscribeCalls
}

type recorder struct {
	mu       sync.Mutex
	sessions []authstate.Session
}

func (r *recorder) observe(s authstate.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *recorder) all() []authstate.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]authstate.Session(nil), r.sessions...)
}

func (r *recorder) last() authstate.Session {
	all := r.all()
	if len(all) == 0 {
		return authstate.SignedOut()
	}
	return all[len(all)-1]
}

func user(id string) authstate.Session {
	return authstate.SignedIn(authstate.Record{ID: id, Email: id + "@example.com", DisplayName: id})
}

func newManager(source authstate.Source) (*authstate.Manager, *captureLogger) {
	logger := &captureLogger{}
	return authstate.NewManager(source).WithLogger(logger), logger
}

func TestManagerInitializeIsIdempotent(t *testing.T) {
	source := newFakeSource()
	manager, logger := newManager(source)

	manager.Initialize()
	manager.Initialize()

	subscribed, _ := source.subscriptions()
	assert.Equal(t, 1, subscribed)
	assert.True(t, manager.IsReady())
	require.Len(t, logger.byLevel("warn"), 1)
	assert.Equal(t, "auth state manager already initialized", logger.byLevel("warn")[0].message)
}

func TestManagerSubscribeReplaysCurrentSession(t *testing.T) {
	t.Run("signed out before any delivery", func(t *testing.T) {
		manager, _ := newManager(newFakeSource())
		manager.Initialize()

		rec := &recorder{}
		manager.Subscribe(rec.observe)

		require.Len(t, rec.all(), 1)
		assert.False(t, rec.last().IsSignedIn())
	})

	t.Run("latest of many deliveries", func(t *testing.T) {
		source := newFakeSource()
		manager, _ := newManager(source)
		manager.Initialize()

		source.emit(user("u1"))
		source.emit(authstate.SignedOut())
		source.emit(user("u3"))

		rec := &recorder{}
		manager.Subscribe(rec.observe)

		require.Len(t, rec.all(), 1)
		assert.Equal(t, "u3", rec.last().UserID())
	})

	t.Run("before initialize", func(t *testing.T) {
		source := newFakeSource()
		manager, _ := newManager(source)

		rec := &recorder{}
		manager.Subscribe(rec.observe)
		require.Len(t, rec.all(), 1)
		assert.False(t, rec.last().IsSignedIn())

		manager.Initialize()
		source.emit(user("u1"))

		require.Len(t, rec.all(), 2)
		assert.Equal(t, "u1", rec.last().UserID())
	})
}

func TestManagerFanOutReachesEveryObserver(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	a, b, c := &recorder{}, &recorder{}, &recorder{}
	manager.Subscribe(c.observe)
	manager.Subscribe(a.observe)
	manager.Subscribe(b.observe)

	source.emit(user("u1"))

	for name, rec := range map[string]*recorder{"a": a, "b": b, "c": c} {
		sessions := rec.all()
		require.Len(t, sessions, 2, name)
		assert.Equal(t, "u1", sessions[1].UserID(), name)
	}
	assert.Equal(t, 3, manager.ObserverCount())
}

func TestManagerIsolatesObserverPanics(t *testing.T) {
	source := newFakeSource()
	manager, logger := newManager(source)
	manager.Initialize()

	a, c := &recorder{}, &recorder{}
	manager.Subscribe(a.observe)
	manager.Subscribe(func(s authstate.Session) {
		if s.IsSignedIn() {
			panic("broken binding")
		}
	})
	manager.Subscribe(c.observe)

	require.NotPanics(t, func() { source.emit(user("u1")) })

	assert.Equal(t, "u1", a.last().UserID())
	assert.Equal(t, "u1", c.last().UserID())

	errs := logger.byLevel("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "auth state observer failed", errs[0].message)
	assert.Contains(t, errs[0].args, "broken binding")
	assert.Contains(t, errs[0].args, "notify")
}

func TestManagerRecoversPanicDuringReplay(t *testing.T) {
	manager, logger := newManager(newFakeSource())

	require.NotPanics(t, func() {
		manager.Subscribe(func(authstate.Session) { panic("replay failed") })
	})

	errs := logger.byLevel("error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].args, "replay")
}

func TestManagerUnsubscribe(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	gone, kept := &recorder{}, &recorder{}
	unsubscribe := manager.Subscribe(gone.observe)
	manager.Subscribe(kept.observe)

	unsubscribe()
	source.emit(user("u1"))

	assert.Len(t, gone.all(), 1)
	assert.Len(t, kept.all(), 2)

	require.NotPanics(t, unsubscribe)
	assert.Equal(t, 1, manager.ObserverCount())
}

func TestManagerUnsubscribeFromInsideCallback(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	var calls int
	var unsubscribe func()
	unsubscribe = manager.Subscribe(func(s authstate.Session) {
		calls++
		if s.IsSignedIn() {
			unsubscribe()
		}
	})

	source.emit(user("u1"))
	source.emit(user("u2"))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, manager.ObserverCount())
}

func TestManagerCleanupResetsState(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	rec := &recorder{}
	manager.Subscribe(rec.observe)
	source.emit(user("u1"))

	manager.Cleanup()

	assert.False(t, manager.CurrentUser().IsSignedIn())
	assert.False(t, manager.IsReady())
	assert.False(t, manager.IsResolved())
	assert.Equal(t, 0, manager.ObserverCount())

	subscribed, unsubscribed := source.subscriptions()
	assert.Equal(t, 1, subscribed)
	assert.Equal(t, 1, unsubscribed)

	source.emit(user("u2"))
	assert.Len(t, rec.all(), 2)

	manager.Initialize()
	subscribed, _ = source.subscriptions()
	assert.Equal(t, 2, subscribed)
	assert.True(t, manager.IsReady())
}

func TestManagerCleanupIsSafeWithoutInitialize(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)

	require.NotPanics(t, func() {
		manager.Cleanup()
		manager.Cleanup()
	})

	subscribed, unsubscribed := source.subscriptions()
	assert.Zero(t, subscribed)
	assert.Zero(t, unsubscribed)
}

func TestManagerDropsDeliveriesFromDetachedSubscription(t *testing.T) {
	var stale func(authstate.Session)
	source := authstate.SourceFunc(func(fn func(authstate.Session)) func() {
		stale = fn
		// This source ignores unsubscribe, like a provider that already
		// queued a callback.
		return func() {}
	})
	manager, _ := newManager(source)
	manager.Initialize()
	manager.Cleanup()

	rec := &recorder{}
	manager.Subscribe(rec.observe)
	stale(user("u1"))

	assert.False(t, manager.CurrentUser().IsSignedIn())
	assert.Len(t, rec.all(), 1)
}

func TestManagerCurrentUserHasNoSideEffects(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)

	rec := &recorder{}
	manager.Subscribe(rec.observe)

	for i := 0; i < 10; i++ {
		manager.CurrentUser()
	}

	subscribed, _ := source.subscriptions()
	assert.Zero(t, subscribed)
	assert.Len(t, rec.all(), 1)
}

func TestManagerHandlesSynchronousInitialDelivery(t *testing.T) {
	source := newFakeSource()
	initial := user("u1")
	source.initial = &initial

	manager, _ := newManager(source)
	manager.Initialize()

	assert.Equal(t, "u1", manager.CurrentUser().UserID())
	assert.True(t, manager.IsResolved())

	rec := &recorder{}
	manager.Subscribe(rec.observe)
	assert.Equal(t, "u1", rec.last().UserID())
}

func TestManagerHandlesAsynchronousInitialDelivery(t *testing.T) {
	source := authstate.SourceFunc(func(fn func(authstate.Session)) func() {
		go fn(user("u1"))
		return func() {}
	})
	manager, _ := newManager(source)

	rec := &recorder{}
	manager.Subscribe(rec.observe)
	manager.Initialize()

	require.Eventually(t, func() bool {
		return rec.last().UserID() == "u1"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, manager.IsResolved())
}

func TestManagerExampleScenario(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)

	manager.Initialize()
	assert.False(t, manager.CurrentUser().IsSignedIn())

	rec := &recorder{}
	manager.Subscribe(rec.observe)
	require.Len(t, rec.all(), 1)
	assert.False(t, rec.last().IsSignedIn())

	record := authstate.Record{ID: "u1", Email: "a@b.com", DisplayName: "A"}
	source.emit(authstate.SignedIn(record))

	got, ok := rec.last().Record()
	require.True(t, ok)
	assert.Equal(t, record, got)
	current, ok := manager.CurrentUser().Record()
	require.True(t, ok)
	assert.Equal(t, record, current)

	manager.Cleanup()
	assert.False(t, manager.CurrentUser().IsSignedIn())
	assert.False(t, manager.IsReady())
}

func TestManagerOrderingUnderConcurrency(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	const deliveries = 200
	const subscribers = 20

	var wg sync.WaitGroup
	recorders := make([]*recorder, subscribers)
	for i := range recorders {
		recorders[i] = &recorder{}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= deliveries; i++ {
			source.emit(user(fmt.Sprintf("%04d", i)))
		}
	}()

	for _, rec := range recorders {
		wg.Add(1)
		go func(rec *recorder) {
			defer wg.Done()
			manager.Subscribe(rec.observe)
		}(rec)
	}
	wg.Wait()

	for _, rec := range recorders {
		sessions := rec.all()
		require.NotEmpty(t, sessions)
		for i := 1; i < len(sessions); i++ {
			prev, next := sessions[i-1].UserID(), sessions[i].UserID()
			assert.Less(t, prev, next, "observer saw %q after %q", next, prev)
		}
		assert.Equal(t, fmt.Sprintf("%04d", deliveries), rec.last().UserID())
	}
}

func TestManagerSubscribeFromInsideObserver(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()
	source.emit(user("u1"))

	late := &recorder{}
	var once sync.Once
	outer := &recorder{}
	manager.Subscribe(func(s authstate.Session) {
		outer.observe(s)
		if s.UserID() == "u2" {
			once.Do(func() { manager.Subscribe(late.observe) })
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		source.emit(user("u2"))
		source.emit(user("u3"))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe from inside an observer never returned")
	}

	ids := func(r *recorder) []string {
		var out []string
		for _, s := range r.all() {
			out = append(out, s.UserID())
		}
		return out
	}
	assert.Equal(t, []string{"u1", "u2", "u3"}, ids(outer))
	assert.Equal(t, []string{"u2", "u3"}, ids(late))
	assert.Equal(t, 2, manager.ObserverCount())
}

func TestManagerQueuesDeliveryRaisedByObserver(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	var seen []string
	manager.Subscribe(func(s authstate.Session) {
		seen = append(seen, s.UserID())
		if s.UserID() == "u1" {
			source.emit(user("u2"))
			assert.Equal(t, []string{"", "u1"}, seen, "nested delivery must wait for the running call")
		}
	})

	source.emit(user("u1"))

	assert.Equal(t, []string{"", "u1", "u2"}, seen)
	assert.Equal(t, "u2", manager.CurrentUser().UserID())
}

func TestManagerStopsFanOutAfterCleanupInObserver(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	manager.Initialize()

	var mu sync.Mutex
	var notified int
	for i := 0; i < 5; i++ {
		manager.Subscribe(func(s authstate.Session) {
			if !s.IsSignedIn() {
				return
			}
			mu.Lock()
			notified++
			mu.Unlock()
			manager.Cleanup()
		})
	}

	source.emit(user("u1"))

	assert.Equal(t, 1, notified)
	assert.Equal(t, 0, manager.ObserverCount())
	assert.False(t, manager.CurrentUser().IsSignedIn())
}
