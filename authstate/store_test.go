package authstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStoreStartsLoading(t *testing.T) {
	store := authstate.NewUserStore()

	state := store.State()
	assert.True(t, state.IsLoading)
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.User.IsSignedIn())
}

func TestUserStoreTracksManager(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	store := authstate.NewUserStore()

	store.Bind(manager)
	assert.True(t, store.IsLoading(), "replay before the source resolves keeps loading")
	assert.Equal(t, 1, manager.ObserverCount())

	manager.Initialize()
	source.emit(user("u1"))

	state := store.State()
	assert.False(t, state.IsLoading)
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "u1", state.User.UserID())

	source.emit(authstate.SignedOut())
	assert.False(t, store.IsAuthenticated())
	assert.False(t, store.IsLoading())
}

func TestUserStoreBindAfterResolution(t *testing.T) {
	source := newFakeSource()
	initial := user("u1")
	source.initial = &initial
	manager, _ := newManager(source)
	manager.Initialize()

	store := authstate.NewUserStore()
	store.Bind(manager)

	assert.False(t, store.IsLoading())
	assert.Equal(t, "u1", store.User().UserID())
}

func TestUserStoreRebindKeepsSingleRegistration(t *testing.T) {
	manager, _ := newManager(newFakeSource())
	store := authstate.NewUserStore()

	store.Bind(manager)
	store.Bind(manager)
	assert.Equal(t, 1, manager.ObserverCount())

	store.Unbind()
	store.Unbind()
	assert.Equal(t, 0, manager.ObserverCount())
}

func TestUserStoreWaitReady(t *testing.T) {
	t.Run("returns after the first resolved delivery", func(t *testing.T) {
		source := authstate.SourceFunc(func(fn func(authstate.Session)) func() {
			go func() {
				time.Sleep(10 * time.Millisecond)
				fn(user("u1"))
			}()
			return func() {}
		})
		manager, _ := newManager(source)
		store := authstate.NewUserStore()
		store.Bind(manager)
		manager.Initialize()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		state, err := store.WaitReady(ctx)
		require.NoError(t, err)
		assert.True(t, state.IsAuthenticated)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		store := authstate.NewUserStore()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		state, err := store.WaitReady(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, state.IsLoading)
	})
}

func TestUserStoreOnChange(t *testing.T) {
	source := newFakeSource()
	manager, _ := newManager(source)
	store := authstate.NewUserStore()
	store.Bind(manager)
	manager.Initialize()

	var seen []authstate.State
	remove := store.OnChange(func(s authstate.State) {
		seen = append(seen, s)
	})

	source.emit(user("u1"))
	remove()
	source.emit(user("u2"))

	require.Len(t, seen, 1)
	assert.Equal(t, "u1", seen[0].User.UserID())
	assert.Equal(t, "u2", store.User().UserID())
}

func TestSessionValueSemantics(t *testing.T) {
	var zero authstate.Session
	assert.False(t, zero.IsSignedIn())
	assert.True(t, zero.Equal(authstate.SignedOut()))
	assert.Equal(t, "signed-out", zero.String())

	record := authstate.Record{ID: "u1", PhotoURL: "https://example.com/a.png"}
	s := authstate.SignedIn(record)
	record.ID = "mutated"

	got, ok := s.Record()
	require.True(t, ok)
	assert.Equal(t, "u1", got.ID)
	assert.True(t, s.Equal(authstate.SignedIn(authstate.Record{ID: "u1", PhotoURL: "https://example.com/a.png"})))
	assert.False(t, s.Equal(zero))
	assert.Equal(t, "signed-in(u1)", s.String())
}
