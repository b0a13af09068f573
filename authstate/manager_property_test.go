//go:build property
// +build property

package authstate_test

import (
	"testing"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestManagerProperties exercises replay and fan-out over random delivery
// sequences. An empty ID stands for a signed out delivery.
func TestManagerProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	toSession := func(id string) authstate.Session {
		if id == "" {
			return authstate.SignedOut()
		}
		return user(id)
	}

	properties.Property("late subscriber sees the latest delivery", prop.ForAll(
		func(ids []string) bool {
			source := newFakeSource()
			manager, _ := newManager(source)
			manager.Initialize()

			for _, id := range ids {
				source.emit(toSession(id))
			}

			rec := &recorder{}
			manager.Subscribe(rec.observe)

			want := authstate.SignedOut()
			if len(ids) > 0 {
				want = toSession(ids[len(ids)-1])
			}
			return len(rec.all()) == 1 && rec.last().Equal(want) && manager.CurrentUser().Equal(want)
		},
		gen.SliceOf(gen.OneGenOf(gen.Const(""), gen.Identifier())),
	))

	properties.Property("every observer sees every delivery in order", prop.ForAll(
		func(observers int, ids []string) bool {
			source := newFakeSource()
			manager, _ := newManager(source)
			manager.Initialize()

			recorders := make([]*recorder, observers)
			for i := range recorders {
				recorders[i] = &recorder{}
				manager.Subscribe(recorders[i].observe)
			}

			for _, id := range ids {
				source.emit(toSession(id))
			}

			for _, rec := range recorders {
				sessions := rec.all()
				if len(sessions) != len(ids)+1 {
					return false
				}
				for i, id := range ids {
					if !sessions[i+1].Equal(toSession(id)) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.OneGenOf(gen.Const(""), gen.Identifier())),
	))

	properties.Property("cleanup always resets", prop.ForAll(
		func(ids []string, cleanups int) bool {
			source := newFakeSource()
			manager, _ := newManager(source)
			manager.Initialize()
			for _, id := range ids {
				source.emit(toSession(id))
			}
			for i := 0; i < cleanups; i++ {
				manager.Cleanup()
			}
			return !manager.IsReady() && !manager.CurrentUser().IsSignedIn() && manager.ObserverCount() == 0
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(1, 3),
	))

	properties.TestingRun(t)
}
