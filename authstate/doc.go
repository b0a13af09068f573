// Package authstate keeps a single, process wide view of who is signed in.
//
// A Manager attaches lazily to a Source (an identity provider exposing a
// change stream) and fans every delivered Session out to its observers. New
// observers are replayed the cached Session synchronously on Subscribe, so no
// consumer ever misses the current state because of registration timing.
//
// The Manager is meant to be built once by the composition root and passed
// by reference:
//
//	manager := authstate.NewManager(repo).WithLogger(logger)
//	store := authstate.NewUserStore()
//	store.Bind(manager)
//
//	manager.Initialize()
//	defer manager.Cleanup()
//
// A UserStore is the view side binding: it registers exactly one observer
// and exposes the resulting user, authentication and loading flags.
package authstate
