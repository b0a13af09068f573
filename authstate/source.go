package authstate

// Observer receives every Session the Manager publishes.
type Observer func(Session)

// Source is an identity provider change stream. Implementations may deliver
// an initial value synchronously from OnSessionChanged or later from another
// goroutine. The returned function detaches the callback.
type Source interface {
	OnSessionChanged(fn func(Session)) (unsubscribe func())
}

// SourceFunc adapts a function to Source.
type SourceFunc func(fn func(Session)) func()

// OnSessionChanged implements Source.
func (f SourceFunc) OnSessionChanged(fn func(Session)) func() {
	return f(fn)
}
