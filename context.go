package sessionkit

import "context"

type storeContextKey struct{}

// WithStore returns a child of ctx that carries s. It is the scope consumers
// resolve their session through.
func WithStore(ctx context.Context, s *Store) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, storeContextKey{}, s)
}

// FromContext returns the store attached by [WithStore], or
// [ErrContextUnavailable] when there is none.
func FromContext(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, ErrContextUnavailable
	}
	s, _ := ctx.Value(storeContextKey{}).(*Store)
	if s == nil {
		return nil, ErrContextUnavailable
	}
	return s, nil
}

// MustFromContext is [FromContext] for call sites where a missing store is a
// wiring bug. It panics with [ErrContextUnavailable].
func MustFromContext(ctx context.Context) *Store {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
