package sessionkit

import (
	"context"
	"strings"
)

// User is the identity record returned by the remote lookup and cached on
// the device. It is replaced wholesale on every sign-in.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials carries the sign-in input. Only an email is exchanged; there is
// no password or token and the lookup is not a security boundary.
type Credentials struct {
	Email string `json:"email"`
}

func (c Credentials) normalized() Credentials {
	return Credentials{Email: strings.TrimSpace(c.Email)}
}

// State is the observable session pair handed to consumers.
type State struct {
	User    *User
	Loading bool
}

// Phase is the state machine position derived from a [State].
type Phase uint8

const (
	// PhaseLoading means the persisted record has not been read yet.
	PhaseLoading Phase = iota
	// PhaseSignedOut means no user is cached.
	PhaseSignedOut
	// PhaseSignedIn means a user is cached.
	PhaseSignedIn
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSignedOut:
		return "signed_out"
	case PhaseSignedIn:
		return "signed_in"
	default:
		return "unknown"
	}
}

// Phase reports where s sits in the session state machine.
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.User == nil:
		return PhaseSignedOut
	default:
		return PhaseSignedIn
	}
}

// SignedIn reports whether s holds a user.
func (s State) SignedIn() bool {
	return s.User != nil
}

func (s State) equal(other State) bool {
	if s.Loading != other.Loading {
		return false
	}
	if s.User == nil || other.User == nil {
		return s.User == other.User
	}
	return *s.User == *other.User
}

func (s State) clone() State {
	if s.User == nil {
		return s
	}
	u := *s.User
	return State{User: &u, Loading: s.Loading}
}

// Lookup resolves an email to a [User] on the remote side. The remote
// package provides the HTTP implementation.
type Lookup interface {
	LookupSession(ctx context.Context, creds Credentials) (User, error)
}

// LookupFunc adapts a function to [Lookup].
type LookupFunc func(ctx context.Context, creds Credentials) (User, error)

// LookupSession calls f.
func (f LookupFunc) LookupSession(ctx context.Context, creds Credentials) (User, error) {
	return f(ctx, creds)
}

// Listener receives the new state after every change.
type Listener func(State)
