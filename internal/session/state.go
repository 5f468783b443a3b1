package session

import (
	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/user"
)

type Phase int

const (
	// PhaseUnknown lasts until the provider reports its first state.
	PhaseUnknown Phase = iota
	PhaseUnauthenticated
	// PhaseAuthenticated means signed in with the profile still loading.
	PhaseAuthenticated
	PhaseProfileReady
	// PhaseProfileError means signed in but the profile could not be loaded.
	// It is not a signed-out state.
	PhaseProfileError
)

func (p Phase) String() string {
	switch p {
	case PhaseUnknown:
		return "unknown"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseProfileReady:
		return "profile_ready"
	case PhaseProfileError:
		return "profile_error"
	}
	return "invalid"
}

// State is a snapshot of the session. Profile is only ever set together
// with Identity.
type State struct {
	Phase    Phase
	Identity identity.Principal
	Profile  *user.User
	Loading  bool
}

func (s State) IsAuthenticated() bool {
	return s.Identity != nil
}

// UID is the signed-in user's id, or "".
func (s State) UID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UID()
}
