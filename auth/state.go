package auth

import (
	"github.com/lukaszraczylo/authflow/internal/providers"
)

// State is the phase of the login flow.
type State int

const (
	// StateIdle means no flow is in progress and nobody is logged in.
	StateIdle State = iota
	// StateAwaitingRedirect means the user was sent to the provider.
	StateAwaitingRedirect
	// StateResuming means the redirect came back and is being processed.
	StateResuming
	// StateAuthenticated means user info was retrieved.
	StateAuthenticated
	// StateFailed is entered when resuming fails, just before logout.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateResuming:
		return "resuming"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is the observable state of a controller, the equivalent of what
// a UI binding renders: whether it is loading, who is logged in and how.
type Snapshot struct {
	State         State
	Authenticated bool
	Loading       bool
	Provider      string
	User          *providers.UserProfile
}

// Result is returned by a successful Resume.
type Result struct {
	Provider string
	User     *providers.UserProfile
	Token    *providers.TokenResponse
	// Exchanged is false when a cached access token was reused.
	Exchanged bool
}
