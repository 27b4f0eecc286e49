package domain

type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "PENDING"
	SessionStatusVerified SessionStatus = "VERIFIED"
	SessionStatusRejected SessionStatus = "REJECTED"
	SessionStatusCOD      SessionStatus = "COD"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusVerified || s == SessionStatusRejected || s == SessionStatusCOD
}

// CanTransitionTo reports whether a checkout session may move from s to next.
// COD sessions are created terminal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s != SessionStatusPending {
		return false
	}
	return next == SessionStatusVerified || next == SessionStatusRejected
}

// String representation (for logging)
func (s SessionStatus) String() string {
	return string(s)
}
