package session

import "time"

// Role is what the wallet holder is acting as.
type Role string

const (
	RoleScientist Role = "Scientist"
	RoleFunder    Role = "Funder"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleScientist || r == RoleFunder
}

// SessionStatus represents the lifecycle status of a session
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

// Session is an authenticated wallet session.
type Session struct {
	ID            string        `json:"id"`
	WalletAddress string        `json:"wallet_address"`
	Role          Role          `json:"role"`
	Status        SessionStatus `json:"status"`
	PoRAllowance  int64         `json:"por_allowance"`
	CreatedAt     time.Time     `json:"created_at"`
	LastActivity  time.Time     `json:"last_activity"`
	ClosedAt      *time.Time    `json:"closed_at,omitempty"`
}

// StartResult is returned by Start.
type StartResult struct {
	Session  *Session `json:"session"`
	Projects int      `json:"projects"`
	Warnings []string `json:"warnings,omitempty"`
}
