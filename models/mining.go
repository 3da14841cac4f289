package models

import "github.com/shopspring/decimal"

// SessionStatus is the lifecycle state of a mining session.
// Stopped is terminal: the accrued reward has been credited server-side
// and the session disappears from the active list on the next refresh.
type SessionStatus string

const (
	SessionActive  SessionStatus = "Active"
	SessionPaused  SessionStatus = "Paused"
	SessionStopped SessionStatus = "Stopped"
)

// SessionAction is a client-initiated transition request.
type SessionAction string

const (
	ActionPause  SessionAction = "pause"
	ActionResume SessionAction = "resume"
	ActionStop   SessionAction = "stop"
)

// Allows reports whether the action is a legal transition out of the
// current status. The server remains authoritative; this only rejects
// requests that cannot possibly succeed.
func (s SessionStatus) Allows(action SessionAction) bool {
	switch action {
	case ActionPause:
		return s == SessionActive
	case ActionResume:
		return s == SessionPaused
	case ActionStop:
		return s == SessionActive || s == SessionPaused
	default:
		return false
	}
}

// MiningSession is the client's snapshot of one running deposit-to-mining
// allocation. Identity is SessionID; one user may own many at once.
type MiningSession struct {
	SessionID          int             `json:"session_id"`
	CryptoType         CryptoType      `json:"crypto_type"`
	DepositedAmount    decimal.Decimal `json:"deposited_amount"`
	MiningRate         decimal.Decimal `json:"mining_rate"` // percent of the deposit per day
	CurrentMined       decimal.Decimal `json:"current_mined"`
	MiningPerSecond    decimal.Decimal `json:"mining_per_second"`
	ProgressPercentage float64         `json:"progress_percentage"`
	ElapsedHours       float64         `json:"elapsed_hours"`
	Status             SessionStatus   `json:"status"`
	Balance            decimal.Decimal `json:"balance"`
}

// LiveProgress is the payload of POST /api/mining/live-progress. Mined
// amounts accrue continuously server-side, so this is the one entity the
// client polls on a standing 5s timer.
type LiveProgress struct {
	Message    string          `json:"message"`
	TotalMined decimal.Decimal `json:"total_mined"`
	Sessions   []MiningSession `json:"sessions"`
}

// Session looks up a session snapshot by id.
func (p LiveProgress) Session(id int) (MiningSession, bool) {
	for _, s := range p.Sessions {
		if s.SessionID == id {
			return s, true
		}
	}
	return MiningSession{}, false
}
