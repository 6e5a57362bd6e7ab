// Package queue defines message payloads exchanged over the message broker.
package queue

// AuthActivityEvent is published for every register and login attempt,
// successful or not. It gives downstream consumers enough context to
// audit authentication activity without querying the primary database.
// Passwords and hashes never appear here.
type AuthActivityEvent struct {
	Action  string `json:"action"`            // "register" or "login"
	Outcome string `json:"outcome"`           // "success", "duplicate_email", "invalid_credentials", "error"
	Email   string `json:"email"`             // normalized email the attempt was made with
	UserID  uint64 `json:"user_id,omitempty"` // set on success
	At      string `json:"at"`                // RFC3339 UTC timestamp of the attempt
}
