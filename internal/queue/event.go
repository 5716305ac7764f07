// Package queue defines message payloads exchanged over the message broker.
package queue

// AccountRegisteredQueue is the durable queue account events are routed to.
const AccountRegisteredQueue = "account.registered"

// AccountRegisteredEvent is published after a new account row is committed.
// It carries public fields only; the credential digest is never published.
type AccountRegisteredEvent struct {
	Login        string `json:"login"`
	DisplayName  string `json:"name"`
	Language     string `json:"language"`
	RegisteredAt string `json:"registered_at"`
}
