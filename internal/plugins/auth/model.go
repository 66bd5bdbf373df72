// Package auth resolves the Workdeck session behind a request. Sessions are
// created by the Workdeck login service and stored in Redis; this plugin only
// reads them, refreshes their TTL and exposes them to downstream handlers.
// Login, logout and registration live outside this application.
package auth

import (
	"time"
)

// Session is the JSON value stored under "session:<token>" in Redis.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`

	// APIToken is the bearer token used against the Workdeck REST API on
	// the user's behalf. Never rendered or logged.
	APIToken string `json:"api_token"`

	CreatedAt time.Time `json:"created_at"`
}
