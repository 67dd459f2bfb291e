// Package session models the dashboard's sign-in state for one browser client.
package session

import "time"

// State is the router state of a client.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Session is the in-memory record of a signed-in user. It is never persisted.
type Session struct {
	ClientID    string    `json:"-"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"-"`
	SignedInAt  time.Time `json:"signed_in_at"`
}

// NoticeLevel selects how a notice is rendered.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible banner message.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}
