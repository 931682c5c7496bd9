package model

import "time"

// Session is the persisted remote session. Tokens are sealed before they
// reach the device store.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

const (
	AuthEventSignedIn       = "SIGNED_IN"
	AuthEventSignedOut      = "SIGNED_OUT"
	AuthEventTokenRefreshed = "TOKEN_REFRESHED"
	AuthEventUserUpdated    = "USER_UPDATED"
)

// AuthEvent is an out-of-band identity notification from the backend. The
// auth topic is shared by every device, so each event names its user.
type AuthEvent struct {
	Type    string   `json:"type"`
	UserID  string   `json:"user_id,omitempty"`
	Session *Session `json:"session,omitempty"`
}

// Subject is the user the event is about: UserID, else the session's user.
func (e AuthEvent) Subject() string {
	if e.UserID != "" {
		return e.UserID
	}
	if e.Session != nil {
		return e.Session.UserID
	}
	return ""
}
