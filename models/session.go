package models

// UnknownIdentity is stamped when the hosting environment provides no value
const UnknownIdentity = "unknown"

// SessionContext is the identity of one notebook session, resolved once at
// session start and read-only afterwards.
type SessionContext struct {
	Username    string `json:"username"`
	SessionName string `json:"session_name"`
}

// NewSessionContext applies the placeholder identity to empty values
func NewSessionContext(username, sessionName string) SessionContext {
	if username == "" {
		username = UnknownIdentity
	}
	if sessionName == "" {
		sessionName = UnknownIdentity
	}
	return SessionContext{Username: username, SessionName: sessionName}
}
