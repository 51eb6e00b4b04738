package domain

// SessionInfo is the client-facing view of a live session. Current marks the
// session whose refresh cookie accompanied the request.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
	Current   bool   `json:"current"`
}
