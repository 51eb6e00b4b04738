package uid

import "github.com/google/uuid"

// NewSessionID returns a random UUIDv4 identifying one device session.
func NewSessionID() string {
	return uuid.NewString()
}

// NewUserID returns a random UUIDv4 for a newly created user record.
func NewUserID() string {
	return uuid.NewString()
}
