package domain

import (
	"errors"
	"time"
)

// DefaultAvatar is assigned when a user registers without an avatar.
const DefaultAvatar = "https://icon-library.com/images/anonymous-avatar-icon/anonymous-avatar-icon-25.jpg"

// ErrDuplicateUser is returned by the record store when the email or
// username is already taken.
var ErrDuplicateUser = errors.New("user already exists")

type Links struct {
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	Avatar       string
	Bio          string
	Links        Links
	GoogleID     string
	CreatedAt    time.Time
}
