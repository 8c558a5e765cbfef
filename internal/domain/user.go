package domain

import "time"

// User is a single account held by the directory.
type User struct {
	ID        int64
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfilePatch carries the replacement values for the mutable profile fields.
type ProfilePatch struct {
	Email     string
	FirstName string
	LastName  string
}
