// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a field staff account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time
}
