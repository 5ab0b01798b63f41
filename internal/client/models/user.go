// Package models defines the client-side view of server resources.
package models

import "time"

// User mirrors the server's safe user projection. It is also the "user"
// claim embedded in access tokens.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Display is the short form shown in the CLI prompt.
func (u User) Display() string {
	if u.Name == "" {
		return u.Email
	}
	return u.Name + " <" + u.Email + ">"
}
