// Package models holds the server-side domain records.
package models

import "time"

// User is the stored identity record. PasswordHash and RefreshTokenHash
// never leave the service layer; handlers only ever see SafeUser.
type User struct {
	ID               string
	Name             string
	Email            string
	Gender           string
	PasswordHash     string
	RefreshTokenHash string
	TokenVersion     int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SafeUser is the projection of User embedded in tokens and returned to
// clients.
type SafeUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Gender:    u.Gender,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
