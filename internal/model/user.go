package model

import (
	"time"

	"github.com/google/uuid"
)

// User is created on Google sign-in. The OAuth tokens are what the mail
// transport sends with, so they never leave the server.
type User struct {
	ID           string    `json:"id"`
	GoogleID     string    `json:"-"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewUser(googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New().String(),
		GoogleID:     googleID,
		Email:        email,
		Name:         name,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpiry:  tokenExpiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanSendMail reports whether the user granted a usable Gmail token.
func (u *User) CanSendMail() bool {
	return u.AccessToken != "" || u.RefreshToken != ""
}
