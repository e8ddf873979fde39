package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProfileSnapshotMaxLen = 5000
	HandleMaxLen          = 50
)

type Recipient struct {
	ID              string    `json:"id"`
	WorkspaceID     string    `json:"workspace_id"`
	Handle          string    `json:"handle"`
	Email           string    `json:"email,omitempty"`
	Name            string    `json:"name,omitempty"`
	ProfileSnapshot *string   `json:"profile_snapshot"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizeHandle trims whitespace and a leading "@" and lowercases the rest.
func NormalizeHandle(handle string) (string, error) {
	h := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if h == "" {
		return "", fmt.Errorf("handle is required")
	}
	if len(h) > HandleMaxLen || strings.ContainsAny(h, " \t\r\n/?#") {
		return "", fmt.Errorf("invalid handle %q", handle)
	}
	return h, nil
}

// NormalizeAddress accepts an empty address; anything else must parse.
func NormalizeAddress(address string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if a == "" {
		return "", nil
	}
	parsed, err := mail.ParseAddress(a)
	if err != nil || parsed.Address != a {
		return "", fmt.Errorf("invalid email address %q", address)
	}
	return a, nil
}

func NewRecipient(workspaceID, handle, email, name string, snapshot *string) *Recipient {
	now := time.Now()
	return &Recipient{
		ID:              uuid.New().String(),
		WorkspaceID:     workspaceID,
		Handle:          handle,
		Email:           email,
		Name:            strings.TrimSpace(name),
		ProfileSnapshot: snapshot,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (r *Recipient) HasAddress() bool {
	return strings.TrimSpace(r.Email) != ""
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
