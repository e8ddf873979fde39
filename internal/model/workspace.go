package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	WorkspaceNameMaxLen = 60
)

type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
	ColorPink   Color = "pink"
	ColorTeal   Color = "teal"
)

var colors = map[Color]bool{
	ColorBlue: true, ColorGreen: true, ColorPurple: true,
	ColorOrange: true, ColorPink: true, ColorTeal: true,
}

// ParseColor defaults an empty value to blue.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return ColorBlue, nil
	}
	if !colors[c] {
		return "", fmt.Errorf("invalid color %q", s)
	}
	return c, nil
}

type Workspace struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Color     Color     `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewWorkspace(ownerID, name string, color Color) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}
	if utf8.RuneCountInString(name) > WorkspaceNameMaxLen {
		return nil, fmt.Errorf("workspace name must be at most %d characters", WorkspaceNameMaxLen)
	}
	if color == "" {
		color = ColorBlue
	}
	now := time.Now()
	return &Workspace{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (w *Workspace) OwnedBy(userID string) bool {
	return w != nil && userID != "" && w.OwnerID == userID
}
