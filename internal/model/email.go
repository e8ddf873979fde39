package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const SubjectMaxLen = 200

type EmailStatus string

const (
	StatusDraft   EmailStatus = "draft"
	StatusSent    EmailStatus = "sent"
	StatusOpened  EmailStatus = "opened"
	StatusReplied EmailStatus = "replied"
	StatusFailed  EmailStatus = "failed"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// progress orders the forward path; failed sits outside it.
var progress = map[EmailStatus]int{
	StatusDraft:   0,
	StatusSent:    1,
	StatusOpened:  2,
	StatusReplied: 3,
}

func (s EmailStatus) Valid() bool {
	_, ok := progress[s]
	return ok || s == StatusFailed
}

// Tone holds the three slider values, each clamped to 0..100.
type Tone struct {
	Personalization int `json:"personalization"`
	Formality       int `json:"formality"`
	Persuasiveness  int `json:"persuasiveness"`
}

func NewTone(personalization, formality, persuasiveness int) Tone {
	return Tone{
		Personalization: ClampTone(personalization),
		Formality:       ClampTone(formality),
		Persuasiveness:  ClampTone(persuasiveness),
	}
}

func ClampTone(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

type Email struct {
	ID              string      `json:"id"`
	WorkspaceID     string      `json:"workspace_id"`
	RecipientID     string      `json:"recipient_id"`
	Subject         string      `json:"subject"`
	Body            string      `json:"body"`
	Status          EmailStatus `json:"status"`
	Tone            Tone        `json:"tone"`
	SubjectFallback bool        `json:"subject_fallback,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	SentAt          *time.Time  `json:"sent_at,omitempty"`
	OpenedAt        *time.Time  `json:"opened_at,omitempty"`
	RepliedAt       *time.Time  `json:"replied_at,omitempty"`
}

func NewEmail(workspaceID, recipientID, subject, body string, tone Tone) *Email {
	now := time.Now()
	return &Email{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		RecipientID: recipientID,
		Subject:     Truncate(subject, SubjectMaxLen),
		Body:        body,
		Status:      StatusDraft,
		Tone:        NewTone(tone.Personalization, tone.Formality, tone.Persuasiveness),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Active emails are the ones regeneration may overwrite.
func (e *Email) Active() bool {
	return e.Status == StatusDraft || e.Status == StatusFailed
}

// Revise replaces the content and moves the email back to draft from any
// status. It is the only backward transition.
func (e *Email) Revise(subject, body string, now time.Time) {
	e.Subject = Truncate(subject, SubjectMaxLen)
	e.Body = body
	e.Status = StatusDraft
	e.SentAt = nil
	e.OpenedAt = nil
	e.RepliedAt = nil
	e.UpdatedAt = now
}

// CheckSendable rejects anything but a draft, so a sent email is never
// dispatched twice.
func (e *Email) CheckSendable() error {
	if e.Status != StatusDraft {
		return fmt.Errorf("%w: cannot send an email in status %s", ErrInvalidTransition, e.Status)
	}
	return nil
}

func (e *Email) MarkSent(now time.Time) error {
	if err := e.CheckSendable(); err != nil {
		return err
	}
	e.Status = StatusSent
	e.SentAt = &now
	e.UpdatedAt = now
	return nil
}

// MarkFailed records a failed send attempt; sentAt stays unset.
func (e *Email) MarkFailed(now time.Time) error {
	if err := e.CheckSendable(); err != nil {
		return err
	}
	e.Status = StatusFailed
	e.SentAt = nil
	e.UpdatedAt = now
	return nil
}

// MarkOpened moves sent to opened. Repeats and later states are no-ops.
func (e *Email) MarkOpened(now time.Time) (bool, error) {
	return e.advance(StatusOpened, now)
}

// MarkReplied moves sent or opened to replied. Repeats are no-ops.
func (e *Email) MarkReplied(now time.Time) (bool, error) {
	return e.advance(StatusReplied, now)
}

func (e *Email) advance(to EmailStatus, now time.Time) (bool, error) {
	from, ok := progress[e.Status]
	if !ok || e.Status == StatusDraft {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
	}
	if from >= progress[to] {
		return false, nil
	}
	e.Status = to
	switch to {
	case StatusOpened:
		e.OpenedAt = &now
	case StatusReplied:
		if e.OpenedAt == nil {
			e.OpenedAt = &now
		}
		e.RepliedAt = &now
	}
	e.UpdatedAt = now
	return true, nil
}
