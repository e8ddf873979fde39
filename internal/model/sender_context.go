package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Intent string

const (
	IntentPitch         Intent = "pitch"
	IntentJob           Intent = "job"
	IntentCollaboration Intent = "collaboration"
)

func ParseIntent(s string) (Intent, error) {
	switch i := Intent(strings.ToLower(strings.TrimSpace(s))); i {
	case IntentPitch, IntentJob, IntentCollaboration:
		return i, nil
	default:
		return "", fmt.Errorf("invalid intent %q", s)
	}
}

// Fact is one field of an intent payload together with the phrase used to
// describe it to the model.
type Fact struct {
	Name        string
	Description string
	Value       string
}

// IntentFields is the payload of a SenderContext. Exactly one implementation
// exists per Intent.
type IntentFields interface {
	Intent() Intent
	Facts() []Fact
	isIntentFields()
}

type PitchFields struct {
	Product string `json:"product" bson:"product"`
	Target  string `json:"target" bson:"target"`
	Value   string `json:"value" bson:"value"`
	Proof   string `json:"proof" bson:"proof"`
}

func (PitchFields) Intent() Intent { return IntentPitch }
func (PitchFields) isIntentFields() {}

func (f PitchFields) Facts() []Fact {
	return []Fact{
		{"product", "What I am offering", f.Product},
		{"target", "Who it is for", f.Target},
		{"value", "The core value it delivers", f.Value},
		{"proof", "Evidence that it works", f.Proof},
	}
}

type JobFields struct {
	Role       string `json:"role" bson:"role"`
	Skills     string `json:"skills" bson:"skills"`
	Experience string `json:"experience" bson:"experience"`
	Motivation string `json:"motivation" bson:"motivation"`
}

func (JobFields) Intent() Intent { return IntentJob }
func (JobFields) isIntentFields() {}

func (f JobFields) Facts() []Fact {
	return []Fact{
		{"role", "The role I am looking for", f.Role},
		{"skills", "My strongest skills", f.Skills},
		{"experience", "My relevant experience", f.Experience},
		{"motivation", "Why I want this role", f.Motivation},
	}
}

type CollaborationFields struct {
	Idea         string `json:"idea" bson:"idea"`
	WhyThem      string `json:"whyThem" bson:"why_them"`
	Contribution string `json:"contribution" bson:"contribution"`
}

func (CollaborationFields) Intent() Intent { return IntentCollaboration }
func (CollaborationFields) isIntentFields() {}

func (f CollaborationFields) Facts() []Fact {
	return []Fact{
		{"idea", "The collaboration idea", f.Idea},
		{"whyThem", "Why I picked this person", f.WhyThem},
		{"contribution", "What I bring to it", f.Contribution},
	}
}

// FieldNames lists the payload keys of an intent in prompt order.
func FieldNames(intent Intent) []string {
	fields, err := NewIntentFields(intent, nil)
	if err != nil {
		return nil
	}
	facts := fields.Facts()
	names := make([]string, len(facts))
	for i, f := range facts {
		names[i] = f.Name
	}
	return names
}

// NewIntentFields builds the payload for intent from loose key/value input.
// Keys outside the intent's schema are ignored.
func NewIntentFields(intent Intent, values map[string]string) (IntentFields, error) {
	get := func(key string) string { return strings.TrimSpace(values[key]) }

	switch intent {
	case IntentPitch:
		return PitchFields{
			Product: get("product"),
			Target:  get("target"),
			Value:   get("value"),
			Proof:   get("proof"),
		}, nil
	case IntentJob:
		return JobFields{
			Role:       get("role"),
			Skills:     get("skills"),
			Experience: get("experience"),
			Motivation: get("motivation"),
		}, nil
	case IntentCollaboration:
		return CollaborationFields{
			Idea:         get("idea"),
			WhyThem:      get("whyThem"),
			Contribution: get("contribution"),
		}, nil
	default:
		return nil, fmt.Errorf("invalid intent %q", intent)
	}
}

// DecodeIntentFields decodes a stored JSON payload for the given intent.
func DecodeIntentFields(intent Intent, data []byte) (IntentFields, error) {
	var err error
	switch intent {
	case IntentPitch:
		var f PitchFields
		if len(data) > 0 {
			err = json.Unmarshal(data, &f)
		}
		return f, err
	case IntentJob:
		var f JobFields
		if len(data) > 0 {
			err = json.Unmarshal(data, &f)
		}
		return f, err
	case IntentCollaboration:
		var f CollaborationFields
		if len(data) > 0 {
			err = json.Unmarshal(data, &f)
		}
		return f, err
	default:
		return nil, fmt.Errorf("invalid intent %q", intent)
	}
}

// PresentFacts drops facts with blank values.
func PresentFacts(fields IntentFields) []Fact {
	var present []Fact
	for _, f := range fields.Facts() {
		if strings.TrimSpace(f.Value) != "" {
			present = append(present, f)
		}
	}
	return present
}

// SenderContext is the outreach narrative of a workspace; at most one exists
// per workspace.
type SenderContext struct {
	ID              string
	WorkspaceID     string
	Fields          IntentFields
	Summary         string
	AdditionalNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewSenderContext(workspaceID string, fields IntentFields, additionalNotes string) *SenderContext {
	now := time.Now()
	return &SenderContext{
		ID:              uuid.New().String(),
		WorkspaceID:     workspaceID,
		Fields:          fields,
		AdditionalNotes: strings.TrimSpace(additionalNotes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (c *SenderContext) Intent() Intent {
	if c.Fields == nil {
		return ""
	}
	return c.Fields.Intent()
}

type senderContextJSON struct {
	ID              string          `json:"id"`
	WorkspaceID     string          `json:"workspace_id"`
	Intent          Intent          `json:"intent"`
	Data            json.RawMessage `json:"data"`
	Summary         string          `json:"summary"`
	AdditionalNotes string          `json:"additional_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (c SenderContext) MarshalJSON() ([]byte, error) {
	data := json.RawMessage("null")
	if c.Fields != nil {
		raw, err := json.Marshal(c.Fields)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(senderContextJSON{
		ID:              c.ID,
		WorkspaceID:     c.WorkspaceID,
		Intent:          c.Intent(),
		Data:            data,
		Summary:         c.Summary,
		AdditionalNotes: c.AdditionalNotes,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	})
}

func (c *SenderContext) UnmarshalJSON(b []byte) error {
	var aux senderContextJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	fields, err := DecodeIntentFields(aux.Intent, aux.Data)
	if err != nil {
		return err
	}
	*c = SenderContext{
		ID:              aux.ID,
		WorkspaceID:     aux.WorkspaceID,
		Fields:          fields,
		Summary:         aux.Summary,
		AdditionalNotes: aux.AdditionalNotes,
		CreatedAt:       aux.CreatedAt,
		UpdatedAt:       aux.UpdatedAt,
	}
	return nil
}
