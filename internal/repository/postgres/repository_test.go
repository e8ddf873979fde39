package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderContextRowToModel(t *testing.T) {
	row := senderContextRow{
		ID:          "sc-1",
		WorkspaceID: "ws-1",
		Intent:      "job",
		Data:        []byte(`{"role":"SRE","skills":"Go, Kubernetes","unknown":"x"}`),
		Summary:     "I am looking for an SRE role.",
	}

	sc, err := row.toModel()
	require.NoError(t, err)
	assert.Equal(t, model.IntentJob, sc.Intent())
	assert.Equal(t, model.JobFields{Role: "SRE", Skills: "Go, Kubernetes"}, sc.Fields)
	assert.Empty(t, sc.AdditionalNotes)

	row.Intent = "bogus"
	_, err = row.toModel()
	assert.Error(t, err)
}

func TestRecipientRowToModel(t *testing.T) {
	row := recipientRow{ID: "r1", WorkspaceID: "ws", Handle: "alice"}
	rc := row.toModel()
	assert.Nil(t, rc.ProfileSnapshot)
	assert.False(t, rc.HasAddress())

	row.ProfileSnapshot = sql.NullString{String: "likes hiking", Valid: true}
	row.Email = sql.NullString{String: "alice@example.com", Valid: true}
	rc = row.toModel()
	require.NotNil(t, rc.ProfileSnapshot)
	assert.Equal(t, "likes hiking", *rc.ProfileSnapshot)
	assert.True(t, rc.HasAddress())
}

func TestEmailRowToModel(t *testing.T) {
	sent := time.Now()
	row := emailRow{
		ID:              "e1",
		Status:          "sent",
		Personalization: 80,
		Formality:       20,
		Persuasiveness:  50,
		SentAt:          sql.NullTime{Time: sent, Valid: true},
	}

	e := row.toModel()
	assert.Equal(t, model.StatusSent, e.Status)
	assert.Equal(t, model.Tone{Personalization: 80, Formality: 20, Persuasiveness: 50}, e.Tone)
	require.NotNil(t, e.SentAt)
	assert.True(t, sent.Equal(*e.SentAt))
	assert.Nil(t, e.OpenedAt)
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("x").Valid)
	assert.False(t, nullTime(nil).Valid)
	assert.Nil(t, timePtr(sql.NullTime{}))
}
