package model

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	i, err := ParseIntent(" Pitch ")
	require.NoError(t, err)
	assert.Equal(t, IntentPitch, i)

	_, err = ParseIntent("sales")
	assert.Error(t, err)
}

func TestNewIntentFieldsIgnoresForeignKeys(t *testing.T) {
	fields, err := NewIntentFields(IntentJob, map[string]string{
		"role":    " Backend engineer ",
		"product": "should be ignored",
	})
	require.NoError(t, err)

	job, ok := fields.(JobFields)
	require.True(t, ok)
	assert.Equal(t, "Backend engineer", job.Role)
	assert.Len(t, PresentFacts(fields), 1)
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t, []string{"product", "target", "value", "proof"}, FieldNames(IntentPitch))
	assert.Equal(t, []string{"idea", "whyThem", "contribution"}, FieldNames(IntentCollaboration))
	assert.Nil(t, FieldNames("other"))
}

func TestSenderContextJSONRoundTrip(t *testing.T) {
	ctx := NewSenderContext("ws-1", CollaborationFields{Idea: "podcast", WhyThem: "great host"}, "  weekly  ")
	ctx.Summary = "I want to start a podcast together."

	raw, err := json.Marshal(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"intent":"collaboration"`)
	assert.Contains(t, string(raw), `"whyThem":"great host"`)

	var decoded SenderContext
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, IntentCollaboration, decoded.Intent())
	assert.Equal(t, ctx.Fields, decoded.Fields)
	assert.Equal(t, "weekly", decoded.AdditionalNotes)
}

func TestNormalizeHandle(t *testing.T) {
	h, err := NormalizeHandle("  @Alice_Dev ")
	require.NoError(t, err)
	assert.Equal(t, "alice_dev", h)

	_, err = NormalizeHandle("@")
	assert.Error(t, err)

	_, err = NormalizeHandle("two words")
	assert.Error(t, err)
}

func TestNormalizeAddress(t *testing.T) {
	a, err := NormalizeAddress(" Bob@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", a)

	a, err = NormalizeAddress("")
	require.NoError(t, err)
	assert.Empty(t, a)

	_, err = NormalizeAddress("not-an-address")
	assert.Error(t, err)
}

func TestTruncateIsRuneSafe(t *testing.T) {
	s := strings.Repeat("é", 10)
	assert.Equal(t, strings.Repeat("é", 4), Truncate(s, 4))
	assert.Equal(t, s, Truncate(s, 50))
}

func TestNewWorkspace(t *testing.T) {
	ws, err := NewWorkspace("user-1", "  Outreach  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Outreach", ws.Name)
	assert.Equal(t, ColorBlue, ws.Color)
	assert.True(t, ws.OwnedBy("user-1"))
	assert.False(t, ws.OwnedBy("user-2"))

	_, err = NewWorkspace("user-1", "   ", ColorTeal)
	assert.Error(t, err)

	_, err = NewWorkspace("user-1", strings.Repeat("n", WorkspaceNameMaxLen+1), ColorTeal)
	assert.Error(t, err)

	_, err = ParseColor("red")
	assert.Error(t, err)
}
