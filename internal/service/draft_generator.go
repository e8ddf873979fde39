package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
)

// DefaultSubject replaces a subject line the model left blank.
const DefaultSubject = "Quick note"

var errEmptyDraft = errors.New("model returned no email body")

// Draft is a parsed model answer.
type Draft struct {
	Subject         string
	Body            string
	SubjectFallback bool
}

type DraftGenerator struct {
	generator TextGenerator
	logger    *logger.Logger
}

func NewDraftGenerator(generator TextGenerator, logger *logger.Logger) *DraftGenerator {
	return &DraftGenerator{generator: generator, logger: logger}
}

func (g *DraftGenerator) GenerateDraft(ctx context.Context, senderSummary string, insight *string, tone model.Tone) (Draft, error) {
	tone = model.NewTone(tone.Personalization, tone.Formality, tone.Persuasiveness)

	raw, err := g.generator.Generate(ctx, BuildDraftPrompt(senderSummary, insight, tone))
	if err != nil {
		return Draft{}, apperr.UpstreamFailure("failed to generate email draft", err)
	}

	draft, err := ParseDraft(raw)
	if err != nil {
		return Draft{}, apperr.UpstreamFailure("model returned an unusable draft", err)
	}
	if draft.SubjectFallback {
		g.logger.Warn("Draft had no subject line, using default subject")
	}
	return draft, nil
}

// ParseDraft splits a raw answer by position: the first non-empty line is
// the subject, everything after it is the body.
func ParseDraft(raw string) (Draft, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	first := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return Draft{}, errEmptyDraft
	}

	body := strings.TrimSpace(strings.Join(lines[first+1:], "\n"))
	if body == "" {
		return Draft{}, errEmptyDraft
	}

	draft := Draft{Subject: cleanSubject(lines[first]), Body: body}
	if draft.Subject == "" {
		draft.Subject = DefaultSubject
		draft.SubjectFallback = true
	}
	draft.Subject = model.Truncate(draft.Subject, model.SubjectMaxLen)
	return draft, nil
}

var subjectLabel = regexp.MustCompile(`(?i)subject\s*:\s*`)

// cleanSubject drops markdown emphasis and every "Subject:" label, in any
// case and at any position.
func cleanSubject(line string) string {
	s := subjectLabel.ReplaceAllString(line, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*#_ \t"))
}
