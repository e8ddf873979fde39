package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
)

// PersonalitySummarizer turns a recipient's posts into a profile snapshot.
type PersonalitySummarizer struct {
	generator TextGenerator
	logger    *logger.Logger
}

func NewPersonalitySummarizer(generator TextGenerator, logger *logger.Logger) *PersonalitySummarizer {
	return &PersonalitySummarizer{generator: generator, logger: logger}
}

// Summarize returns nil without calling the model when there is nothing to
// summarize. A model error is returned as an upstream failure.
func (s *PersonalitySummarizer) Summarize(ctx context.Context, posts []string) (*string, error) {
	var cleaned []string
	for _, p := range posts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	out, err := s.generator.Generate(ctx, BuildPersonalityPrompt(cleaned))
	if err != nil {
		return nil, apperr.UpstreamFailure("failed to summarize recipient profile", err)
	}

	summary := model.Truncate(strings.TrimSpace(out), model.ProfileSnapshotMaxLen)
	if summary == "" {
		s.logger.Warn("Personality summary came back empty")
		return nil, nil
	}
	return &summary, nil
}

// ContextSummarizer turns a sender's structured intent into a first-person
// narrative.
type ContextSummarizer struct {
	generator TextGenerator
	logger    *logger.Logger
}

func NewContextSummarizer(generator TextGenerator, logger *logger.Logger) *ContextSummarizer {
	return &ContextSummarizer{generator: generator, logger: logger}
}

func (s *ContextSummarizer) SummarizeContext(ctx context.Context, fields model.IntentFields, notes string) (string, error) {
	if len(model.PresentFacts(fields)) == 0 {
		s.logger.Warn("Summarizing", fields.Intent(), "context with no details")
	}

	out, err := s.generator.Generate(ctx, BuildContextPrompt(fields, notes))
	if err != nil {
		return "", apperr.UpstreamFailure("failed to summarize sender context", err)
	}

	summary := StripFieldLabels(out, model.FieldNames(fields.Intent()))
	if summary == "" {
		return "", apperr.UpstreamFailure("sender context summary was empty", nil)
	}
	return summary, nil
}

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// StripFieldLabels removes "name:" tokens for the given field names, in any
// case, wherever the model echoed them.
func StripFieldLabels(text string, names []string) string {
	if len(names) == 0 {
		return strings.TrimSpace(text)
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	labels := regexp.MustCompile(`(?i)(^|[^\pL\pN_])(?:` + strings.Join(quoted, "|") + `)\s*:\s*`)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for labels.MatchString(line) {
			line = labels.ReplaceAllString(line, "$1")
		}
		line = strings.TrimLeft(line, "-*• \t")
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
