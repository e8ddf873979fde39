package service

import (
	"fmt"
	"strings"

	"github.com/Shubhojit-Official/Mailto/internal/model"
)

const noProfilePlaceholder = "No profile data is available for this recipient."

// BuildPersonalityPrompt embeds every post verbatim.
func BuildPersonalityPrompt(posts []string) string {
	var prompt strings.Builder

	prompt.WriteString("Analyze the following recent public posts written by one person.\n")
	prompt.WriteString("Write a 4-6 sentence summary of their personality, interests, tone and values.\n")
	prompt.WriteString("Write plain prose. No bullet points, no headings, no JSON.\n\n")

	prompt.WriteString("Posts:\n")
	for i, post := range posts {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.TrimSpace(post)))
	}

	prompt.WriteString("\nSummary:")

	return prompt.String()
}

// BuildContextPrompt narrates the present fields of an intent. Field names
// never appear in the prompt, only their descriptions.
func BuildContextPrompt(fields model.IntentFields, notes string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("I am preparing %s outreach emails. Here is what I want to get across:\n\n", intentPhrase(fields.Intent())))

	facts := model.PresentFacts(fields)
	if len(facts) == 0 {
		prompt.WriteString("- (no details were provided)\n")
	}
	for _, f := range facts {
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", f.Description, f.Value))
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		prompt.WriteString(fmt.Sprintf("- Anything else worth knowing: %s\n", notes))
	}

	prompt.WriteString("\nWrite a short narrative of my goal as if I am speaking, in the first person.\n")
	prompt.WriteString("Make it motivating and professional.\n")
	prompt.WriteString("Do NOT list fields or labels such as \"product:\" or \"role:\".\n")
	prompt.WriteString("Output 3-6 fluent, natural sentences and nothing else.")

	return prompt.String()
}

func intentPhrase(intent model.Intent) string {
	switch intent {
	case model.IntentPitch:
		return "sales pitch"
	case model.IntentJob:
		return "job seeking"
	case model.IntentCollaboration:
		return "collaboration"
	default:
		return "cold"
	}
}

// BuildDraftPrompt composes the email-writing prompt. The first line of the
// answer must be the subject.
func BuildDraftPrompt(senderSummary string, insight *string, tone model.Tone) string {
	recipient := noProfilePlaceholder
	if insight != nil && strings.TrimSpace(*insight) != "" {
		recipient = strings.TrimSpace(*insight)
	}

	var prompt strings.Builder

	prompt.WriteString("You are an expert cold email writer.\n\n")

	prompt.WriteString("About the sender:\n")
	prompt.WriteString(strings.TrimSpace(senderSummary))
	prompt.WriteString("\n\n")

	prompt.WriteString("About the recipient:\n")
	prompt.WriteString(recipient)
	prompt.WriteString("\n\n")

	prompt.WriteString("Tone:\n")
	prompt.WriteString(fmt.Sprintf("- Personalization level: %d/100\n", tone.Personalization))
	prompt.WriteString(fmt.Sprintf("- Formality level: %d/100\n", tone.Formality))
	prompt.WriteString(fmt.Sprintf("- Persuasiveness level: %d/100\n\n", tone.Persuasiveness))

	prompt.WriteString("Rules:\n")
	prompt.WriteString("- The first line must be the subject, written as: Subject: <subject>\n")
	prompt.WriteString("- Leave one blank line, then write the body in 3-5 short paragraphs.\n")
	prompt.WriteString("- Do not label the body and do not add anything after the sign-off.\n")
	prompt.WriteString("- Use the recipient details only to personalize naturally.\n")
	prompt.WriteString("- Never mention tweets, Twitter, X, posts or social media, or how you learned about the recipient.\n")
	prompt.WriteString("- End with a soft call to action.\n")
	prompt.WriteString(fmt.Sprintf("- Keep the subject under %d characters.\n", model.SubjectMaxLen))

	return prompt.String()
}
