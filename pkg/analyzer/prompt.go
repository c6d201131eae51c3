package analyzer

import (
	"strings"

	"github.com/entrhq/threadsweep/pkg/transcript"
)

// Default personalization used when the user has not configured any.
const (
	DefaultUserProfile = "Software developer"
	DefaultInterests   = "product building, writing, startups, and career growth"
	DefaultCategories  = "career | writing | project | tech | humor | other"
)

// UserPromptPrefix precedes the rendered transcript.
const UserPromptPrefix = "Analyze this conversation and respond with the JSON only:\n\n"

// messageSeparator joins rendered messages.
const messageSeparator = "\n\n---\n\n"

// The system prompt is these segments with the profile, interests and
// categories written between them.
const (
	promptIntro = `You evaluate personal ChatGPT conversation threads for long-term usefulness.

User profile:
- `
	promptInterests = `
- Interested in `
	promptTask = `

Your task:
Analyze the conversation and return EXACTLY this JSON (no markdown, no extra text):

{
  "summary": "1–2 precise sentences describing what was discussed and why",
  "category": "`
	promptRules = `",
  "value": number,
  "confidence": number,
  "recommendation": "Keep | Archive | Delete",
  "reason": "one short sentence explaining the recommendation"
}

Scoring rules for "value" (1–10):

9–10: Long-term strategic value, reusable insights, affects career or projects
7–8: Strong practical value, likely to be reused
5–6: Useful but limited or context-specific
3–4: Minor, repetitive, or easily replaceable
1–2: Trivial, generic, or no lasting value

Important evaluation rule:
If the conversation mainly contains generic explanations, definitions, or how-to information that can be easily re-found via search engines or official documentation, cap value at 4 and recommend Archive or Delete.

High value threads must include at least one of:
- personal reasoning or opinion
- decision-making context
- trade-offs or constraints
- original ideas or reflections
- project-specific implementation thinking

"confidence" (1–5):
How confident you are in this evaluation.

Recommendation rules:
- Keep: value >= 7
- Archive: value 4–6
- Delete: value <= 3

Constraints:
- Be critical, not polite
- Prefer lower scores when unsure
- Do not inflate scores
- Output valid JSON only
`
)

// PromptOptions personalizes the system prompt. Empty fields use the defaults.
// A non-empty CustomPrompt replaces the generated prompt entirely.
type PromptOptions struct {
	UserProfile  string
	Interests    string
	Categories   string
	CustomPrompt string
}

// SystemPrompt renders the system prompt for opts.
func SystemPrompt(opts PromptOptions) string {
	if custom := strings.TrimSpace(opts.CustomPrompt); custom != "" {
		return custom
	}
	var b strings.Builder
	b.WriteString(promptIntro)
	b.WriteString(orDefault(opts.UserProfile, DefaultUserProfile))
	b.WriteString(promptInterests)
	b.WriteString(orDefault(opts.Interests, DefaultInterests))
	b.WriteString(promptTask)
	b.WriteString(orDefault(opts.Categories, DefaultCategories))
	b.WriteString(promptRules)
	return b.String()
}

// DefaultSystemPrompt is the prompt with no personalization applied.
func DefaultSystemPrompt() string {
	return SystemPrompt(PromptOptions{})
}

// UserPrompt renders the transcript as "[role]\ntext" blocks.
func UserPrompt(t transcript.Transcript) string {
	return UserPromptPrefix + renderMessages(t)
}

func renderMessages(t transcript.Transcript) string {
	blocks := make([]string, 0, len(t))
	for _, m := range t {
		blocks = append(blocks, renderMessage(m))
	}
	return strings.Join(blocks, messageSeparator)
}

func renderMessage(m transcript.Message) string {
	return "[" + string(m.Role) + "]\n" + m.Text
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
