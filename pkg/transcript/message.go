// Package transcript turns a chat page's DOM into an ordered, deduplicated
// list of speaker-tagged messages.
package transcript

// Role identifies the speaker of a message. Well-known values are below;
// pages may carry other markers, which are kept lower-cased.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleUnknown   Role = "unknown"
)

// FingerprintLength is how many leading characters identify a rendered block.
const FingerprintLength = 100

// Message is one speaker turn. Text is whitespace-normalized and never empty.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is the conversation in document order.
// No two messages share a Fingerprint.
type Transcript []Message

// Fingerprint returns the first FingerprintLength characters of text.
func Fingerprint(text string) string {
	n := 0
	for i := range text {
		if n == FingerprintLength {
			return text[:i]
		}
		n++
	}
	return text
}
