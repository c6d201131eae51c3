package analyzer

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/threadsweep/pkg/transcript"
)

// DefaultMaxInputTokens bounds the transcript sent to the model.
const DefaultMaxInputTokens = 12000

// truncationMarker is appended to a message cut to fit the budget.
const truncationMarker = " […]"

// TokenCounter estimates how many model tokens a text occupies.
type TokenCounter interface {
	Count(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(text string) int

func (f TokenCounterFunc) Count(text string) int { return f(text) }

// ApproxCounter assumes four characters per token.
var ApproxCounter = TokenCounterFunc(func(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
})

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewTokenCounter returns a tiktoken counter for model, falling back to the
// cl100k_base encoding and then to ApproxCounter when no encoding can be loaded.
func NewTokenCounter(model string) TokenCounter {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &tiktokenCounter{enc: enc}
	}
	if enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE); err == nil {
		return &tiktokenCounter{enc: enc}
	}
	return ApproxCounter
}

// FitBudget keeps messages from the start of t while their rendered size fits
// within budget tokens. The first message that does not fit is shortened and
// marked; later messages are dropped. A non-positive budget disables trimming.
func FitBudget(t transcript.Transcript, budget int, counter TokenCounter) (transcript.Transcript, bool) {
	if budget <= 0 || counter.Count(renderMessages(t)) <= budget {
		return t, false
	}

	out := make(transcript.Transcript, 0, len(t))
	used := 0
	for _, m := range t {
		cost := counter.Count(renderMessage(m))
		if len(out) > 0 {
			cost += counter.Count(messageSeparator)
		}
		if used+cost <= budget {
			out = append(out, m)
			used += cost
			continue
		}
		if cut, ok := shorten(m, budget-used, counter); ok {
			out = append(out, cut)
		}
		break
	}
	return out, true
}

// shorten cuts m's text until the rendered message fits in remaining tokens.
func shorten(m transcript.Message, remaining int, counter TokenCounter) (transcript.Message, bool) {
	runes := []rune(m.Text)
	lo, hi := 0, len(runes)
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := transcript.Message{Role: m.Role, Text: string(runes[:mid]) + truncationMarker}
		if counter.Count(messageSeparator+renderMessage(candidate)) <= remaining {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best <= 0 {
		return transcript.Message{}, false
	}
	return transcript.Message{Role: m.Role, Text: string(runes[:best]) + truncationMarker}, true
}
