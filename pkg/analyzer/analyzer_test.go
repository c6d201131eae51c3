package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/transcript"
)

var runeCounter = TokenCounterFunc(utf8.RuneCountInString)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return f.reply, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

const validReply = `{"summary":"Launch planning.","category":"project","value":8,"confidence":4,"recommendation":"keep","reason":"Project-specific decisions."}`

var launch = transcript.Transcript{
	{Role: transcript.RoleUser, Text: "Plan my launch"},
	{Role: transcript.RoleAssistant, Text: "Here's a plan..."},
}

func TestSystemPrompt(t *testing.T) {
	def := DefaultSystemPrompt()
	assert.Contains(t, def, "- Software developer")
	assert.Contains(t, def, "- Interested in product building, writing, startups, and career growth")
	assert.Contains(t, def, `"category": "career | writing | project | tech | humor | other"`)

	custom := SystemPrompt(PromptOptions{UserProfile: "Designer", Interests: "typography", Categories: "work | fun"})
	assert.Contains(t, custom, "- Designer")
	assert.Contains(t, custom, "- Interested in typography")
	assert.Contains(t, custom, `"category": "work | fun"`)
	assert.NotContains(t, custom, "Software developer")

	replaced := SystemPrompt(PromptOptions{UserProfile: "ignored", CustomPrompt: "  Rate it.  "})
	assert.Equal(t, "Rate it.", replaced)
}

func TestSystemPrompt_LiteralPersonalization(t *testing.T) {
	got := SystemPrompt(PromptOptions{UserProfile: "Uses {{.Interests}} and 100% literal text"})

	assert.True(t, strings.HasPrefix(got, "You evaluate personal ChatGPT conversation threads"))
	assert.True(t, strings.HasSuffix(got, "- Output valid JSON only\n"))
	assert.Contains(t, got, "- Uses {{.Interests}} and 100% literal text\n- Interested in "+DefaultInterests+"\n")
}

func TestUserPrompt(t *testing.T) {
	want := "Analyze this conversation and respond with the JSON only:\n\n" +
		"[user]\nPlan my launch\n\n---\n\n[assistant]\nHere's a plan..."
	assert.Equal(t, want, UserPrompt(launch))
}

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr []error
	}{
		{name: "plain", reply: validReply},
		{name: "json fence", reply: "```json\n" + validReply + "\n```"},
		{name: "bare fence", reply: "```" + validReply + "```"},
		{name: "empty", reply: "  \n", wantErr: []error{ErrEmptyResponse}},
		{name: "not json", reply: "I think you should keep it.", wantErr: []error{ErrMalformedResponse}},
		{
			name:    "value out of range",
			reply:   `{"value":11,"confidence":3,"recommendation":"Keep"}`,
			wantErr: []error{ErrMalformedResponse, evaluation.ErrValueRange},
		},
		{
			name:    "unknown recommendation",
			reply:   `{"value":5,"confidence":3,"recommendation":"Maybe"}`,
			wantErr: []error{ErrMalformedResponse, evaluation.ErrInvalidRecommendation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := ParseEvaluation(tt.reply)
			if len(tt.wantErr) > 0 {
				require.Error(t, err)
				for _, target := range tt.wantErr {
					assert.ErrorIs(t, err, target)
				}
				assert.Nil(t, eval)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, evaluation.Keep, eval.Recommendation)
			assert.Equal(t, float64(8), eval.Value)
			assert.Equal(t, "project", eval.Category)
		})
	}
}

func TestFitBudget(t *testing.T) {
	conv := transcript.Transcript{
		{Role: transcript.RoleUser, Text: "aaaa"},
		{Role: transcript.RoleAssistant, Text: "bbbbbbbbbb"},
	}

	tests := []struct {
		name        string
		budget      int
		want        transcript.Transcript
		wantTrimmed bool
	}{
		{name: "fits", budget: 40, want: conv},
		{name: "disabled", budget: 0, want: conv},
		{
			name:        "second message dropped",
			budget:      30,
			want:        conv[:1],
			wantTrimmed: true,
		},
		{
			name:   "second message shortened",
			budget: 35,
			want: transcript.Transcript{
				conv[0],
				{Role: transcript.RoleAssistant, Text: "b […]"},
			},
			wantTrimmed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, trimmed := FitBudget(conv, tt.budget, runeCounter)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantTrimmed, trimmed)
			if tt.budget > 0 {
				assert.LessOrEqual(t, runeCounter.Count(renderMessages(got)), tt.budget)
			}
		})
	}
}

func TestApproxCounter(t *testing.T) {
	assert.Equal(t, 0, ApproxCounter.Count(""))
	assert.Equal(t, 1, ApproxCounter.Count("abc"))
	assert.Equal(t, 2, ApproxCounter.Count("abcde"))
}

func TestAnalyze(t *testing.T) {
	fake := &fakeCompleter{reply: validReply}
	a := New(fake,
		WithTokenCounter(runeCounter),
		WithPromptOptions(PromptOptions{Categories: "work | fun"}),
	)

	eval, err := a.Analyze(context.Background(), launch)
	require.NoError(t, err)
	assert.Equal(t, "8/10 · Keep", eval.BadgeText())
	assert.Contains(t, fake.system, `"category": "work | fun"`)
	assert.Equal(t, UserPrompt(launch), fake.user)
}

func TestAnalyze_TrimsToBudget(t *testing.T) {
	fake := &fakeCompleter{reply: validReply}
	long := transcript.Transcript{
		{Role: transcript.RoleUser, Text: "short question"},
		{Role: transcript.RoleAssistant, Text: strings.Repeat("word ", 500)},
	}
	a := New(fake, WithTokenCounter(runeCounter), WithMaxInputTokens(200))

	_, err := a.Analyze(context.Background(), long)
	require.NoError(t, err)
	assert.LessOrEqual(t, runeCounter.Count(strings.TrimPrefix(fake.user, UserPromptPrefix)), 200)
	assert.Contains(t, fake.user, "[…]")
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("empty transcript", func(t *testing.T) {
		fake := &fakeCompleter{reply: validReply}
		_, err := New(fake, WithTokenCounter(runeCounter)).Analyze(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
		assert.Zero(t, fake.calls)
	})

	t.Run("backend error passes through", func(t *testing.T) {
		fake := &fakeCompleter{err: ErrUnauthorized}
		_, err := New(fake, WithTokenCounter(runeCounter)).Analyze(context.Background(), launch)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("malformed reply", func(t *testing.T) {
		fake := &fakeCompleter{reply: "nope"}
		_, err := New(fake, WithTokenCounter(runeCounter)).Analyze(context.Background(), launch)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}
