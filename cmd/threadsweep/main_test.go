package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/history"
	"github.com/entrhq/threadsweep/pkg/page"
)

const savedPage = `<html><body>
<main>
  <div data-message-author-role="user"><div data-message-content>Plan my launch</div></div>
  <div data-message-author-role="assistant"><div data-message-content>Here is a plan.</div></div>
</main>
</body></html>`

type testEnv struct {
	dir     string
	html    string
	history string
	config  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("NO_COLOR", "1")
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}

	env := testEnv{
		dir:     dir,
		html:    filepath.Join(dir, "chat.html"),
		history: filepath.Join(dir, "history.json"),
		config:  filepath.Join(dir, "config.yaml"),
	}
	require.NoError(t, os.WriteFile(env.html, []byte(savedPage), 0o600))
	return env
}

// execute runs the root command with the fixture page and isolated files.
func (e testEnv) execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{
		"--html", e.html,
		"--url", "https://chatgpt.com/c/abc",
		"--history-file", e.history,
		"--config", e.config,
		"--env-file", filepath.Join(e.dir, "missing.env"),
	}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e testEnv) seed(t *testing.T, entries map[page.Identity]evaluation.Evaluation) {
	t.Helper()
	store, err := history.Open(e.history)
	require.NoError(t, err)
	for id, eval := range entries {
		require.NoError(t, store.Save(id, eval))
	}
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.execute(t, "extract")
	require.NoError(t, err)

	var messages []struct {
		Role string `json:"role"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "Plan my launch", messages[0].Text)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestPrompt_UsesAnalysisSettings(t *testing.T) {
	env := newTestEnv(t)
	cfg := "version: \"1\"\nsections:\n  analysis:\n    user_profile: Marine biologist\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))

	out, _, err := env.execute(t, "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "Marine biologist")
}

func TestAnalyze_MissingKeyShowsHint(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.execute(t, "analyze", "--no-badge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "hint:")

	store, err := history.Open(env.history)
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestBadge_RequiresStoredResult(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.execute(t, "badge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored result for /c/abc")
}

func TestBadge_ShowsStoredResult(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[page.Identity]evaluation.Evaluation{
		"/c/abc": {Summary: "Launch plan", Category: "Work", Value: 7, Confidence: 4, Recommendation: evaluation.Keep},
	})

	out, _, err := env.execute(t, "badge")
	require.NoError(t, err)
	assert.Equal(t, "/c/abc: 7/10 · Keep\n", out)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[page.Identity]evaluation.Evaluation{
		"/c/abc": {Summary: "Launch plan", Category: "Work", Value: 7, Recommendation: evaluation.Keep},
		"/c/def": {Summary: "Lunch ideas", Category: "Food", Value: 2, Recommendation: evaluation.Delete},
	})

	t.Run("table", func(t *testing.T) {
		out, _, err := env.execute(t, "history")
		require.NoError(t, err)
		assert.Contains(t, out, "Recommendation")
		assert.NotContains(t, out, "RECOMMENDATION")
		assert.Contains(t, out, "Launch plan")
		assert.Contains(t, out, "Lunch ideas")
		assert.Contains(t, out, "2/10")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := env.execute(t, "history", "--format", "json")
		require.NoError(t, err)
		var entries []history.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		assert.Len(t, entries, 2)
	})

	t.Run("plain with limit", func(t *testing.T) {
		out, _, err := env.execute(t, "history", "--format", "plain", "--limit", "1")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "timestamp\t"))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := env.execute(t, "history", "--format", "xml")
		assert.ErrorContains(t, err, "unsupported format")
	})

	t.Run("remove", func(t *testing.T) {
		out, _, err := env.execute(t, "history", "remove", "c/def")
		require.NoError(t, err)
		assert.Equal(t, "removed /c/def\n", out)

		_, _, err = env.execute(t, "history", "remove", "/c/def")
		assert.ErrorContains(t, err, "no stored result")
	})

	t.Run("clear", func(t *testing.T) {
		out, _, err := env.execute(t, "history", "clear")
		require.NoError(t, err)
		assert.Equal(t, "removed 1 entries\n", out)

		out, _, err = env.execute(t, "history")
		require.NoError(t, err)
		assert.Contains(t, out, "(no results)")
	})
}

func TestColorChoice(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer

	assert.False(t, colorChoice{}.resolve(&buf), "buffers are not terminals")
	assert.True(t, colorChoice{force: true}.resolve(&buf))
	assert.False(t, colorChoice{force: true, disable: true}.resolve(&buf))
}
