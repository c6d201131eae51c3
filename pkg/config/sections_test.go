package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisSection_SetData(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		tokens  int
		wantErr bool
	}{
		{name: "int from yaml", data: map[string]any{"max_input_tokens": 500}, tokens: 500},
		{name: "float from json", data: map[string]any{"max_input_tokens": float64(800)}, tokens: 800},
		{name: "int64", data: map[string]any{"max_input_tokens": int64(900)}, tokens: 900},
		{name: "absent keeps default", data: map[string]any{}, tokens: DefaultMaxInputTokens},
		{name: "string is rejected", data: map[string]any{"max_input_tokens": "lots"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := NewAnalysisSection()
			err := section.SetData(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tokens, section.Snapshot().MaxInputTokens)
		})
	}
}

func TestAnalysisSection_ValidateAndReset(t *testing.T) {
	section := NewAnalysisSection()
	require.NoError(t, section.SetData(map[string]any{
		"user_profile":     "Researcher",
		"interests":        "robotics",
		"categories":       "Work, Ideas",
		"custom_prompt":    "Only reply in JSON.",
		"max_input_tokens": -1,
	}))
	assert.Error(t, section.Validate())

	snap := section.Snapshot()
	assert.Equal(t, "Researcher", snap.UserProfile)
	assert.Equal(t, "robotics", snap.Interests)
	assert.Equal(t, "Work, Ideas", snap.Categories)
	assert.Equal(t, "Only reply in JSON.", snap.CustomPrompt)

	section.Reset()
	assert.NoError(t, section.Validate())
	assert.Equal(t, AnalysisSettings{MaxInputTokens: DefaultMaxInputTokens}, section.Snapshot())
}

func TestBrowserSection_SetData(t *testing.T) {
	t.Run("parses every field", func(t *testing.T) {
		section := NewBrowserSection()
		require.NoError(t, section.SetData(map[string]any{
			"cdp_endpoint":  "http://localhost:9222",
			"user_data_dir": "/tmp/profile",
			"headless":      true,
			"hosts":         []any{"https://chatgpt.com/*"},
		}))

		snap := section.Snapshot()
		assert.Equal(t, "http://localhost:9222", snap.CDPEndpoint)
		assert.Equal(t, "/tmp/profile", snap.UserDataDir)
		assert.True(t, snap.Headless)
		assert.Equal(t, []string{"https://chatgpt.com/*"}, snap.Hosts)
	})

	t.Run("hosts must be a list", func(t *testing.T) {
		section := NewBrowserSection()
		assert.Error(t, section.SetData(map[string]any{"hosts": "https://chatgpt.com/*"}))
	})

	t.Run("hosts must be strings", func(t *testing.T) {
		section := NewBrowserSection()
		assert.Error(t, section.SetData(map[string]any{"hosts": []any{"ok", 3}}))
	})

	t.Run("absent hosts keep defaults", func(t *testing.T) {
		section := NewBrowserSection()
		require.NoError(t, section.SetData(map[string]any{"headless": true}))
		assert.Equal(t, DefaultHosts, section.GetHosts())
	})
}

func TestBrowserSection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		hosts   []any
		wantErr bool
	}{
		{name: "defaults", hosts: []any{"https://chatgpt.com/*"}},
		{name: "empty list", hosts: []any{}, wantErr: true},
		{name: "blank entry", hosts: []any{"https://chatgpt.com/*", "  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := NewBrowserSection()
			require.NoError(t, section.SetData(map[string]any{"hosts": tt.hosts}))
			if tt.wantErr {
				assert.Error(t, section.Validate())
			} else {
				assert.NoError(t, section.Validate())
			}
		})
	}
}

func TestBrowserSection_GetHostsIsACopy(t *testing.T) {
	section := NewBrowserSection()
	hosts := section.GetHosts()
	hosts[0] = "mutated"
	assert.Equal(t, DefaultHosts[0], section.GetHosts()[0])

	section.Reset()
	assert.Equal(t, DefaultHosts, section.GetHosts())
}
