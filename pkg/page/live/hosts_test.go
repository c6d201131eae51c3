package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostMatcher_Defaults(t *testing.T) {
	hm, err := NewHostMatcher(nil)
	require.NoError(t, err)

	tests := []struct {
		address string
		want    bool
	}{
		{address: "https://chatgpt.com/c/abc", want: true},
		{address: "https://chat.openai.com/c/abc", want: true},
		{address: "https://chatgpt.com/", want: true},
		{address: "https://example.com/c/abc", want: false},
		{address: "http://chatgpt.com/c/abc", want: false},
		{address: "about:blank", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, hm.Match(tt.address))
		})
	}
}

func TestHostMatcher_Custom(t *testing.T) {
	hm, err := NewHostMatcher([]string{"http://localhost:*/*"})
	require.NoError(t, err)

	assert.True(t, hm.Match("http://localhost:8080/c/x"))
	assert.False(t, hm.Match("https://chatgpt.com/c/x"))
	assert.Equal(t, []string{"http://localhost:*/*"}, hm.Patterns())
}

func TestHostMatcher_InvalidPattern(t *testing.T) {
	_, err := NewHostMatcher([]string{"https://[chatgpt.com/*"})
	assert.Error(t, err)
}
