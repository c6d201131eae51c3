package live

import (
	"fmt"

	"github.com/gobwas/glob"
)

// HostMatcher decides which tab addresses belong to a supported chat site.
type HostMatcher struct {
	patterns []glob.Glob
	raw      []string
}

// NewHostMatcher compiles URL glob patterns such as "https://chatgpt.com/*".
// An empty list falls back to DefaultHosts.
func NewHostMatcher(patterns []string) (*HostMatcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultHosts
	}
	hm := &HostMatcher{raw: append([]string(nil), patterns...)}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid host pattern '%s': %w", pattern, err)
		}
		hm.patterns = append(hm.patterns, g)
	}
	return hm, nil
}

// Match returns true if address matches any pattern.
func (hm *HostMatcher) Match(address string) bool {
	for _, g := range hm.patterns {
		if g.Match(address) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns, for error messages.
func (hm *HostMatcher) Patterns() []string {
	return hm.raw
}
