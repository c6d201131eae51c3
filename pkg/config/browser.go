package config

import (
	"fmt"
	"strings"
	"sync"
)

// SectionIDBrowser is the identifier for the browser session section.
const SectionIDBrowser = "browser"

// DefaultHosts are the chat sites a tab must match to be driven.
var DefaultHosts = []string{
	"https://chatgpt.com/*",
	"https://chat.openai.com/*",
}

// BrowserSection configures how the live page is reached.
type BrowserSection struct {
	CDPEndpoint string
	UserDataDir string
	Headless    bool
	Hosts       []string
	mu          sync.RWMutex
}

// NewBrowserSection creates the section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{Hosts: append([]string(nil), DefaultHosts...)}
}

func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

func (s *BrowserSection) Title() string {
	return "Browser"
}

func (s *BrowserSection) Description() string {
	return "cdp_endpoint attaches to a running Chromium; otherwise one is launched, with user_data_dir as its profile when set. hosts are glob patterns for chat tabs."
}

func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]any, len(s.Hosts))
	for i, h := range s.Hosts {
		hosts[i] = h
	}
	return map[string]any{
		"cdp_endpoint":  s.CDPEndpoint,
		"user_data_dir": s.UserDataDir,
		"headless":      s.Headless,
		"hosts":         hosts,
	}
}

func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["cdp_endpoint"].(string); ok {
		s.CDPEndpoint = v
	}
	if v, ok := data["user_data_dir"].(string); ok {
		s.UserDataDir = v
	}
	if v, ok := data["headless"].(bool); ok {
		s.Headless = v
	}

	hostsData, ok := data["hosts"]
	if !ok {
		return nil
	}
	hostsSlice, ok := hostsData.([]any)
	if !ok {
		return fmt.Errorf("invalid hosts type: expected list, got %T", hostsData)
	}
	hosts := make([]string, 0, len(hostsSlice))
	for i, item := range hostsSlice {
		host, ok := item.(string)
		if !ok {
			return fmt.Errorf("invalid host at index %d: expected string, got %T", i, item)
		}
		hosts = append(hosts, host)
	}
	s.Hosts = hosts
	return nil
}

func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Hosts) == 0 {
		return fmt.Errorf("at least one host pattern is required")
	}
	for i, h := range s.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("host at index %d is empty", i)
		}
	}
	return nil
}

func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CDPEndpoint = ""
	s.UserDataDir = ""
	s.Headless = false
	s.Hosts = append([]string(nil), DefaultHosts...)
}

// GetHosts returns a copy of the host patterns.
func (s *BrowserSection) GetHosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.Hosts...)
}

// Snapshot returns a copy of the settings safe to read without locking.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BrowserSettings{
		CDPEndpoint: s.CDPEndpoint,
		UserDataDir: s.UserDataDir,
		Headless:    s.Headless,
		Hosts:       append([]string(nil), s.Hosts...),
	}
}

// BrowserSettings is a point-in-time copy of BrowserSection.
type BrowserSettings struct {
	CDPEndpoint string
	UserDataDir string
	Headless    bool
	Hosts       []string
}
