package live

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is an attached browser and the tab the engine drives.
type Session struct {
	// Browser is nil for persistent-profile sessions, which only own a context.
	Browser playwright.Browser

	// Context is the browser context holding the user's login state.
	Context playwright.BrowserContext

	// Page is the chat tab.
	Page playwright.Page

	// Attached is true when the session joined a browser the user started (CDP);
	// closing such a session leaves the browser running.
	Attached bool

	CreatedAt time.Time
}

// SessionOptions configures how a session is obtained.
// CDPEndpoint takes precedence over UserDataDir; with neither set a fresh,
// logged-out browser is launched.
type SessionOptions struct {
	// CDPEndpoint attaches to a running Chromium (e.g. http://localhost:9222).
	CDPEndpoint string

	// UserDataDir launches Chromium with a persistent profile.
	UserDataDir string

	// Headless controls whether a launched browser shows a window.
	Headless bool

	// StartURL is opened when no existing tab matches the host patterns.
	StartURL string

	// Viewport sets the window size of launched browsers.
	Viewport *Viewport

	// Timeout sets the default timeout for page operations (in milliseconds).
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for sessions.
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
	DefaultStartURL       = "https://chatgpt.com/"
)

// DefaultHosts are the chat sites a tab must belong to.
var DefaultHosts = []string{
	"https://chatgpt.com/*",
	"https://chat.openai.com/*",
}
