package menu

import "time"

// Selectors describes where the host page keeps its conversation list,
// sidebar toggle and menus.
type Selectors struct {
	// SidebarRoots are searched in order for conversation links.
	SidebarRoots []string

	// ConversationLinks matches links to individual conversations.
	ConversationLinks string

	// RowContainers are tried in order to find the row around a link.
	RowContainers []string

	// ActiveLink matches the highlighted conversation link.
	ActiveLink string

	// ActiveRowContainers are tried in order around the active link.
	ActiveRowContainers []string

	// SidebarToggles are tried in order; the first collapsed one is clicked.
	SidebarToggles []string

	// MenuItems matches items of an open menu.
	MenuItems string

	// Clickables is the page-wide fallback when no menu item matches.
	Clickables string
}

// DefaultSelectors matches the ChatGPT web app.
var DefaultSelectors = Selectors{
	SidebarRoots: []string{
		`[aria-label="Chat history"]`,
		`[aria-label="Conversations"]`,
		`[data-testid="chat-history"]`,
		`nav`,
		`aside`,
		`[class*="sidebar"]`,
		`body`,
	},
	ConversationLinks: `a[href^="/c/"], a[href^="/g/"]`,
	RowContainers: []string{
		`li`,
		`[role="listitem"]`,
		`[class*="group"]`,
		`div`,
	},
	ActiveLink: `a[aria-current="page"][href^="/c/"], a[aria-current="page"][href^="/g/"], ` +
		`a[href^="/c/"].active, a[href^="/g/"].active`,
	ActiveRowContainers: []string{
		`li`,
		`[role="listitem"]`,
	},
	SidebarToggles: []string{
		`button[aria-label="Open sidebar"]`,
		`button[aria-label="Close sidebar"]`,
		`button[aria-expanded]`,
		`[data-testid="sidebar-toggle"]`,
	},
	MenuItems:  `[role="menu"] [role="menuitem"]`,
	Clickables: `[role="menuitem"], [role="option"], button, [role="button"]`,
}

// Timings are the waits between states.
type Timings struct {
	// LocateRetry is the wait after expanding the sidebar before locating again.
	LocateRetry time.Duration

	// Settle is the wait after opening the menu before looking for the item.
	Settle time.Duration

	// ItemRetry is the wait between item lookups.
	ItemRetry time.Duration

	// ItemRetries is how many lookups follow the first one.
	ItemRetries int
}

// DefaultTimings gives a worst case of about 1.85s for a failed action.
var DefaultTimings = Timings{
	LocateRetry: 500 * time.Millisecond,
	Settle:      350 * time.Millisecond,
	ItemRetry:   250 * time.Millisecond,
	ItemRetries: 4,
}
