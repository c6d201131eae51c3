package config

// Section is one named group of settings persisted under its ID.
type Section interface {
	// ID is the key the section is stored under.
	ID() string

	// Title is a human-readable name.
	Title() string

	// Description explains what the section configures.
	Description() string

	// Data returns the settings as a plain map for persistence.
	Data() map[string]any

	// SetData replaces settings from a persisted map. Unknown keys are ignored.
	SetData(data map[string]any) error

	// Validate reports whether the current settings are usable.
	Validate() error

	// Reset restores the defaults.
	Reset()
}
