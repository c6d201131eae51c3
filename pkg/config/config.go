// Package config persists user settings in sections: the model backend, the
// analysis personalization and the browser session.
package config

// New creates a manager over the file at configPath with every section
// registered and loaded.
func New(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	for _, s := range []Section{NewLLMSection(), NewAnalysisSection(), NewBrowserSection()} {
		if err := manager.RegisterSection(s); err != nil {
			return nil, err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// LLM returns m's LLM section, or nil.
func (m *Manager) LLM() *LLMSection {
	return sectionAs[*LLMSection](m, SectionIDLLM)
}

// Analysis returns m's analysis section, or nil.
func (m *Manager) Analysis() *AnalysisSection {
	return sectionAs[*AnalysisSection](m, SectionIDAnalysis)
}

// Browser returns m's browser section, or nil.
func (m *Manager) Browser() *BrowserSection {
	return sectionAs[*BrowserSection](m, SectionIDBrowser)
}

func sectionAs[T Section](m *Manager, id string) T {
	var zero T
	if m == nil {
		return zero
	}
	section, ok := m.GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}
