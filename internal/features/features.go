package features

import (
	"sort"
	"sync"
)

// Feature flag names
const (
	// FeatureCacheEnabled serves repeated catalog selections from the cache
	FeatureCacheEnabled = "cache_enabled"
	// FeatureEventHooksEnabled publishes catalog and selection events
	FeatureEventHooksEnabled = "event_hooks_enabled"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// NewDefaultManager registers the service's flags with the given states.
func NewDefaultManager(cacheEnabled, eventHooksEnabled bool) *Manager {
	m := NewManager()
	m.Register(FeatureCacheEnabled, cacheEnabled, "Serve repeated catalog selections from the cache")
	m.Register(FeatureEventHooksEnabled, eventHooksEnabled, "Publish catalog.stored and selection.completed events")
	return m
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled. Unknown flags are disabled.
func (m *Manager) IsEnabled(name string) bool {
	if m == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	return exists && flag.Enabled
}

// Enable enables a feature flag.
func (m *Manager) Enable(name string) {
	m.set(name, true)
}

// Disable disables a feature flag.
func (m *Manager) Disable(name string) {
	m.set(name, false)
}

func (m *Manager) set(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}

// GetAll returns a copy of all feature flags sorted by name.
func (m *Manager) GetAll() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
