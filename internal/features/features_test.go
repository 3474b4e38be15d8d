package features

import "testing"

func TestDefaultManager(t *testing.T) {
	m := NewDefaultManager(true, false)

	if !m.IsEnabled(FeatureCacheEnabled) {
		t.Error("Expected cache flag enabled")
	}
	if m.IsEnabled(FeatureEventHooksEnabled) {
		t.Error("Expected event hooks flag disabled")
	}
	if m.IsEnabled("unknown") {
		t.Error("Expected unknown flag disabled")
	}

	m.Enable(FeatureEventHooksEnabled)
	m.Disable(FeatureCacheEnabled)
	if m.IsEnabled(FeatureCacheEnabled) || !m.IsEnabled(FeatureEventHooksEnabled) {
		t.Error("Expected toggled flags")
	}

	all := m.GetAll()
	if len(all) != 2 || all[0].Name != FeatureCacheEnabled {
		t.Errorf("Expected two flags sorted by name, got %+v", all)
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.IsEnabled(FeatureCacheEnabled) {
		t.Error("Expected nil manager to report flags disabled")
	}
}
