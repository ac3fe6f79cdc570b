package termgfx

import (
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig(nil): %v", err)
	}
	want := DefaultConfig()
	if cfg.Scrollback != want.Scrollback || cfg.FontSize != want.FontSize ||
		cfg.AtlasSize != want.AtlasSize || cfg.ViewportLines != want.ViewportLines {
		t.Errorf("ParseConfig(nil) = %+v, want defaults %+v", cfg, want)
	}
}

func TestParseConfigOverlaysKeys(t *testing.T) {
	doc := []byte(`{
		"scrollback": 5000,
		"font_size": 14.5,
		"viewport_lines": 60,
		"maintenance_interval_ms": 250,
		"no_shaping": true,
		"cache": {"lru_capacity": 512, "compression_threshold": 2048}
	}`)

	cfg, err := ParseConfig(doc)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Scrollback != 5000 {
		t.Errorf("Scrollback = %d, want 5000", cfg.Scrollback)
	}
	if cfg.FontSize != 14.5 {
		t.Errorf("FontSize = %v, want 14.5", cfg.FontSize)
	}
	if cfg.ViewportLines != 60 {
		t.Errorf("ViewportLines = %d, want 60", cfg.ViewportLines)
	}
	if cfg.MaintenanceInterval != 250*time.Millisecond {
		t.Errorf("MaintenanceInterval = %v, want 250ms", cfg.MaintenanceInterval)
	}
	if !cfg.NoShaping {
		t.Error("NoShaping = false, want true")
	}
	if cfg.Cache.LRUCapacity != 512 || cfg.Cache.CompressionThreshold != 2048 {
		t.Errorf("cache overlay = %+v", cfg.Cache)
	}
	// Untouched keys keep their defaults.
	if cfg.AtlasSize != DefaultConfig().AtlasSize {
		t.Errorf("AtlasSize = %d, want default", cfg.AtlasSize)
	}
	if cfg.Cache.LFUCapacity != DefaultConfig().Cache.LFUCapacity {
		t.Errorf("Cache.LFUCapacity = %d, want default", cfg.Cache.LFUCapacity)
	}
}

func TestParseConfigRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseConfig([]byte(`{"scrollback": `)); err == nil {
		t.Error("ParseConfig accepted truncated JSON")
	}
}

func TestParseConfigRejectsOutOfRangeValues(t *testing.T) {
	docs := []string{
		`{"scrollback": 0}`,
		`{"font_size": -2}`,
		`{"viewport_lines": 0}`,
		`{"max_batch_size": -1}`,
		`{"max_batch_size": 16385}`, // past the uint16 index space
	}
	for _, doc := range docs {
		if _, err := ParseConfig([]byte(doc)); err == nil {
			t.Errorf("ParseConfig(%s) accepted out-of-range value", doc)
		}
	}
}

func TestParseConfigIgnoresUnknownKeys(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"unknown_key": true, "scrollback": 100}`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Scrollback != 100 {
		t.Errorf("Scrollback = %d, want 100", cfg.Scrollback)
	}
}
