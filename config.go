package termgfx

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gogpu/termgfx/batch"
	"github.com/gogpu/termgfx/cache"
)

// Config holds engine configuration. The Font data is the only required
// field; every zero-valued setting falls back to its default.
type Config struct {
	// Font is the TTF/OTF font data used for shaping and rasterization.
	Font []byte

	// Scrollback is the number of retained lines. Default: 10000.
	Scrollback int

	// FontSize is the rasterization size in pixels. Default: 16.
	FontSize float64

	// AtlasSize is the edge length of the square atlas page. Default: 512.
	AtlasSize int

	// ViewportLines is the number of rows the viewport shows. Default: 40.
	ViewportLines int

	// Overscan is the number of extra rows composed above and below the
	// viewport. Default: 5.
	Overscan int

	// MaxBatchSize is the quad cap per draw batch, at most
	// batch.MaxIndexedQuads. Default: 4096.
	MaxBatchSize int

	// MaintenanceInterval is the period between background maintenance
	// ticks. Default: 500ms.
	MaintenanceInterval time.Duration

	// Cache configures the composed-geometry cache.
	Cache cache.Config

	// NoShaping disables HarfBuzz shaping; every line then lays out with
	// fixed per-glyph advances.
	NoShaping bool
}

// DefaultConfig returns the default engine configuration. Font must
// still be set before the config is usable.
func DefaultConfig() Config {
	return Config{
		Scrollback:    10000,
		FontSize:      16,
		AtlasSize:     512,
		ViewportLines: 40,
		Overscan:      5,
		MaxBatchSize:  4096,
		Cache:         cache.DefaultConfig(),
	}
}

// ParseConfig overlays a JSON settings document onto the default
// configuration. Unknown keys are ignored; absent keys keep their
// defaults. Font data cannot come from JSON and is set separately.
//
// Recognized keys:
//
//	{
//	  "scrollback": 10000,
//	  "font_size": 16,
//	  "atlas_size": 512,
//	  "viewport_lines": 40,
//	  "overscan": 5,
//	  "max_batch_size": 4096,
//	  "maintenance_interval_ms": 500,
//	  "no_shaping": false,
//	  "cache": {
//	    "lru_capacity": 2048,
//	    "lfu_capacity": 256,
//	    "ttl_capacity": 256,
//	    "predictive_capacity": 128,
//	    "compression_threshold": 1024
//	  }
//	}
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if !gjson.ValidBytes(data) {
		return Config{}, fmt.Errorf("termgfx: config is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	intKey(doc, "scrollback", &cfg.Scrollback)
	if v := doc.Get("font_size"); v.Exists() {
		cfg.FontSize = v.Float()
	}
	intKey(doc, "atlas_size", &cfg.AtlasSize)
	intKey(doc, "viewport_lines", &cfg.ViewportLines)
	intKey(doc, "overscan", &cfg.Overscan)
	intKey(doc, "max_batch_size", &cfg.MaxBatchSize)
	if v := doc.Get("maintenance_interval_ms"); v.Exists() {
		cfg.MaintenanceInterval = time.Duration(v.Int()) * time.Millisecond
	}
	if v := doc.Get("no_shaping"); v.Exists() {
		cfg.NoShaping = v.Bool()
	}

	intKey(doc, "cache.lru_capacity", &cfg.Cache.LRUCapacity)
	intKey(doc, "cache.lfu_capacity", &cfg.Cache.LFUCapacity)
	intKey(doc, "cache.ttl_capacity", &cfg.Cache.TTLCapacity)
	intKey(doc, "cache.predictive_capacity", &cfg.Cache.PredictiveCapacity)
	intKey(doc, "cache.compression_threshold", &cfg.Cache.CompressionThreshold)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func intKey(doc gjson.Result, path string, dst *int) {
	if v := doc.Get(path); v.Exists() {
		*dst = int(v.Int())
	}
}

func (c Config) validate() error {
	if c.Scrollback < 1 {
		return fmt.Errorf("termgfx: scrollback %d out of range", c.Scrollback)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("termgfx: font_size %v out of range", c.FontSize)
	}
	if c.AtlasSize < 1 {
		return fmt.Errorf("termgfx: atlas_size %d out of range", c.AtlasSize)
	}
	if c.ViewportLines < 1 {
		return fmt.Errorf("termgfx: viewport_lines %d out of range", c.ViewportLines)
	}
	if c.Overscan < 0 {
		return fmt.Errorf("termgfx: overscan %d out of range", c.Overscan)
	}
	if c.MaxBatchSize < 1 || c.MaxBatchSize > batch.MaxIndexedQuads {
		return fmt.Errorf("termgfx: max_batch_size %d out of range", c.MaxBatchSize)
	}
	return nil
}
