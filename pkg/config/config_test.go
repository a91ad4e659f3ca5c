package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoadMissingConfig verifies that a missing file yields the defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Labeling.MinArea != 2500 {
		t.Errorf("Expected default minArea 2500, got %g", cfg.Labeling.MinArea)
	}
	if cfg.Stitching.Radius != 50 {
		t.Errorf("Expected default radius 50, got %d", cfg.Stitching.Radius)
	}
	if cfg.Bridging.SpanningTree != "kruskal" {
		t.Errorf("Expected default spanning tree kruskal, got %s", cfg.Bridging.SpanningTree)
	}
}

// TestSaveAndLoad verifies a configuration survives a round trip through disk
func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "unwbridge.yaml")

	cfg := DefaultConfig()
	cfg.Labeling.ErosionSize = 3
	cfg.Bridging.SpanningTree = "prim"
	cfg.Stitching.RampType = "quadratic"
	cfg.Output.SavePlot = true

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Labeling.ErosionSize != 3 {
		t.Errorf("Expected erosionSize 3, got %d", loaded.Labeling.ErosionSize)
	}
	if loaded.Bridging.SpanningTree != "prim" {
		t.Errorf("Expected spanningTree prim, got %s", loaded.Bridging.SpanningTree)
	}
	if loaded.Stitching.RampType != "quadratic" {
		t.Errorf("Expected rampType quadratic, got %s", loaded.Stitching.RampType)
	}
	if !loaded.Output.SavePlot {
		t.Error("Expected savePlot to be true")
	}

	params := loaded.Params()
	if params.ErosionSize != 3 || params.SpanningTree != "prim" || params.RampType != "quadratic" {
		t.Errorf("Expected params to follow the config, got %+v", params)
	}
}

// TestPartialConfig verifies that unspecified keys keep their defaults
func TestPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "stitching:\n  radius: 20\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Stitching.Radius != 20 {
		t.Errorf("Expected radius 20, got %d", cfg.Stitching.Radius)
	}
	if cfg.Labeling.ErosionSize != 5 {
		t.Errorf("Expected default erosionSize 5, got %d", cfg.Labeling.ErosionSize)
	}
}

// TestInvalidConfig verifies that unusable values are rejected
func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"erosion", "labeling:\n  erosionSize: 0\n", "erosionSize"},
		{"tree", "bridging:\n  spanningTree: boruvka\n", "spanningTree"},
		{"radius", "stitching:\n  radius: -1\n", "radius"},
		{"syntax", "labeling: [\n", "parsing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
