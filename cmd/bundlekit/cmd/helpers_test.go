package cmd

import (
	"testing"

	"github.com/bianoble/bundlekit/internal/config"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{2684354560, "2.5 GB"},
	}

	for _, tt := range tests {
		got := humanSize(tt.bytes)
		if got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestManifestName(t *testing.T) {
	cfg := &config.Config{}
	if got := manifestName(cfg); got != config.DefaultManifestFilename {
		t.Errorf("manifestName() = %q, want default", got)
	}

	cfg.Plugins = []config.Plugin{
		{Kind: config.PluginHTML},
		{Kind: config.PluginManifest, Options: map[string]any{"filename": "assets.json"}},
	}
	if got := manifestName(cfg); got != "assets.json" {
		t.Errorf("manifestName() = %q, want assets.json", got)
	}
}
