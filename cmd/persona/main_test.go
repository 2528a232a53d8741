package main

import (
	"testing"

	"persona/internal/config"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gopher", "gopher"},
		{"u/gopher", "gopher"},
		{"/u/gopher", "gopher"},
		{"  u/gopher  ", "gopher"},
		{"", ""},
		{"   ", ""},
		{"u/", ""},
	}
	for _, tt := range tests {
		if got := normalizeUsername(tt.in); got != tt.want {
			t.Errorf("normalizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := config.Default()

	applyFlagOverrides(&cfg, "groq", "llama-x", "zh-CN", 42)
	if cfg.Provider.Backend != "groq" {
		t.Fatalf("backend = %q", cfg.Provider.Backend)
	}
	if cfg.Provider.Model != "llama-x" {
		t.Fatalf("model = %q", cfg.Provider.Model)
	}
	if cfg.UI.Language != "zh-CN" {
		t.Fatalf("language = %q", cfg.UI.Language)
	}
	if cfg.Reddit.Limit != 42 {
		t.Fatalf("limit = %d", cfg.Reddit.Limit)
	}

	// 空值不覆盖 / Empty values leave the config untouched
	applyFlagOverrides(&cfg, "", "", "", 0)
	if cfg.Provider.Backend != "groq" || cfg.Reddit.Limit != 42 {
		t.Fatal("empty overrides should not reset previous values")
	}
}
