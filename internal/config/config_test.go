package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Backend != "bruteforce" {
		t.Errorf("expected default backend 'bruteforce', got %q", cfg.Index.Backend)
	}
	if cfg.Index.Dimensions != 384 {
		t.Errorf("expected default dimensions 384, got %d", cfg.Index.Dimensions)
	}
	if cfg.ChromaMirror.Enabled {
		t.Error("expected chroma mirror disabled by default")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{Index: IndexConfig{Backend: "bogus", Dimensions: 8}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestValidateRequiresMirrorURLWhenEnabled(t *testing.T) {
	cfg := &Config{
		Index:        IndexConfig{Backend: "bruteforce", Dimensions: 8},
		ChromaMirror: ChromaMirrorConfig{Enabled: true, URL: ""},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when chroma mirror is enabled without a URL")
	}
}
