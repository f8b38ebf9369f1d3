package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Fatalf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Matching.Email.ClientPoints != 100 {
		t.Fatalf("client points = %d, want 100", cfg.Matching.Email.ClientPoints)
	}
	if cfg.Matching.Email.CMPPoints >= cfg.Matching.Email.PricePoints {
		t.Fatal("CMP credit must stay below a full price match")
	}
	if cfg.Matching.Audio.TightWindow != 5*time.Minute {
		t.Fatalf("tight window = %v, want 5m", cfg.Matching.Audio.TightWindow)
	}
	if cfg.Normalize.CanonicalPrefix != "NEO" {
		t.Fatalf("canonical prefix = %q, want NEO", cfg.Normalize.CanonicalPrefix)
	}
	if len(cfg.Normalize.PrefixRules) == 0 {
		t.Fatal("expected default prefix rules")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yaml := `
server:
  port: 9090
matching:
  price_tolerance: 0.1
  audio:
    tight_window: 3m
  email:
    high_band: 80
normalize:
  symbol_aliases:
    "ACME CORP": ACME
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Matching.PriceTolerance != 0.1 {
		t.Fatalf("price tolerance = %v, want 0.1", cfg.Matching.PriceTolerance)
	}
	if cfg.Matching.Audio.TightWindow != 3*time.Minute {
		t.Fatalf("tight window = %v, want 3m", cfg.Matching.Audio.TightWindow)
	}
	if cfg.Matching.Email.HighBand != 80 {
		t.Fatalf("high band = %v, want 80", cfg.Matching.Email.HighBand)
	}
	// Untouched fields keep their defaults.
	if cfg.Matching.Email.ClientPoints != 100 {
		t.Fatalf("client points = %d, want default 100", cfg.Matching.Email.ClientPoints)
	}
	if cfg.Normalize.SymbolAliases["ACME CORP"] != "ACME" {
		t.Fatal("expected merged symbol alias")
	}
}

func TestValidateCrossFieldRules(t *testing.T) {
	cfg := Default()
	cfg.Matching.Email.TimeZeroWindow = cfg.Matching.Email.TimeFullWindow - time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatal("time_zero_window below time_full_window must not validate")
	}

	cfg = Default()
	cfg.Matching.Audio.FallbackConfidence = cfg.Matching.Audio.TightConfidence
	if err := cfg.Validate(); err == nil {
		t.Fatal("fallback confidence at or above tight confidence must not validate")
	}

	cfg = Default()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("port 0 must not validate")
	}
}
