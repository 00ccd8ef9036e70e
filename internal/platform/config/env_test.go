package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	SnapshotEvery int `env:"WHISPYRKEEP_TEST_SNAPSHOT_EVERY" envDefault:"20"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.SnapshotEvery != 20 {
		t.Fatalf("expected default 20, got %d", cfg.SnapshotEvery)
	}
}

func TestParseEnvOverride(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("WHISPYRKEEP_TEST_SNAPSHOT_EVERY", "5")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.SnapshotEvery != 5 {
		t.Fatalf("expected 5, got %d", cfg.SnapshotEvery)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("WHISPYRKEEP_TEST_SNAPSHOT_EVERY", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
