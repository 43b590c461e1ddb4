// Copyright 2025 Certen Protocol

package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != "hardclaw-devnet" {
		t.Fatalf("expected default chain id, got %q", cfg.ChainID)
	}
	if cfg.ConsensusThresholdPct != 0.66 {
		t.Fatalf("expected default threshold 0.66, got %v", cfg.ConsensusThresholdPct)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HARDCLAW_CHAIN_ID", "hardclaw-testnet")
	t.Setenv("HARDCLAW_MIN_STAKE_HCLAW", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != "hardclaw-testnet" {
		t.Fatalf("expected env override, got %q", cfg.ChainID)
	}
	if cfg.MinStakeHclaw != 5000 {
		t.Fatalf("expected overridden min stake 5000, got %d", cfg.MinStakeHclaw)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "hardclaw-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString("network:\n  chain_id: hardclaw-staging\nstake:\n  min_stake_hclaw: 2500\n"); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != "hardclaw-staging" {
		t.Fatalf("expected overlay chain id, got %q", cfg.ChainID)
	}
	if cfg.MinStakeHclaw != 2500 {
		t.Fatalf("expected overlay min stake 2500, got %d", cfg.MinStakeHclaw)
	}
}

func TestValidateRejectsBadFeeSplit(t *testing.T) {
	cfg := defaultConfig()
	cfg.DatabaseURL = "postgres://localhost/test"
	cfg.FeeSplitRequester = 50
	cfg.FeeSplitVerifier = 50
	cfg.FeeSplitBurn = 50

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for fee split summing to 150")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := defaultConfig()
	cfg.DatabaseURL = "postgres://localhost/test"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
