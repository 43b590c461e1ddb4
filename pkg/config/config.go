// Copyright 2025 Certen Protocol

// Package config holds the node's runtime configuration: a single flat
// struct populated from environment variables with typed defaults, plus
// an optional YAML file overlay for values operators want to pin per
// deployment rather than repeat in every shell.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a HardClaw node.
type Config struct {
	// Network
	ListenAddr  string // P2P listen address
	RPCAddr     string // Read-only query HTTP surface
	MetricsAddr string // Prometheus /metrics surface
	ChainID     string
	Peers       []string

	// Consensus
	ConsensusThresholdPct   float64 // validated to (0, 1]; block finality uses the fixed 66% of types.ConsensusThreshold, not this value
	MaxSolutionsPerBlock    int
	MaxBlockSizeBytes       int
	TargetBlockTimeMs       uint64
	MinVerificationsToBuild int

	// Schelling-point voting
	SchellingCommitWindowMs int
	SchellingRevealWindowMs int
	SchellingMinVoters      int

	// Stake
	MinStakeHclaw        uint64
	UnbondingPeriodMs     int64
	HoneyPotSampleRatePct float64

	// Tokenomics
	BlockRewardHclaw  uint64
	BurnFeeMinHclaw   uint64
	FeeSplitRequester uint8 // percent (0-100); passed to tokenomics as the solver share
	FeeSplitVerifier  uint8
	FeeSplitBurn      uint8

	// Sandbox
	SandboxTimeout        time.Duration
	SandboxMaxMemoryBytes int64
	SandboxMaxStackBytes  int64
	PythonBinary          string

	// Safety review
	SafetyMinReviewers      int
	SafetyCommitTimeoutMs   int64
	SafetyRevealTimeoutMs   int64
	SafetyReviewAPIEndpoint string
	SafetyReviewModelID     string

	// Database / persistence
	DatabaseURL         string
	DatabaseMaxConns    int
	DatabaseMinConns    int
	DatabaseMaxIdleTime int // seconds
	DatabaseMaxLifetime int // seconds
	KVStoreDir          string
	KVStoreBackend      string // "badger", "goleveldb", "memdb" (cometbft-db backends)

	// Server
	LogLevel string
	DataDir  string

	// KeyPath is the path to the node's Ed25519 identity key.
	KeyPath string
}

// fileOverlay is the shape of the optional YAML config file: every field
// mirrors Config but stays a pointer so an absent key leaves the
// environment-derived default untouched.
type fileOverlay struct {
	Network struct {
		ChainID string   `yaml:"chain_id"`
		Peers   []string `yaml:"peers"`
	} `yaml:"network"`
	Consensus struct {
		ThresholdPct *float64 `yaml:"threshold_pct"`
	} `yaml:"consensus"`
	Stake struct {
		MinStakeHclaw *uint64 `yaml:"min_stake_hclaw"`
	} `yaml:"stake"`
}

// Load builds a Config from environment variables. If a YAML file exists
// at path (pass "" to skip), its values are applied first as defaults,
// then environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := applyFileOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddr:  "0.0.0.0:26656",
		RPCAddr:     "0.0.0.0:8080",
		MetricsAddr: "0.0.0.0:9090",
		ChainID:     "hardclaw-devnet",

		ConsensusThresholdPct:   0.66,
		MaxSolutionsPerBlock:    1000,
		MaxBlockSizeBytes:       1_000_000,
		TargetBlockTimeMs:       1000,
		MinVerificationsToBuild: 1,

		SchellingCommitWindowMs: 300_000,
		SchellingRevealWindowMs: 300_000,
		SchellingMinVoters:      5,

		MinStakeHclaw:         1000,
		UnbondingPeriodMs:      7 * 24 * 60 * 60 * 1000,
		HoneyPotSampleRatePct:  5.0,

		BlockRewardHclaw:  10,
		BurnFeeMinHclaw:   1,
		FeeSplitRequester: 95,
		FeeSplitVerifier:  4,
		FeeSplitBurn:      1,

		SandboxTimeout:        5 * time.Second,
		SandboxMaxMemoryBytes: 100 << 20,
		SandboxMaxStackBytes:  8 << 20,
		PythonBinary:          "python3",

		SafetyMinReviewers:    5,
		SafetyCommitTimeoutMs: 300_000,
		SafetyRevealTimeoutMs: 300_000,
		SafetyReviewModelID:   "default",

		DatabaseMaxConns:    25,
		DatabaseMinConns:    5,
		DatabaseMaxIdleTime: 300,
		DatabaseMaxLifetime: 3600,
		KVStoreDir:          "./data/kv",
		KVStoreBackend:      "badger",

		LogLevel: "info",
		DataDir:  "./data",
	}
}

func applyFileOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if overlay.Network.ChainID != "" {
		cfg.ChainID = overlay.Network.ChainID
	}
	if len(overlay.Network.Peers) > 0 {
		cfg.Peers = overlay.Network.Peers
	}
	if overlay.Consensus.ThresholdPct != nil {
		cfg.ConsensusThresholdPct = *overlay.Consensus.ThresholdPct
	}
	if overlay.Stake.MinStakeHclaw != nil {
		cfg.MinStakeHclaw = *overlay.Stake.MinStakeHclaw
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ListenAddr = getEnv("HARDCLAW_LISTEN_ADDR", cfg.ListenAddr)
	cfg.RPCAddr = getEnv("HARDCLAW_RPC_ADDR", cfg.RPCAddr)
	cfg.MetricsAddr = getEnv("HARDCLAW_METRICS_ADDR", cfg.MetricsAddr)
	cfg.ChainID = getEnv("HARDCLAW_CHAIN_ID", cfg.ChainID)
	if peers := getEnv("HARDCLAW_PEERS", ""); peers != "" {
		cfg.Peers = parseCommaList(peers)
	}

	cfg.ConsensusThresholdPct = getEnvFloat("HARDCLAW_CONSENSUS_THRESHOLD_PCT", cfg.ConsensusThresholdPct)
	cfg.MaxSolutionsPerBlock = getEnvInt("HARDCLAW_MAX_SOLUTIONS_PER_BLOCK", cfg.MaxSolutionsPerBlock)
	cfg.MaxBlockSizeBytes = getEnvInt("HARDCLAW_MAX_BLOCK_SIZE_BYTES", cfg.MaxBlockSizeBytes)
	cfg.TargetBlockTimeMs = uint64(getEnvInt("HARDCLAW_TARGET_BLOCK_TIME_MS", int(cfg.TargetBlockTimeMs)))
	cfg.MinVerificationsToBuild = getEnvInt("HARDCLAW_MIN_VERIFICATIONS_TO_BUILD", cfg.MinVerificationsToBuild)

	cfg.SchellingCommitWindowMs = getEnvInt("HARDCLAW_SCHELLING_COMMIT_WINDOW_MS", cfg.SchellingCommitWindowMs)
	cfg.SchellingRevealWindowMs = getEnvInt("HARDCLAW_SCHELLING_REVEAL_WINDOW_MS", cfg.SchellingRevealWindowMs)
	cfg.SchellingMinVoters = getEnvInt("HARDCLAW_SCHELLING_MIN_VOTERS", cfg.SchellingMinVoters)

	cfg.MinStakeHclaw = uint64(getEnvInt("HARDCLAW_MIN_STAKE_HCLAW", int(cfg.MinStakeHclaw)))
	cfg.UnbondingPeriodMs = int64(getEnvInt("HARDCLAW_UNBONDING_PERIOD_MS", int(cfg.UnbondingPeriodMs)))
	cfg.HoneyPotSampleRatePct = getEnvFloat("HARDCLAW_HONEYPOT_SAMPLE_RATE_PCT", cfg.HoneyPotSampleRatePct)

	cfg.BlockRewardHclaw = uint64(getEnvInt("HARDCLAW_BLOCK_REWARD_HCLAW", int(cfg.BlockRewardHclaw)))
	cfg.BurnFeeMinHclaw = uint64(getEnvInt("HARDCLAW_BURN_FEE_MIN_HCLAW", int(cfg.BurnFeeMinHclaw)))

	cfg.SandboxTimeout = getEnvDuration("HARDCLAW_SANDBOX_TIMEOUT", cfg.SandboxTimeout)
	cfg.SandboxMaxMemoryBytes = int64(getEnvInt("HARDCLAW_SANDBOX_MAX_MEMORY_BYTES", int(cfg.SandboxMaxMemoryBytes)))
	cfg.SandboxMaxStackBytes = int64(getEnvInt("HARDCLAW_SANDBOX_MAX_STACK_BYTES", int(cfg.SandboxMaxStackBytes)))
	cfg.PythonBinary = getEnv("HARDCLAW_PYTHON_BINARY", cfg.PythonBinary)

	cfg.SafetyMinReviewers = getEnvInt("HARDCLAW_SAFETY_MIN_REVIEWERS", cfg.SafetyMinReviewers)
	cfg.SafetyReviewAPIEndpoint = getEnv("HARDCLAW_SAFETY_REVIEW_ENDPOINT", cfg.SafetyReviewAPIEndpoint)
	cfg.SafetyReviewModelID = getEnv("HARDCLAW_SAFETY_REVIEW_MODEL_ID", cfg.SafetyReviewModelID)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabaseMaxConns = getEnvInt("DATABASE_MAX_CONNS", cfg.DatabaseMaxConns)
	cfg.DatabaseMinConns = getEnvInt("DATABASE_MIN_CONNS", cfg.DatabaseMinConns)
	cfg.DatabaseMaxIdleTime = getEnvInt("DATABASE_MAX_IDLE_TIME", cfg.DatabaseMaxIdleTime)
	cfg.DatabaseMaxLifetime = getEnvInt("DATABASE_MAX_LIFETIME", cfg.DatabaseMaxLifetime)
	cfg.KVStoreDir = getEnv("HARDCLAW_KV_STORE_DIR", cfg.KVStoreDir)
	cfg.KVStoreBackend = getEnv("HARDCLAW_KV_STORE_BACKEND", cfg.KVStoreBackend)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.KeyPath = getEnv("HARDCLAW_KEY_PATH", cfg.KeyPath)
}

// Validate checks invariants that must hold before a node starts.
func (c *Config) Validate() error {
	var errs []string

	if c.ConsensusThresholdPct <= 0 || c.ConsensusThresholdPct > 1 {
		errs = append(errs, "consensus threshold must be in (0, 1]")
	}
	if c.MinStakeHclaw == 0 {
		errs = append(errs, "minimum stake must be greater than zero")
	}
	total := int(c.FeeSplitRequester) + int(c.FeeSplitVerifier) + int(c.FeeSplitBurn)
	if total != 100 {
		errs = append(errs, fmt.Sprintf("fee split must sum to 100, got %d", total))
	}
	if c.DatabaseURL == "" && c.KVStoreDir == "" {
		errs = append(errs, "at least one of DATABASE_URL or HARDCLAW_KV_STORE_DIR is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseCommaList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
