// config.go - Configuration management for the proof gateway daemon
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"poolgate/internal/verifier"
)

// Config represents the daemon configuration.
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	AdminToken string `json:"admin_token"`
	CacheSize  int    `json:"cache_size"`

	// Verification settings
	MaxInputs           int      `json:"max_inputs"`
	MaxProofSize        int      `json:"max_proof_size"`
	CostLimit           uint64   `json:"cost_limit"`
	RequireTimestamp    bool     `json:"require_timestamp"`
	AllowedProofFormats []string `json:"allowed_proof_formats"`

	// Predicate selection: "checksum" or "groth16". The groth16 predicate
	// requires a verifying key file.
	ProofFormat      string `json:"proof_format"`
	VerifyingKeyPath string `json:"verifying_key_path"`

	// Root history
	RootCapacity int      `json:"root_capacity"`
	InitialRoots []string `json:"initial_roots"`

	// Extension settings
	ExtensionAppKey    uint64 `json:"extension_app_key"`
	ExtensionThreshold uint64 `json:"extension_threshold"`

	// Logging
	LogLevel     string `json:"log_level"`
	LogFile      string `json:"log_file"`
	AuditLogPath string `json:"audit_log_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	vcfg := verifier.DefaultConfig()
	return &Config{
		ListenAddr:          "127.0.0.1:8080",
		AdminToken:          "",
		CacheSize:           1024,
		MaxInputs:           vcfg.MaxInputs,
		MaxProofSize:        vcfg.MaxProofSize,
		CostLimit:           vcfg.CostLimit,
		RequireTimestamp:    vcfg.RequireTimestamp,
		AllowedProofFormats: vcfg.AllowedProofFormats,
		ProofFormat:         verifier.FormatChecksum,
		RootCapacity:        verifier.DefaultRootCapacity,
		ExtensionAppKey:     7,
		ExtensionThreshold:  verifier.DefaultActivationThreshold,
		LogLevel:            "info",
		LogFile:             "",
		AuditLogPath:        "",
	}
}

// LoadConfig loads configuration from file or creates the default.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}

		return &config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if c.MaxInputs <= 0 {
		return fmt.Errorf("max_inputs must be positive")
	}
	if c.MaxProofSize <= 0 {
		return fmt.Errorf("max_proof_size must be positive")
	}
	if c.RootCapacity <= 0 {
		return fmt.Errorf("root_capacity must be positive")
	}
	if c.ExtensionAppKey == 0 {
		return fmt.Errorf("extension_app_key must be positive")
	}
	switch c.ProofFormat {
	case verifier.FormatChecksum:
	case verifier.FormatGroth16:
		if c.VerifyingKeyPath == "" {
			return fmt.Errorf("verifying_key_path must be set for the groth16 format")
		}
	default:
		return fmt.Errorf("unknown proof_format %q", c.ProofFormat)
	}
	return nil
}

// VerifierConfig projects the daemon configuration onto the core's.
func (c *Config) VerifierConfig() *verifier.Config {
	return &verifier.Config{
		MaxInputs:           c.MaxInputs,
		MaxProofSize:        c.MaxProofSize,
		CostLimit:           c.CostLimit,
		RequireTimestamp:    c.RequireTimestamp,
		AllowedProofFormats: c.AllowedProofFormats,
	}
}
