// Package config loads and hot-reloads the warden.json host configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPolicyTimeoutMs bounds how long an evaluation waits for the remote
// evaluator when the config file does not say otherwise.
const DefaultPolicyTimeoutMs = 1000

// Config represents the warden.json configuration file.
type Config struct {
	// PolicyTopic is the control-interface topic the remote policy
	// evaluator listens on. When empty, remote evaluation is disabled and
	// every action is allowed.
	PolicyTopic string `json:"policyTopic"`

	// PolicyTimeoutMs bounds a single evaluation round trip.
	PolicyTimeoutMs int `json:"policyTimeoutMs"`

	// OverrideTopic is the topic decision overrides arrive on. When empty,
	// the override path is not subscribed.
	OverrideTopic string `json:"overrideTopic"`

	// Host identity and metadata forwarded to the remote evaluator.
	HostPublicKey  string            `json:"hostPublicKey"`
	LatticeID      string            `json:"latticeId"`
	HostLabels     map[string]string `json:"hostLabels"`
	ClusterIssuers []string          `json:"clusterIssuers"`

	// AdminPort is the port the admin HTTP server listens on.
	AdminPort int `json:"adminPort"`
}

// LoadConfig loads warden.json from the current directory or a parent
// directory.
func LoadConfig() (*Config, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return loadConfigFromDir(dir)
}

// LoadConfigFromPath loads the configuration from a specific path.
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.PolicyTimeoutMs <= 0 {
		config.PolicyTimeoutMs = DefaultPolicyTimeoutMs
	}
	if config.LatticeID == "" {
		config.LatticeID = "default"
	}
	if config.HostLabels == nil {
		config.HostLabels = make(map[string]string)
	}
	if config.AdminPort == 0 {
		config.AdminPort = 8081
	}

	return &config, nil
}

// loadConfigFromDir searches for warden.json in the given directory and its
// parents.
func loadConfigFromDir(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, "warden.json")
		if _, err := os.Stat(configPath); err == nil {
			config, err := LoadConfigFromPath(configPath)
			if err != nil {
				return nil, "", err
			}
			return config, configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}

	return nil, "", fmt.Errorf("no warden.json found in %s or any parent directory", startDir)
}
