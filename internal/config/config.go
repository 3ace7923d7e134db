// Package config holds process-level configuration, loaded from environment
// variables. Cluster connection records are not configured here; they live
// in the cluster config store (see internal/connection).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, loaded from KAFKA_MCP_* environment
// variables.
type Config struct {
	// Transport is how the host UI connects: "stdio" or "http".
	Transport string `default:"stdio"`
	HTTPPort  int    `default:"8080" split_words:"true"`

	LogFormat string     `default:"json" split_words:"true"`
	LogLevel  slog.Level `default:"info" split_words:"true"`

	// ClusterConfigPath is where sanitized cluster records are persisted.
	// Defaults to ~/.kafka-cluster-mcp/clusters.json.
	ClusterConfigPath string `split_words:"true"`

	// Connection pool tuning.
	PoolIdleThreshold time.Duration `default:"5m" split_words:"true"`
	PoolSweepInterval time.Duration `default:"1m" split_words:"true"`

	// OAuth for the HTTP transport.
	OAuthEnabled   bool   `split_words:"true"`
	OAuthMode      string `default:"native" split_words:"true"`
	OAuthProvider  string `default:"okta" split_words:"true"`
	OAuthServerURL string `split_words:"true"`

	OIDCIssuer       string `envconfig:"OIDC_ISSUER"`
	OIDCClientID     string `envconfig:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `envconfig:"OIDC_CLIENT_SECRET"`
	OIDCAudience     string `envconfig:"OIDC_AUDIENCE"`

	OAuthRedirectURIs string `split_words:"true"`
	JWTSecret         string `envconfig:"JWT_SECRET"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("kafka_mcp", &cfg); err != nil {
		return Config{}, fmt.Errorf("parse configuration: %w", err)
	}
	if cfg.ClusterConfigPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.ClusterConfigPath = filepath.Join(home, ".kafka-cluster-mcp", "clusters.json")
	}
	return cfg, nil
}
