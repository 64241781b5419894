// Package config loads the MedVault runtime configuration: a YAML file
// with env-var overrides. A .env file next to the process is loaded
// first so local development can keep node URLs and wallet seeds out of
// the shell profile.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the full runtime configuration.
type Config struct {
	// NodeURL is the base URL of the ledger full node REST API.
	NodeURL string `yaml:"nodeUrl"`
	// ModuleAddress is the account the ledger module is deployed under.
	ModuleAddress string `yaml:"moduleAddress"`
	// StorePath is the blob store data directory.
	StorePath string `yaml:"storePath"`
	// ListenAddr is the API server bind address.
	ListenAddr string `yaml:"listenAddr"`
	// JWTSecret signs and verifies API tokens.
	JWTSecret string `yaml:"jwtSecret"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// ConfirmationAttempts bounds the transaction confirmation poll.
	ConfirmationAttempts int `yaml:"confirmationAttempts"`
}

func defaults() Config {
	return Config{
		NodeURL:              "http://localhost:8080/v1",
		ModuleAddress:        "0x1",
		StorePath:            "medvault-data",
		ListenAddr:           ":8721",
		LogLevel:             "info",
		ConfirmationAttempts: 30,
	}
}

// Load reads the YAML file at path, then applies environment overrides.
// A missing file is not an error; defaults plus the environment apply.
// An empty path skips the file entirely.
func Load(path string) (Config, error) {
	// Ignore a missing .env, it is optional everywhere but dev.
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.ConfirmationAttempts < 1 {
		cfg.ConfirmationAttempts = defaults().ConfirmationAttempts
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrideString(&cfg.NodeURL, "MEDVAULT_NODE_URL")
	overrideString(&cfg.ModuleAddress, "MEDVAULT_MODULE_ADDRESS")
	overrideString(&cfg.StorePath, "MEDVAULT_STORE_PATH")
	overrideString(&cfg.ListenAddr, "MEDVAULT_LISTEN_ADDR")
	overrideString(&cfg.JWTSecret, "MEDVAULT_JWT_SECRET")
	overrideString(&cfg.LogLevel, "MEDVAULT_LOG_LEVEL")
	overrideInt(&cfg.ConfirmationAttempts, "MEDVAULT_CONFIRMATION_ATTEMPTS")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
