package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	HTTPPort int
	APIKey   string

	OpenAIAPIKey string
	OpenAIModel  string

	SSHBind          string
	SSHPort          int
	SSHHostKeyPath   string
	SSHAllowedKeyFps []string

	DefaultSymbol         string
	DefaultInterval       string
	DefaultInitialBalance float64

	ClusterK             int
	ClusterMaxIterations int

	ResultCacheTTLSecs int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		APIKey:       os.Getenv("API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, archival disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, API authentication disabled")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, insight polishing disabled")
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.SSHBind = strings.TrimSpace(os.Getenv("SSH_BIND"))
	if cfg.SSHBind == "" {
		cfg.SSHBind = "0.0.0.0"
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/quant_sandbox_ed25519"
	}

	// Empty list means any public key is accepted on the read-only dashboard.
	if v := strings.TrimSpace(os.Getenv("SSH_ALLOWED_KEY_FINGERPRINTS")); v != "" {
		for _, fp := range strings.Split(v, ",") {
			if fp = strings.TrimSpace(fp); fp != "" {
				cfg.SSHAllowedKeyFps = append(cfg.SSHAllowedKeyFps, fp)
			}
		}
	}

	cfg.DefaultSymbol = strings.TrimSpace(os.Getenv("BACKTEST_DEFAULT_SYMBOL"))
	if cfg.DefaultSymbol == "" {
		cfg.DefaultSymbol = "BTC-USD"
	}

	cfg.DefaultInterval = strings.TrimSpace(os.Getenv("BACKTEST_DEFAULT_INTERVAL"))
	if cfg.DefaultInterval == "" {
		cfg.DefaultInterval = "1h"
	}

	cfg.DefaultInitialBalance = 10000
	if v := strings.TrimSpace(os.Getenv("BACKTEST_DEFAULT_BALANCE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.DefaultInitialBalance = n
		}
	}

	cfg.ClusterK = 5
	if v := strings.TrimSpace(os.Getenv("CLUSTER_K")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClusterK = n
		}
	}

	cfg.ClusterMaxIterations = 50
	if v := strings.TrimSpace(os.Getenv("CLUSTER_MAX_ITERATIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClusterMaxIterations = n
		}
	}

	cfg.ResultCacheTTLSecs = 3600
	if v := strings.TrimSpace(os.Getenv("RESULT_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ResultCacheTTLSecs = n
		}
	}

	return cfg
}
