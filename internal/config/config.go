// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GraphConfig holds Microsoft Graph credentials for the outbound mail channel.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
}

// Configured reports whether all credentials needed to send mail are present.
func (g GraphConfig) Configured() bool {
	return g.TenantID != "" && g.ClientID != "" && g.ClientSecret != "" && g.Sender != ""
}

// Config holds all configuration for the contact relay service.
type Config struct {
	Graph GraphConfig

	// Mail
	Recipient     string
	SubjectPrefix string

	// reCAPTCHA v3 (empty secret disables verification)
	RecaptchaSecret string

	// CORS
	AllowedOrigin string

	// Rate limiting
	RateLimit  int
	RatePeriod time.Duration

	// Spam keyword alternation (word-boundary, case-insensitive)
	SpamKeywords []string

	// Backing stores (both optional)
	RedisURL    string
	DatabaseURL string

	// Outbound HTTP
	OutboundTimeout time.Duration

	// Server
	Port int

	// TrustProxy enables X-Forwarded-For client identification. Only set
	// this when a trusted reverse proxy fronts the service.
	TrustProxy bool
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Graph struct {
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Sender       string `yaml:"sender"`
	} `yaml:"graph"`
	Mail struct {
		Recipient     string `yaml:"recipient"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"mail"`
	Recaptcha struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"recaptcha"`
	Site struct {
		Origin string `yaml:"origin"`
	} `yaml:"site"`
	Spam struct {
		Keywords []string `yaml:"keywords"`
	} `yaml:"spam"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"server"`
}

// DefaultSpamKeywords is the stock keyword list used when the config
// provides none.
var DefaultSpamKeywords = []string{
	"viagra", "cialis", "casino", "lottery", "winner", "crypto", "bitcoin",
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings. A missing config file is not
// an error; every setting can come from the environment alone.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case os.IsNotExist(err):
		// Env-only deployment
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg := &Config{
		Graph: GraphConfig{
			TenantID:     firstNonEmpty(raw.Graph.TenantID, os.Getenv("MS_GRAPH_TENANT_ID")),
			ClientID:     firstNonEmpty(raw.Graph.ClientID, os.Getenv("MS_GRAPH_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Graph.ClientSecret, os.Getenv("MS_GRAPH_CLIENT_SECRET")),
			Sender:       firstNonEmpty(raw.Graph.Sender, os.Getenv("MS_GRAPH_SENDER_EMAIL")),
		},
		Recipient:       firstNonEmpty(raw.Mail.Recipient, os.Getenv("RECIPIENT_EMAIL")),
		SubjectPrefix:   firstNonEmpty(raw.Mail.SubjectPrefix, envOrDefault("SUBJECT_PREFIX", "[Anonymize.dev]")),
		RecaptchaSecret: firstNonEmpty(raw.Recaptcha.SecretKey, os.Getenv("RECAPTCHA_SECRET_KEY")),
		AllowedOrigin:   firstNonEmpty(raw.Site.Origin, envOrDefault("ALLOWED_ORIGIN", "https://anonymize.dev")),
		RateLimit:       envOrDefaultInt("RATE_LIMIT", 5),
		RatePeriod:      envOrDefaultDuration("RATE_PERIOD", 60*time.Second),
		SpamKeywords:    raw.Spam.Keywords,
		RedisURL:        firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		DatabaseURL:     firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		OutboundTimeout: envOrDefaultDuration("OUTBOUND_TIMEOUT", 10*time.Second),
		Port:            envOrDefaultInt("PORT", 8080),
		TrustProxy:      raw.Server.TrustProxy || envOrDefaultBool("TRUST_PROXY", false),
	}

	if len(cfg.SpamKeywords) == 0 {
		cfg.SpamKeywords = DefaultSpamKeywords
	}

	if cfg.Recipient == "" {
		return nil, fmt.Errorf("no recipient configured, set mail.recipient or RECIPIENT_EMAIL")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
