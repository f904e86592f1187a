package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"plant-monitor/internal/analytics/domain/metrics"
	telemetryapp "plant-monitor/internal/telemetry/application"
)

type config struct {
	DatabaseURL        string
	HTTPAddr           string
	JWTSecret          string
	TokenTTL           time.Duration
	PanelSecret        string
	PanelSkewSeconds   int
	SimulatorScope     string
	Channels           []telemetryapp.Channel
	Classification     metrics.Classification
	RecentAlertsLimit  int
	AlertWebhookURL    string
	AlertWebhookFormat string
	AlertTemplate      string
	AlertDedupeWindow  time.Duration
	AlertNotifyTimeout time.Duration
	ReadHeaderTimeout  time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// fileConfig is the optional YAML document named by CONFIG_FILE.
type fileConfig struct {
	Simulator struct {
		Scope    string                 `yaml:"scope"`
		Channels []telemetryapp.Channel `yaml:"channels"`
	} `yaml:"simulator"`
	Metrics *metrics.Classification `yaml:"metrics"`
	Alerts  struct {
		Template string `yaml:"template"`
	} `yaml:"alerts"`
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TokenTTL:           getenvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		PanelSecret:        getenvDefault("CONTROL_PANEL_SECRET", ""),
		PanelSkewSeconds:   getenvIntDefault("CONTROL_PANEL_MAX_SKEW_SECONDS", 300),
		SimulatorScope:     getenvDefault("SIMULATOR_SCOPE", ""),
		Classification:     metrics.DefaultClassification(),
		RecentAlertsLimit:  getenvIntDefault("RECENT_ALERTS_LIMIT", 25),
		AlertWebhookURL:    getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertWebhookFormat: getenvDefault("ALERT_WEBHOOK_FORMAT", ""),
		AlertDedupeWindow:  getenvDuration("ALERT_NOTIFY_DEDUP_WINDOW", 0),
		AlertNotifyTimeout: getenvDuration("ALERT_NOTIFY_TIMEOUT", 5*time.Second),
		ReadHeaderTimeout:  getenvDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:        getenvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getenvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
	}

	if path := getenvDefault("CONFIG_FILE", ""); path != "" {
		file, err := readConfigFile(path)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if cfg.SimulatorScope == "" {
			cfg.SimulatorScope = file.Simulator.Scope
		}
		cfg.Channels = file.Simulator.Channels
		if file.Metrics != nil {
			cfg.Classification = *file.Metrics
		}
		cfg.AlertTemplate = file.Alerts.Template
	}
	cfg.Classification.LegacyTagMatching = getenvBoolDefault("METRICS_LEGACY_TAG_MATCHING", cfg.Classification.LegacyTagMatching)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func readConfigFile(path string) (fileConfig, error) {
	var file fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse %s: %w", path, err)
	}
	return file, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
