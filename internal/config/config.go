// Package config loads the geotify server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/monitor"
)

type Config struct {
	DatabaseURL string // GEOTIFY_DATABASE_URL (optional, empty = in-memory store)
	GRPCAddr    string // GEOTIFY_GRPC_ADDR (default ":9090")
	HTTPAddr    string // GEOTIFY_HTTP_ADDR (default ":8080")
	NATSURL     string // GEOTIFY_NATS_URL (optional, empty = no events)
	AuthToken   string // GEOTIFY_AUTH_TOKEN (optional, empty = auth disabled)

	// Coordinator and simulated platform settings
	Capacity            int                      // GEOTIFY_CAPACITY (default 20)
	MaxRadius           float64                  // GEOTIFY_MAX_RADIUS (meters, default 10000)
	MaxRegions          int                      // GEOTIFY_MAX_REGIONS (default 20)
	MonitoringAvailable bool                     // GEOTIFY_MONITORING_AVAILABLE (default true)
	Authorization       model.AuthorizationLevel // GEOTIFY_AUTHORIZATION (initial level, default "not_determined")
	GrantAuthorization  model.AuthorizationLevel // GEOTIFY_GRANT_AUTHORIZATION (level granted on request, empty = never answered)

	// Alert hook
	AlertCommand string        // GEOTIFY_ALERT_COMMAND (optional shell command run per report)
	AlertTimeout time.Duration // GEOTIFY_ALERT_TIMEOUT (default 10s)

	// Sync settings
	SyncInterval   time.Duration // GEOTIFY_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // GEOTIFY_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // GEOTIFY_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // GEOTIFY_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // GEOTIFY_SYNC_S3_KEY (default "geotify/backup.jsonl")
	SyncGitRepo    string        // GEOTIFY_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // GEOTIFY_SYNC_GIT_FILE (default "geotifications.jsonl")
	SyncGitBranch  string        // GEOTIFY_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("GEOTIFY_DATABASE_URL"),
		GRPCAddr:       envOrDefault("GEOTIFY_GRPC_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("GEOTIFY_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("GEOTIFY_NATS_URL"),
		AuthToken:      os.Getenv("GEOTIFY_AUTH_TOKEN"),
		AlertCommand:   os.Getenv("GEOTIFY_ALERT_COMMAND"),
		SyncS3Bucket:   os.Getenv("GEOTIFY_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("GEOTIFY_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("GEOTIFY_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("GEOTIFY_SYNC_S3_KEY", "geotify/backup.jsonl"),
		SyncGitRepo:    os.Getenv("GEOTIFY_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("GEOTIFY_SYNC_GIT_FILE", "geotifications.jsonl"),
		SyncGitBranch:  envOrDefault("GEOTIFY_SYNC_GIT_BRANCH", "main"),
	}

	var err error
	if c.Capacity, err = envInt("GEOTIFY_CAPACITY", 20); err != nil {
		return nil, err
	}
	if c.MaxRegions, err = envInt("GEOTIFY_MAX_REGIONS", monitor.DefaultMaxRegions); err != nil {
		return nil, err
	}
	if c.MaxRadius, err = envFloat("GEOTIFY_MAX_RADIUS", monitor.DefaultMaxRadius); err != nil {
		return nil, err
	}
	if c.MonitoringAvailable, err = envBool("GEOTIFY_MONITORING_AVAILABLE", true); err != nil {
		return nil, err
	}
	if c.Authorization, err = envAuthorization("GEOTIFY_AUTHORIZATION", model.AuthorizationNotDetermined); err != nil {
		return nil, err
	}
	if c.GrantAuthorization, err = envAuthorization("GEOTIFY_GRANT_AUTHORIZATION", ""); err != nil {
		return nil, err
	}
	if c.AlertTimeout, err = envDuration("GEOTIFY_ALERT_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = envDuration("GEOTIFY_SYNC_INTERVAL", "3m"); err != nil {
		return nil, err
	}

	if c.Capacity <= 0 {
		return nil, fmt.Errorf("GEOTIFY_CAPACITY must be positive, got %d", c.Capacity)
	}
	if c.MaxRadius <= 0 {
		return nil, fmt.Errorf("GEOTIFY_MAX_RADIUS must be positive, got %g", c.MaxRadius)
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envAuthorization(key string, fallback model.AuthorizationLevel) (model.AuthorizationLevel, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	level := model.AuthorizationLevel(v)
	if !level.IsValid() {
		return "", fmt.Errorf("%s: unknown authorization level %q", key, v)
	}
	return level, nil
}
