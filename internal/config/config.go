// Package config resolves runtime settings from an optional .env file, an
// optional YAML file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir       string        `yaml:"dataDir"`
	DBDriver      string        `yaml:"dbDriver"`
	DBDSN         string        `yaml:"dbDsn"`
	Addr          string        `yaml:"addr"`
	CORSOrigin    string        `yaml:"corsOrigin"`
	JWTSecret     string        `yaml:"jwtSecret"`
	AccessTTL     time.Duration `yaml:"accessTtl"`
	RedisURL      string        `yaml:"redisUrl"`
	FixturesDir   string        `yaml:"fixturesDir"`
	AutosaveDelay time.Duration `yaml:"autosaveDelay"`
	PurgeSchedule string        `yaml:"purgeSchedule"`
	PurgeAfter    time.Duration `yaml:"purgeAfter"`
	LogMode       string        `yaml:"logMode"`
	Actor         string        `yaml:"actor"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "stepjourney")
	return Config{
		DataDir:       dataDir,
		DBDriver:      "sqlite",
		Addr:          ":8787",
		CORSOrigin:    "*",
		JWTSecret:     "stepjourney-dev-secret",
		AccessTTL:     15 * time.Minute,
		FixturesDir:   filepath.Join(dataDir, "fixtures"),
		AutosaveDelay: 800 * time.Millisecond,
		PurgeSchedule: "@daily",
		PurgeAfter:    30 * 24 * time.Hour,
		LogMode:       "dev",
		Actor:         "local",
	}
}

// Load reads .env from the working directory if present, then the YAML
// file named by STEPJOURNEY_CONFIG, then STEPJOURNEY_* variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Defaults()
	if path := os.Getenv("STEPJOURNEY_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getenv("STEPJOURNEY_DATA_DIR", c.DataDir)
	c.DBDriver = getenv("STEPJOURNEY_DB_DRIVER", c.DBDriver)
	c.DBDSN = getenv("DATABASE_URL", c.DBDSN)
	c.Addr = getenv("STEPJOURNEY_ADDR", c.Addr)
	c.CORSOrigin = getenv("STEPJOURNEY_CORS_ORIGIN", c.CORSOrigin)
	c.JWTSecret = getenv("STEPJOURNEY_JWT_SECRET", c.JWTSecret)
	c.AccessTTL = time.Duration(getenvInt("STEPJOURNEY_ACCESS_TTL_SECONDS", int(c.AccessTTL/time.Second))) * time.Second
	c.RedisURL = getenv("REDIS_URL", c.RedisURL)
	c.FixturesDir = getenv("STEPJOURNEY_FIXTURES_DIR", c.FixturesDir)
	c.AutosaveDelay = getenvDuration("STEPJOURNEY_AUTOSAVE_DELAY", c.AutosaveDelay)
	c.PurgeSchedule = getenv("STEPJOURNEY_PURGE_SCHEDULE", c.PurgeSchedule)
	c.PurgeAfter = getenvDuration("STEPJOURNEY_PURGE_AFTER", c.PurgeAfter)
	c.LogMode = getenv("STEPJOURNEY_LOG_MODE", c.LogMode)
	c.Actor = getenv("STEPJOURNEY_ACTOR", c.Actor)
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DBDSN == "" {
			return errors.New("config: postgres driver requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DBDriver)
	}
	if c.AccessTTL <= 0 {
		return errors.New("config: access ttl must be positive")
	}
	return nil
}

// DBPath is the sqlite file under the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "stepjourney.db")
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
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
