package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	RE_BASE = "https://www.robotevents.com/api/v2"

	// V5RC in the RobotEvents program list
	PROGRAM_V5RC = 1
)

var errNoToken = errors.New("ROBOTEVENTS_TOKEN is not set")

type Config struct {
	Token            string        `yaml:"token"`
	BaseURL          string        `yaml:"base_url"`
	TeamID           int           `yaml:"team_id"`
	ProgramID        int           `yaml:"program_id"`
	SearchAheadDays  int           `yaml:"search_ahead_days"`
	Addr             string        `yaml:"addr"`
	LogLevel         string        `yaml:"log_level"`
	LogConsole       bool          `yaml:"log_console"`
	Store            string        `yaml:"store"`
	DBPath           string        `yaml:"db_path"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisTTL         time.Duration `yaml:"redis_ttl"`
	EventCacheSize   int           `yaml:"event_cache_size"`
	EventCacheTTL    time.Duration `yaml:"event_cache_ttl"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	SkipUnscored     bool          `yaml:"skip_unscored"`
	DefaultThreshold float64       `yaml:"default_threshold"`
}

// LoadConfig reads .env (if present), the environment, then the optional
// YAML file named by CONFIG_FILE. File values win over the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func FromEnv() Config {
	token := getenv("ROBOTEVENTS_TOKEN", os.Getenv("TOKEN"))

	// prefer the Railway volume when mounted
	dbPath := "./division_stats.db"
	if mountPath := os.Getenv("RAILWAY_VOLUME_MOUNT_PATH"); mountPath != "" {
		dbPath = filepath.Join(mountPath, "division_stats.db")
	}

	return Config{
		Token:            token,
		BaseURL:          getenv("ROBOTEVENTS_URL", RE_BASE),
		TeamID:           getint("TEAM_ID", 122732),
		ProgramID:        getint("PROGRAM_ID", PROGRAM_V5RC),
		SearchAheadDays:  getint("SEARCH_AHEAD_DAYS", 10),
		Addr:             getenv("ADDR", ":8080"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogConsole:       getbool("LOG_CONSOLE", false),
		Store:            strings.ToLower(getenv("STORE", "memory")),
		DBPath:           getenv("DB_PATH", dbPath),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisTTL:         getduration("REDIS_TTL", 6*time.Hour),
		EventCacheSize:   getint("EVENT_CACHE_SIZE", 64),
		EventCacheTTL:    getduration("EVENT_CACHE_TTL", 10*time.Minute),
		HTTPTimeout:      getduration("HTTP_TIMEOUT", 20*time.Second),
		SkipUnscored:     getbool("SKIP_UNSCORED", false),
		DefaultThreshold: getfloat("DEFAULT_THRESHOLD", 0),
	}
}

func (c *Config) overlayFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Store = strings.ToLower(c.Store)
	return nil
}

func (c Config) Validate() error {
	if c.Token == "" {
		return errNoToken
	}
	if c.TeamID <= 0 {
		return fmt.Errorf("TEAM_ID must be positive, got %d", c.TeamID)
	}
	switch c.Store {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown STORE %q (want memory, sqlite or redis)", c.Store)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
