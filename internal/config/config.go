package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	APIKey     string
	APIBaseURL string
	DBPath     string
	TagFile    string
	ReportPath string
	LogLevel   string

	// Crawler
	SeedTags        []string
	TargetPerBucket int
	BucketBounds    []int

	// API client
	RequestInterval time.Duration
	MaxRetries      int
	BattleLogLimit  int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		APIKey:          getEnv("CLASH_API_KEY", ""),
		APIBaseURL:      getEnv("CLASH_API_URL", "https://api.clashroyale.com/v1"),
		DBPath:          getEnv("DB_PATH", "royale.db"),
		TagFile:         getEnv("TAG_FILE", "player_tags.txt"),
		ReportPath:      getEnv("REPORT_PATH", "meta_report.txt"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SeedTags:        splitList(getEnv("SEED_TAGS", "#2Y2JQ2U")),
		TargetPerBucket: getEnvInt("TARGET_PER_BUCKET", 250),
		RequestInterval: getEnvDuration("REQUEST_INTERVAL", 100*time.Millisecond),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		BattleLogLimit:  getEnvInt("BATTLE_LOG_LIMIT", 25),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("CLASH_API_KEY is required")
	}

	bounds, err := parseBounds(getEnv("TROPHY_BOUNDS", "4000,8000,10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid TROPHY_BOUNDS: %w", err)
	}
	cfg.BucketBounds = bounds

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("tag_file", cfg.TagFile).
		Int("target_per_bucket", cfg.TargetPerBucket).
		Ints("trophy_bounds", cfg.BucketBounds).
		Dur("request_interval", cfg.RequestInterval).
		Msg("configuration loaded")

	return cfg, nil
}

// parseBounds parses the interior bucket boundaries. Boundaries must be
// positive and strictly ascending so the resulting trophy ranges are
// contiguous and non-overlapping.
func parseBounds(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("at least one boundary is required")
	}
	bounds := make([]int, 0, len(parts))
	prev := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("boundary %q is not a number", p)
		}
		if n <= prev {
			return nil, fmt.Errorf("boundaries must be strictly ascending, got %d after %d", n, prev)
		}
		bounds = append(bounds, n)
		prev = n
	}
	return bounds, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
