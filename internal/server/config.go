package server

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/cloudplot/cloudplot/pkg/errors"
)

// Config holds server configuration. Values are resolved in order: defaults,
// then the optional TOML file, then environment variables. A .env file in
// the working directory is loaded before the environment is read.
type Config struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"-"`
	ShutdownRaw     string        `toml:"shutdown_timeout"`

	CacheDir      string `toml:"cache_dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"-"` // env only, never in files
	RedisDB       int    `toml:"redis_db"`

	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`

	ThemesFile string `toml:"themes_file"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            "0.0.0.0:8080",
		ShutdownTimeout: 15 * time.Second,
		MongoDB:         "cloudplot",
	}
}

// LoadConfig resolves the configuration. path names an optional TOML file;
// an empty path skips the file layer.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config file %s", path)
		}
		if cfg.ShutdownRaw != "" {
			d, err := time.ParseDuration(cfg.ShutdownRaw)
			if err != nil {
				return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid shutdown_timeout")
			}
			cfg.ShutdownTimeout = d
		}
	}

	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLOUDPLOT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CLOUDPLOT_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("CLOUDPLOT_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CLOUDPLOT_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CLOUDPLOT_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("CLOUDPLOT_MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("CLOUDPLOT_MONGO_DB"); v != "" {
		cfg.MongoDB = v
	}
	if v := os.Getenv("CLOUDPLOT_THEMES_FILE"); v != "" {
		cfg.ThemesFile = v
	}
}
