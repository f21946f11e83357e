package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

// Config holds everything basket reads from its config file.
type Config struct {
	APIURL          string
	Token           string
	MirrorDir       string
	LogPath         string
	LogLevel        zapcore.Level
	SearchDebounce  time.Duration
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	Seller          bool
	Theme           string
}

const (
	defaultConfigPath     = "~/.config/basket/config.toml"
	defaultMirrorDir      = "~/.local/share/basket"
	defaultAPIURL         = "127.0.0.1:8080"
	defaultLogFile        = "basket.log"
	defaultDebounceMS     = 500
	defaultTimeoutMS      = 5000
	defaultRefreshSeconds = 30
)

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	mirrorDir := mustExpand(defaultMirrorDir)
	return Config{
		APIURL:          defaultAPIURL,
		MirrorDir:       mirrorDir,
		LogPath:         filepath.Join(mirrorDir, defaultLogFile),
		LogLevel:        zapcore.InfoLevel,
		SearchDebounce:  defaultDebounceMS * time.Millisecond,
		RequestTimeout:  defaultTimeoutMS * time.Millisecond,
		RefreshInterval: defaultRefreshSeconds * time.Second,
	}
}

// Load reads the config at path, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(err, "open config")
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	var raw struct {
		APIURL           string `toml:"api_url"`
		Token            string `toml:"token"`
		MirrorDir        string `toml:"mirror_dir"`
		LogPath          string `toml:"log_path"`
		LogLevel         string `toml:"log_level"`
		SearchDebounceMS *int   `toml:"search_debounce_ms"`
		RequestTimeoutMS *int   `toml:"request_timeout_ms"`
		RefreshSeconds   *int   `toml:"refresh_seconds"`
		Seller           bool   `toml:"seller"`
		Theme            string `toml:"theme"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	cfg.Seller = raw.Seller
	cfg.Theme = strings.TrimSpace(raw.Theme)

	if v := strings.TrimSpace(raw.MirrorDir); v != "" {
		cfg.MirrorDir = mustExpand(v)
	}
	cfg.LogPath = filepath.Join(cfg.MirrorDir, defaultLogFile)
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		level, err := zapcore.ParseLevel(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse config: log_level")
		}
		cfg.LogLevel = level
	}

	if raw.SearchDebounceMS != nil {
		if *raw.SearchDebounceMS <= 0 {
			return Config{}, errors.Errorf("parse config: search_debounce_ms must be positive, got %d", *raw.SearchDebounceMS)
		}
		cfg.SearchDebounce = time.Duration(*raw.SearchDebounceMS) * time.Millisecond
	}
	if raw.RequestTimeoutMS != nil {
		if *raw.RequestTimeoutMS <= 0 {
			return Config{}, errors.Errorf("parse config: request_timeout_ms must be positive, got %d", *raw.RequestTimeoutMS)
		}
		cfg.RequestTimeout = time.Duration(*raw.RequestTimeoutMS) * time.Millisecond
	}
	if raw.RefreshSeconds != nil {
		if *raw.RefreshSeconds < 0 {
			return Config{}, errors.Errorf("parse config: refresh_seconds must not be negative, got %d", *raw.RefreshSeconds)
		}
		cfg.RefreshInterval = time.Duration(*raw.RefreshSeconds) * time.Second
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
