package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Server   struct {
		Addr           string   `json:"addr"`
		AllowedOrigins []string `json:"allowed_origins"`
		MaxStreams     int      `json:"max_streams"`
	} `json:"server"`
	Vendor struct {
		Name      string `json:"name"`
		ChatURL   string `json:"chat_url"`
		SocketURL string `json:"socket_url"`
		BrandID   int    `json:"brand_id"`
		ChannelID string `json:"channel_id"`
		Fixture   string `json:"fixture"`
	} `json:"vendor"`
	Session struct {
		PrepareTimeoutMs int `json:"prepare_timeout_ms"`
		ConnectTimeoutMs int `json:"connect_timeout_ms"`
		PageIterations   int `json:"page_iterations"`
		PagePollMs       int `json:"page_poll_ms"`
		PagePollAttempts int `json:"page_poll_attempts"`
		// Go duration; "0s" disables status polling.
		PollInterval string `json:"poll_interval"`
	} `json:"session"`
	Journal struct {
		Enabled     bool   `json:"enabled"`
		PostgresDSN string `json:"postgres_dsn" secret:"true"`
	} `json:"journal"`
	Telegram struct {
		Token  string `json:"token" secret:"true"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
	AMQP struct {
		URL      string `json:"url" secret:"true"`
		Exchange string `json:"exchange"`
	} `json:"amqp"`
}

// DefaultPath returns ~/.chatbridge/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".chatbridge", "config.json")
}

func defaults() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".chatbridge"),
		LogLevel: "info",
	}
	cfg.Server.Addr = "127.0.0.1:8765"
	cfg.Server.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	cfg.Server.MaxStreams = 16
	cfg.Vendor.Name = "US1"
	cfg.Vendor.BrandID = 1
	cfg.Vendor.ChannelID = "chat_simulated"
	cfg.Session.PrepareTimeoutMs = 7000
	cfg.Session.ConnectTimeoutMs = 10000
	cfg.Session.PageIterations = 10
	cfg.Session.PagePollMs = 50
	cfg.Session.PagePollAttempts = 20
	cfg.Session.PollInterval = "30s"
	cfg.Journal.Enabled = true
	cfg.AMQP.Exchange = "chatbridge.events"
	return cfg
}

// Load reads the config at path, writing defaults when the file does not
// exist, then applies environment overrides. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Override from env (highest precedence)
func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"CHATBRIDGE_LOG_LEVEL":      &cfg.LogLevel,
		"CHATBRIDGE_ADDR":           &cfg.Server.Addr,
		"CHATBRIDGE_CHAT_URL":       &cfg.Vendor.ChatURL,
		"CHATBRIDGE_SOCKET_URL":     &cfg.Vendor.SocketURL,
		"CHATBRIDGE_CHANNEL_ID":     &cfg.Vendor.ChannelID,
		"CHATBRIDGE_FIXTURE":        &cfg.Vendor.Fixture,
		"CHATBRIDGE_POSTGRES_DSN":   &cfg.Journal.PostgresDSN,
		"CHATBRIDGE_AMQP_URL":       &cfg.AMQP.URL,
		"CHATBRIDGE_TELEGRAM_TOKEN": &cfg.Telegram.Token,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CHATBRIDGE_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("CHATBRIDGE_BRAND_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATBRIDGE_BRAND_ID: %w", err)
		}
		cfg.Vendor.BrandID = n
	}
	if v := os.Getenv("CHATBRIDGE_TELEGRAM_CHAT_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHATBRIDGE_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = n
	}
	return nil
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// GetValue loads the config at path, environment overrides included, and
// returns the value under key.
func GetValue(path, key string) (any, error) {
	f, ok := lookup(key)
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(cfg).Elem().FieldByIndex(f.index).Interface(), nil
}

// SetValue parses value according to the type of key and writes it to the
// config file at path. The file must already exist; environment overrides
// are never persisted.
func SetValue(path, key, value string) error {
	f, ok := lookup(key)
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := assign(cfg, f, value); err != nil {
		return err
	}
	return Save(path, cfg)
}
