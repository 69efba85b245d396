package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestLoad_WritesDefaults(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults not written: %v", err)
	}
	if cfg.Session.PrepareTimeoutMs != 7000 {
		t.Errorf("expected prepare timeout 7000, got %d", cfg.Session.PrepareTimeoutMs)
	}
	if cfg.Session.ConnectTimeoutMs != 10000 {
		t.Errorf("expected connect timeout 10000, got %d", cfg.Session.ConnectTimeoutMs)
	}
	if cfg.Server.MaxStreams != 16 {
		t.Errorf("expected max streams 16, got %d", cfg.Server.MaxStreams)
	}
	if cfg.AMQP.Exchange != "chatbridge.events" {
		t.Errorf("expected default exchange, got %q", cfg.AMQP.Exchange)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("CHATBRIDGE_CHAT_URL", "https://chat.example.com")
	t.Setenv("CHATBRIDGE_BRAND_ID", "1086")
	t.Setenv("CHATBRIDGE_TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("CHATBRIDGE_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Vendor.ChatURL != "https://chat.example.com" {
		t.Errorf("expected chat url override, got %q", cfg.Vendor.ChatURL)
	}
	if cfg.Vendor.BrandID != 1086 {
		t.Errorf("expected brand id 1086, got %d", cfg.Vendor.BrandID)
	}
	if cfg.Telegram.ChatID != -100200 {
		t.Errorf("expected chat id -100200, got %d", cfg.Telegram.ChatID)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("CHATBRIDGE_BRAND_ID", "many")
	if _, err := Load(tempConfigPath(t)); err == nil {
		t.Fatal("expected error for non-numeric brand id")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := defaults()
	original.LogLevel = "debug"
	original.Vendor.ChannelID = "chat_42"
	original.Vendor.Fixture = "/etc/chatbridge/fixture.yaml"
	original.Session.PollInterval = "5s"
	original.Telegram.Token = "bot-token-456"
	original.Telegram.ChatID = 99

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel mismatch: got %q", loaded.LogLevel)
	}
	if loaded.Vendor.ChannelID != "chat_42" {
		t.Errorf("Vendor.ChannelID mismatch: got %q", loaded.Vendor.ChannelID)
	}
	if loaded.Vendor.Fixture != original.Vendor.Fixture {
		t.Errorf("Vendor.Fixture mismatch: got %q", loaded.Vendor.Fixture)
	}
	if loaded.Session.PollInterval != "5s" {
		t.Errorf("Session.PollInterval mismatch: got %q", loaded.Session.PollInterval)
	}
	if loaded.Telegram.Token != "bot-token-456" || loaded.Telegram.ChatID != 99 {
		t.Errorf("Telegram mismatch: got %+v", loaded.Telegram)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	if err := Save(path, &Config{LogLevel: "info"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "config.json")
	if err := Save(path, &Config{LogLevel: "warn"}); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}

func TestGetValue(t *testing.T) {
	path := tempConfigPath(t)
	cfg := defaults()
	cfg.LogLevel = "debug"
	cfg.Server.MaxStreams = 8
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "server.max_streams")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != 8 {
		t.Errorf("expected server.max_streams=8, got %v (%T)", v, v)
	}

	_, err = GetValue(path, "nonexistent.key")
	if err == nil || err.Error() != "unknown config key: nonexistent.key" {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestGetValue_CreatesDefaults(t *testing.T) {
	v, err := GetValue(tempConfigPath(t), "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestSetValue(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, defaults())

	cases := []struct {
		key, value string
		want       any
	}{
		{"log_level", "debug", "debug"},
		{"session.page_iterations", "5", 5},
		{"journal.enabled", "false", false},
		{"telegram.chat_id", "-100123", int64(-100123)},
	}
	for _, tc := range cases {
		if err := SetValue(path, tc.key, tc.value); err != nil {
			t.Fatalf("SetValue(%s) failed: %v", tc.key, err)
		}
		v, err := GetValue(path, tc.key)
		if err != nil {
			t.Fatalf("GetValue(%s) failed: %v", tc.key, err)
		}
		if v != tc.want {
			t.Errorf("%s: expected %v (%T), got %v (%T)", tc.key, tc.want, tc.want, v, v)
		}
	}

	// Untouched values survive.
	v, err := GetValue(path, "amqp.exchange")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "chatbridge.events" {
		t.Errorf("expected amqp.exchange preserved, got %v", v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	if err := SetValue(path, "log_level", "debug"); err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestSetValue_List(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, defaults())

	for _, raw := range []string{"http://a:1, http://b:2", `["http://a:1","http://b:2"]`} {
		if err := SetValue(path, "server.allowed_origins", raw); err != nil {
			t.Fatalf("SetValue(%q) failed: %v", raw, err)
		}
		v, err := GetValue(path, "server.allowed_origins")
		if err != nil {
			t.Fatalf("GetValue failed: %v", err)
		}
		got, ok := v.([]string)
		if !ok || len(got) != 2 || got[0] != "http://a:1" || got[1] != "http://b:2" {
			t.Errorf("%q: unexpected origins %#v", raw, v)
		}
	}
}

func TestSetValue_Rejects(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, defaults())
	before, _ := os.ReadFile(path)

	cases := map[string][2]string{
		"unknown key":   {"custom.setting", "value"},
		"section key":   {"server", "x"},
		"bad integer":   {"server.max_streams", "many"},
		"bad boolean":   {"journal.enabled", "maybe"},
		"bad json list": {"server.allowed_origins", "[1,2"},
	}
	for name, kv := range cases {
		if err := SetValue(path, kv[0], kv[1]); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("rejected values should leave the file untouched")
	}
}

func TestSetValue_DoesNotPersistEnv(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, defaults())
	t.Setenv("CHATBRIDGE_AMQP_URL", "amqp://env-only/")

	if err := SetValue(path, "log_level", "warn"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.AMQP.URL != "" {
		t.Errorf("env override leaked into file: %q", saved.AMQP.URL)
	}
	if saved.LogLevel != "warn" {
		t.Errorf("expected log_level=warn, got %q", saved.LogLevel)
	}
}
