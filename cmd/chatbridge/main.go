package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/chatbridge/internal/config"
	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/sdk/sim"
	"github.com/user/chatbridge/internal/session"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "chatbridge",
	Short:         "Bridge between a chat SDK session and a JavaScript app",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func environment(cfg *config.Config) sdk.Environment {
	return sdk.Environment{
		Name:      cfg.Vendor.Name,
		ChatURL:   cfg.Vendor.ChatURL,
		SocketURL: cfg.Vendor.SocketURL,
		BrandID:   cfg.Vendor.BrandID,
		ChannelID: cfg.Vendor.ChannelID,
	}
}

func sessionOptions(cfg *config.Config) []session.Option {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	opts := []session.Option{session.WithLogger(slog.Default())}
	if cfg.Session.PrepareTimeoutMs > 0 {
		opts = append(opts, session.WithPrepareTimeout(ms(cfg.Session.PrepareTimeoutMs)))
	}
	if cfg.Session.ConnectTimeoutMs > 0 {
		opts = append(opts, session.WithConnectTimeout(ms(cfg.Session.ConnectTimeoutMs)))
	}
	if cfg.Session.PageIterations > 0 {
		opts = append(opts, session.WithPaging(cfg.Session.PageIterations, ms(cfg.Session.PagePollMs), cfg.Session.PagePollAttempts))
	}
	return opts
}

// newProvider builds the simulated SDK from the configured fixture, or the
// built-in one when none is set.
func newProvider(cfg *config.Config) (*sim.Provider, error) {
	fx := sim.DefaultFixture()
	if cfg.Vendor.Fixture != "" {
		var err error
		if fx, err = sim.LoadFixture(cfg.Vendor.Fixture); err != nil {
			return nil, err
		}
	}
	return sim.New(fx), nil
}
