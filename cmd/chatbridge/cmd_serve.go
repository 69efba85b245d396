package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/chatbridge/internal/bridge"
	"github.com/user/chatbridge/internal/config"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/journal"
	"github.com/user/chatbridge/internal/pubsub"
	"github.com/user/chatbridge/internal/scheduler"
	"github.com/user/chatbridge/internal/session"
	"github.com/user/chatbridge/internal/telegram"
	"github.com/user/chatbridge/internal/types"
)

const sinkBuffer = 256

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("connect", false, "prepare and connect with the configured environment on start")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("load simulator: %w", err)
	}
	bus := events.NewBus()
	emitter := events.NewEmitter(bus)
	sess := session.New(provider, emitter, sessionOptions(cfg)...)
	defer sess.Close()
	log := slog.With("session_id", string(sess.ID))

	closers, err := attachSinks(ctx, cfg, sess.ID, emitter)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		n, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID, sess.ID)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		n.SetStatus(func(context.Context) string {
			return fmt.Sprintf("state: %s\nmode: %s\nvisitor: %s\nstreams: %d",
				sess.ChatState(), sess.ChatMode(), sess.VisitorID(), bus.Len())
		})
		async := events.NewAsync("telegram", n, sinkBuffer)
		emitter.AddSink(async)
		defer async.Close()
		g.Go(func() error {
			n.Start(ctx)
			return nil
		})
		log.Info("telegram notifier started", "chat_id", cfg.Telegram.ChatID)
	} else {
		log.Warn("telegram notifier disabled (no token)")
	}

	sched := scheduler.New(scheduler.StatusPoller(sess, cfg.Session.PollInterval))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	srv := bridge.NewServer(sess, bus,
		bridge.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		bridge.WithMaxStreams(cfg.Server.MaxStreams),
		bridge.WithLogger(log),
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("bridge server started", "addr", cfg.Server.Addr, "pid_file", pidPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if connect, _ := cmd.Flags().GetBool("connect"); connect {
		g.Go(func() error {
			if err := sess.PrepareAndConnect(ctx, environment(cfg)); err != nil {
				// Already emitted as connectionError; the app can retry over HTTP.
				log.Error("initial connect failed", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("shutting down")
	return err
}

// attachSinks adds the journal and broker sinks configured in cfg. The
// returned closers flush them and must run even when err is set.
func attachSinks(ctx context.Context, cfg *config.Config, id types.SessionID, emitter *events.Emitter) ([]func(), error) {
	var closers []func()

	if cfg.Journal.Enabled {
		var store types.EventStore = journal.NewFileStore(cfg.DataDir)
		if cfg.Journal.PostgresDSN != "" {
			pg, err := journal.OpenPostgres(ctx, cfg.Journal.PostgresDSN)
			if err != nil {
				return closers, fmt.Errorf("open journal: %w", err)
			}
			closers = append(closers, func() { pg.Close() })
			store = pg
		}
		async := events.NewAsync("journal", journal.NewSink(store, id, "bridge"), sinkBuffer)
		emitter.AddSink(async)
		closers = append(closers, async.Close)
	}

	if cfg.AMQP.URL != "" {
		pub, err := pubsub.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, slog.Default())
		if err != nil {
			return closers, fmt.Errorf("connect broker: %w", err)
		}
		closers = append(closers, func() { pub.Close() })
		async := events.NewAsync("amqp", pubsub.NewSink(pub, id), sinkBuffer)
		emitter.AddSink(async)
		closers = append(closers, async.Close)
	}

	return closers, nil
}
