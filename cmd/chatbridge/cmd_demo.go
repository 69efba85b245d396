package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/session"
)

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().String("text", "Hello from chatbridge", "message to send")
	demoCmd.Flags().Duration("timeout", 30*time.Second, "overall deadline")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted session against the simulator and print every event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		text, _ := cmd.Flags().GetString("text")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		provider, err := newProvider(cfg)
		if err != nil {
			return fmt.Errorf("load simulator: %w", err)
		}
		emitter := events.NewEmitter(printer(os.Stdout))
		sess := session.New(provider, emitter, sessionOptions(cfg)...)
		defer sess.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return runDemo(ctx, sess, environment(cfg), text, os.Stdout)
	},
}

// printer writes each event as one JSON line.
func printer(w io.Writer) events.Sink {
	enc := json.NewEncoder(w)
	return events.SinkFunc(func(e events.Event) {
		_ = enc.Encode(e.Envelope())
	})
}
