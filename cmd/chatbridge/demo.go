package main

import (
	"context"
	"fmt"
	"io"

	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/session"
)

// runDemo walks a session through prepare, connect, thread creation, a
// message and history paging, narrating each step to w.
func runDemo(ctx context.Context, sess *session.Session, env sdk.Environment, text string, w io.Writer) error {
	step := func(format string, args ...any) {
		fmt.Fprintf(w, "# "+format+"\n", args...)
	}

	step("prepare and connect to %s", env.ChannelID)
	if err := sess.PrepareAndConnect(ctx, env); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	step("connected as visitor %s", sess.VisitorID())

	threads, err := sess.LoadThreads(ctx)
	if err != nil {
		return fmt.Errorf("load threads: %w", err)
	}
	step("%d existing thread(s)", len(threads))

	thread, err := sess.CreateThread(ctx, map[string]string{"source": "demo"})
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	step("created thread %s", thread.ID)

	if err := sess.SendText(ctx, thread.ID, text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	step("sent %q", text)

	for _, t := range threads {
		if !t.HasMoreMessagesToLoad {
			continue
		}
		loaded, err := sess.LoadMore(ctx, t.ID, 0)
		if err != nil {
			return fmt.Errorf("load more: %w", err)
		}
		step("thread %s now has %d message(s)", t.ID, len(loaded.Messages))
	}

	if err := sess.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	step("disconnected")
	return nil
}
