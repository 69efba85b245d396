package bridge

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/user/chatbridge/internal/events"
)

const writeTimeout = 5 * time.Second

// handleEvents upgrades to a websocket and streams every emitted event as
// an Envelope. The first frame is a chatUpdated snapshot of the current
// state so late subscribers start in sync.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.streams.TryAcquire(1) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errorDetail{
			Code:    "TooManyStreams",
			Message: "too many event stream clients",
		}})
		return
	}
	defer s.streams.Release(1)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	sub := s.bus.Subscribe(defaultStreamBuf)
	defer s.bus.Unsubscribe(sub)

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := c.CloseRead(r.Context())
	s.log.Info("event stream opened", "remote", r.RemoteAddr, "subscribers", s.bus.Len())

	snapshot := events.Event{
		Name:    events.ChatUpdated,
		Payload: events.ChatUpdatedPayload{State: s.sess.ChatState(), Mode: s.sess.ChatMode()},
		At:      time.Now(),
	}
	if err := s.write(ctx, c, snapshot); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("event stream closed", "remote", r.RemoteAddr)
			return
		case ev, ok := <-sub.C:
			if !ok {
				c.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := s.write(ctx, c, ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, c *websocket.Conn, ev events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err := wsjson.Write(ctx, c, ev.Envelope())
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("event stream write failed", "event", string(ev.Name), "error", err)
	}
	return err
}
