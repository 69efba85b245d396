package session

import (
	"context"
	"errors"

	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/types"
)

// stateBuffer is how many transitions a watcher holds before dropping.
// The SDK emits a handful per lifecycle step.
const stateBuffer = 32

func isPrepared(st sdk.ConnectionState) bool {
	switch st {
	case sdk.StatePrepared, sdk.StateOffline, sdk.StateConnecting,
		sdk.StateConnected, sdk.StateReady, sdk.StateConnectionLost:
		return true
	}
	return false
}

func isConnected(st sdk.ConnectionState) bool {
	return st == sdk.StateConnected || st == sdk.StateReady
}

// watch registers a transient state listener. Transitions are delivered on
// the returned channel; stop removes the listener.
func (s *Session) watch() (<-chan sdk.ConnectionState, func()) {
	ch := make(chan sdk.ConnectionState, stateBuffer)
	remove := s.provider.AddStateListener(func(st sdk.ConnectionState) {
		select {
		case ch <- st:
		default:
		}
	})
	return ch, remove
}

// fail reports err on the event channel and returns it to the caller.
func (s *Session) fail(phase types.ErrorPhase, err error) error {
	s.errs.Report(phase, err)
	return err
}

// PrepareAwait returns once the SDK has left Initial/Preparing. Concurrent
// callers share one wait. A caller whose ctx ends leaves with ctx.Err();
// the shared wait is cancelled only when no caller is left.
func (s *Session) PrepareAwait(ctx context.Context) error {
	if isPrepared(s.provider.State()) {
		s.activate()
		return nil
	}
	shared := s.joinPrepare(ctx)
	defer s.leavePrepare()

	for {
		ch := s.prepareGroup.DoChan("prepare", func() (any, error) {
			return nil, s.prepareAwait(shared)
		})
		select {
		case r := <-ch:
			// A flight abandoned by earlier callers ends with Canceled; start
			// a fresh one for the callers still waiting.
			if errors.Is(r.Err, context.Canceled) && ctx.Err() == nil {
				continue
			}
			return r.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) joinPrepare(ctx context.Context) context.Context {
	s.prepareMu.Lock()
	defer s.prepareMu.Unlock()
	if s.prepareWaiters == 0 {
		s.prepareCtx, s.prepareCancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	s.prepareWaiters++
	return s.prepareCtx
}

func (s *Session) leavePrepare() {
	s.prepareMu.Lock()
	defer s.prepareMu.Unlock()
	s.prepareWaiters--
	if s.prepareWaiters == 0 {
		s.prepareCancel()
		s.prepareCtx, s.prepareCancel = nil, nil
	}
}

func (s *Session) prepareAwait(ctx context.Context) error {
	states, stop := s.watch()
	defer stop()

	seenPreparing := false
	switch st := s.provider.State(); {
	case isPrepared(st):
		s.activate()
		return nil
	case st == sdk.StatePreparing:
		seenPreparing = true
	case st == sdk.StateInitial:
		s.log.Debug("preparing sdk", "channel_id", s.Environment().ChannelID)
		if err := s.provider.Prepare(ctx, s.Environment()); err != nil {
			return s.fail(types.PhasePrepare, types.NewPrepareFailed(err))
		}
		if isPrepared(s.provider.State()) {
			s.activate()
			return nil
		}
	}

	timer := newTimer(s.prepareTimeout)
	defer timer.Stop()

	for {
		select {
		case st := <-states:
			switch {
			case st == sdk.StatePreparing:
				seenPreparing = true
			case st == sdk.StateInitial && seenPreparing:
				return s.fail(types.PhasePrepare, types.NewPrepareFailed(errors.New("state returned to initial while preparing")))
			case isPrepared(st):
				s.activate()
				s.log.Info("sdk prepared", "state", string(st))
				return nil
			}
		case <-timer.C:
			return s.fail(types.PhasePrepare, types.NewPrepareTimeout())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ConnectAwait returns once the SDK reports Connected or Ready.
func (s *Session) ConnectAwait(ctx context.Context) error {
	st := s.provider.State()
	if isConnected(st) {
		s.onConnected()
		return nil
	}
	if st == sdk.StateInitial {
		return s.fail(types.PhaseConnect, types.NewConnectBeforePrepare())
	}

	states, stop := s.watch()
	defer stop()

	c := &connectAttempt{s: s, ctx: ctx}
	if done, err := c.observe(s.provider.State()); done {
		return c.finish(err)
	}

	timer := newTimer(s.connectTimeout)
	defer timer.Stop()

	for {
		select {
		case st := <-states:
			if done, err := c.observe(st); done {
				return c.finish(err)
			}
		case <-timer.C:
			return s.fail(types.PhaseConnect, types.NewConnectTimeout())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// connectAttempt tracks one ConnectAwait: whether the vendor connect has
// been issued and whether Connecting has been observed.
type connectAttempt struct {
	s              *Session
	ctx            context.Context
	issued         bool
	seenConnecting bool
}

func (c *connectAttempt) observe(st sdk.ConnectionState) (bool, error) {
	switch st {
	case sdk.StateConnected, sdk.StateReady:
		return true, nil
	case sdk.StateConnecting:
		c.seenConnecting = true
	case sdk.StatePreparing:
		// Wait for prepare to finish; connect is issued on Prepared.
	case sdk.StatePrepared, sdk.StateOffline, sdk.StateConnectionLost:
		if st == sdk.StateConnectionLost && c.seenConnecting {
			return true, types.NewConnectFailed(errors.New("connection lost while connecting"))
		}
		if !c.issued {
			c.issued = true
			c.s.log.Debug("connecting sdk", "from", string(st))
			if err := c.s.provider.Connect(c.ctx); err != nil {
				return true, types.NewConnectFailed(err)
			}
		}
	case sdk.StateInitial:
		if c.issued || c.seenConnecting {
			return true, types.NewConnectFailed(errors.New("state returned to initial while connecting"))
		}
		return true, types.NewConnectBeforePrepare()
	}
	return false, nil
}

func (c *connectAttempt) finish(err error) error {
	if err != nil {
		return c.s.fail(types.PhaseConnect, err)
	}
	c.s.onConnected()
	return nil
}

func (s *Session) onConnected() {
	s.activate()
	s.replaceThreads(s.provider.Threads().Get())
	s.log.Info("sdk connected", "state", s.ChatState())
}
