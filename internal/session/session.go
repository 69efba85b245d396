// Package session owns one bridge session against the vendor chat SDK: the
// connection sequencing, the cached thread list, and the republishing of
// SDK callbacks as events.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/types"
)

const (
	DefaultPrepareTimeout     = 7000 * time.Millisecond
	DefaultConnectTimeout     = 10000 * time.Millisecond
	DefaultPagingIterations   = 10
	DefaultPagingPollInterval = 50 * time.Millisecond
	DefaultPagingPollAttempts = 20
	DefaultLoadMoreBatch      = 20
)

// Session is an explicitly owned handle on the vendor SDK. It becomes active
// after a successful prepare and is torn down by Disconnect or SignOut.
type Session struct {
	ID types.SessionID

	provider sdk.Provider
	emitter  *events.Emitter
	errs     *events.ErrorSink
	log      *slog.Logger

	prepareTimeout     time.Duration
	connectTimeout     time.Duration
	pagingIterations   int
	pagingPollInterval time.Duration
	pagingPollAttempts int

	prepareGroup   singleflight.Group
	prepareMu      sync.Mutex
	prepareWaiters int
	prepareCtx     context.Context
	prepareCancel  context.CancelFunc

	mu        sync.RWMutex
	active    bool
	env       sdk.Environment
	threads   []sdk.Thread
	auth      authorization
	lastState sdk.ConnectionState
}

type authorization struct {
	code     string
	verifier string
}

// Option configures optional behavior on a Session.
type Option func(*Session)

func WithPrepareTimeout(d time.Duration) Option {
	return func(s *Session) { s.prepareTimeout = d }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

// WithPaging bounds the LoadMore loop.
func WithPaging(iterations int, pollInterval time.Duration, pollAttempts int) Option {
	return func(s *Session) {
		s.pagingIterations = iterations
		s.pagingPollInterval = pollInterval
		s.pagingPollAttempts = pollAttempts
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New creates a session bound to provider and installs itself as the
// provider's delegate.
func New(provider sdk.Provider, emitter *events.Emitter, opts ...Option) *Session {
	s := &Session{
		ID:                 types.NewSessionID(),
		provider:           provider,
		emitter:            emitter,
		errs:               events.NewErrorSink(emitter),
		log:                slog.Default(),
		prepareTimeout:     DefaultPrepareTimeout,
		connectTimeout:     DefaultConnectTimeout,
		pagingIterations:   DefaultPagingIterations,
		pagingPollInterval: DefaultPagingPollInterval,
		pagingPollAttempts: DefaultPagingPollAttempts,
		lastState:          provider.State(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session_id", string(s.ID))
	provider.SetDelegate(s)
	return s
}

// Close detaches the session from the provider's callbacks.
func (s *Session) Close() {
	s.provider.SetDelegate(nil)
}

// Environment returns the environment the session was last prepared with.
func (s *Session) Environment() sdk.Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

// Prepare records env and waits for the SDK to finish preparing.
func (s *Session) Prepare(ctx context.Context, env sdk.Environment) error {
	if err := validateEnvironment(env); err != nil {
		return err
	}
	s.setEnvironment(env)
	return s.PrepareAwait(ctx)
}

// PrepareWithURLs prepares against a custom environment.
func (s *Session) PrepareWithURLs(ctx context.Context, chatURL, socketURL string, brandID int, channelID string) error {
	if chatURL == "" || socketURL == "" {
		return types.NewInvalidArgument("chatURL and socketURL are required", nil)
	}
	return s.Prepare(ctx, sdk.Environment{
		Name:      "custom",
		ChatURL:   chatURL,
		SocketURL: socketURL,
		BrandID:   brandID,
		ChannelID: channelID,
	})
}

// Connect waits for the SDK to reach a connected state, issuing the vendor
// connect when the state machine allows it.
func (s *Session) Connect(ctx context.Context) error {
	return s.ConnectAwait(ctx)
}

// PrepareAndConnect runs the whole sequence as one awaitable call. Unlike
// Prepare, an invalid env is also reported as a preflight connectionError.
func (s *Session) PrepareAndConnect(ctx context.Context, env sdk.Environment) error {
	if err := validateEnvironment(env); err != nil {
		return s.fail(types.PhasePreflight, err)
	}
	if err := s.Prepare(ctx, env); err != nil {
		return err
	}
	return s.ConnectAwait(ctx)
}

func (s *Session) Disconnect(ctx context.Context) error {
	if err := s.provider.Disconnect(ctx); err != nil {
		return types.NewVendorError("disconnect", err)
	}
	s.teardown()
	s.log.Info("session disconnected")
	return nil
}

// SignOut disconnects, forgets the customer and clears pending
// authorization.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return types.NewVendorError("sign out", err)
	}
	s.teardown()

	s.mu.Lock()
	hadAuth := s.auth != (authorization{})
	s.auth = authorization{}
	s.mu.Unlock()
	if hadAuth {
		s.emitter.Emit(events.AuthorizationChanged, events.AuthorizationChangedPayload{Status: authCleared})
	}
	s.log.Info("session signed out")
	return nil
}

func (s *Session) ChatMode() string {
	return string(s.provider.Mode())
}

func (s *Session) ChatState() string {
	return string(s.provider.State())
}

func (s *Session) IsConnected() bool {
	return isConnected(s.provider.State())
}

// PollState emits chatUpdated when the SDK state differs from the state
// seen at the previous poll. It reports whether an event was emitted.
func (s *Session) PollState() bool {
	st := s.provider.State()
	s.mu.Lock()
	changed := st != s.lastState
	s.lastState = st
	s.mu.Unlock()
	if changed {
		s.emitter.Emit(events.ChatUpdated, events.ChatUpdatedPayload{State: string(st), Mode: s.ChatMode()})
	}
	return changed
}

func (s *Session) ExecuteTrigger(ctx context.Context, triggerID string) error {
	id, err := types.ParseTriggerID(triggerID)
	if err != nil {
		return err
	}
	if !s.ready() {
		return types.NewChatNotReady()
	}
	if err := s.provider.ExecuteTrigger(ctx, id); err != nil {
		return types.NewVendorError("execute trigger", err)
	}
	return nil
}

func (s *Session) ChannelConfiguration(ctx context.Context) (map[string]any, error) {
	cfg, err := s.provider.ChannelConfiguration(ctx)
	if err != nil {
		return nil, types.NewVendorError("get channel configuration", err)
	}
	return codec.EncodeChannelConfiguration(cfg), nil
}

func (s *Session) ChannelConfigurationByURL(ctx context.Context, env sdk.Environment) (map[string]any, error) {
	if env.ChatURL == "" {
		return nil, types.NewInvalidArgument("chatURL is required", nil)
	}
	if err := validateEnvironment(env); err != nil {
		return nil, err
	}
	cfg, err := s.provider.ChannelConfigurationByURL(ctx, env)
	if err != nil {
		return nil, types.NewVendorError("get channel configuration", err)
	}
	return codec.EncodeChannelConfiguration(cfg), nil
}

func validateEnvironment(env sdk.Environment) error {
	if env.BrandID <= 0 {
		return types.NewInvalidArgument("brandId must be a positive integer", nil)
	}
	if env.ChannelID == "" {
		return types.NewInvalidArgument("channelId is required", nil)
	}
	return nil
}

func (s *Session) setEnvironment(env sdk.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

func (s *Session) activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
}

func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.threads = nil
}

// ready reports whether thread operations may reach the SDK.
func (s *Session) ready() bool {
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	return active && isConnected(s.provider.State())
}
