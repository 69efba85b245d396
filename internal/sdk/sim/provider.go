// Package sim is an in-process simulation of the vendor chat SDK. It runs
// the connection state machine on timers, keeps threads and paged history
// in memory, and delivers callbacks to the installed delegate the way the
// SDK does: asynchronously and outside any caller's stack.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/chatbridge/internal/sdk"
)

var (
	ErrNotPrepared   = errors.New("sim: sdk is not prepared")
	ErrNotConnected  = errors.New("sim: sdk is not connected")
	ErrUnknownThread = errors.New("sim: unknown thread")
)

// Provider implements sdk.Provider.
type Provider struct {
	fx           Fixture
	prepareDelay time.Duration
	connectDelay time.Duration
	pageDelay    time.Duration
	log          *slog.Logger

	mu         sync.Mutex
	state      sdk.ConnectionState
	generation int
	listeners  map[int]func(sdk.ConnectionState)
	nextID     int
	delegate   sdk.Delegate
	threads    []*simThread
	calls      map[string]int
	customer   *customer
	analytics  *analytics
}

type simThread struct {
	thread  sdk.Thread
	history []sdk.Message // not yet loaded, oldest first
	typing  bool
}

var _ sdk.Provider = (*Provider)(nil)

// New builds a provider from fx. The fixture is assumed valid.
func New(fx Fixture) *Provider {
	p := &Provider{
		fx:        fx,
		log:       slog.Default().With("component", "sim"),
		state:     sdk.StateInitial,
		listeners: make(map[int]func(sdk.ConnectionState)),
		calls:     make(map[string]int),
	}
	p.prepareDelay, _ = parseDelay(fx.PrepareDelay)
	p.connectDelay, _ = parseDelay(fx.ConnectDelay)
	p.pageDelay, _ = parseDelay(fx.PageDelay)
	p.customer = newCustomer(p, fx.VisitorID)
	p.analytics = &analytics{p: p}
	p.resetThreads()
	return p
}

func (p *Provider) resetThreads() {
	now := time.Now()
	agent := p.fx.Agent.agent()
	p.threads = p.threads[:0]
	for _, ft := range p.fx.Threads {
		all := ft.history(now, agent)
		loaded := ft.Loaded
		if loaded <= 0 || loaded > len(all) {
			loaded = len(all)
		}
		cut := len(all) - loaded
		st := &simThread{
			thread: sdk.Thread{
				ID:                uuid.MustParse(ft.ID),
				Name:              ft.Name,
				State:             sdk.ThreadReady,
				CustomFields:      maps.Clone(ft.CustomFields),
				Messages:          slices.Clone(all[cut:]),
				LastAssignedAgent: agent,
			},
			history: slices.Clone(all[:cut]),
		}
		st.syncPaging()
		p.threads = append(p.threads, st)
	}
}

func (t *simThread) syncPaging() {
	t.thread.HasMoreMessagesToLoad = len(t.history) > 0
	t.thread.ScrollToken = ""
	if t.thread.HasMoreMessagesToLoad {
		t.thread.ScrollToken = fmt.Sprintf("page-%d", len(t.history))
	}
}

func (t *simThread) snapshot() sdk.Thread {
	out := t.thread
	out.Messages = slices.Clone(t.thread.Messages)
	out.CustomFields = maps.Clone(t.thread.CustomFields)
	return out
}

// Calls returns how many times the named SDK method was invoked.
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *Provider) record(method string) {
	p.calls[method]++
}

func (p *Provider) State() sdk.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Provider) Mode() sdk.ChatMode {
	if p.fx.Mode == "" {
		return sdk.ModeSingleThread
	}
	return sdk.ChatMode(p.fx.Mode)
}

func (p *Provider) AddStateListener(fn func(sdk.ConnectionState)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// ListenerCount reports the number of registered state listeners.
func (p *Provider) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *Provider) SetDelegate(d sdk.Delegate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = d
}

// transition sets the state and notifies listeners and the delegate. It
// must be called without p.mu held.
func (p *Provider) transition(st sdk.ConnectionState) {
	p.mu.Lock()
	p.state = st
	fns := slices.Collect(maps.Values(p.listeners))
	d := p.delegate
	p.mu.Unlock()

	p.log.Debug("state changed", "state", string(st))
	for _, fn := range fns {
		fn(st)
	}
	if d != nil {
		d.OnChatUpdated(st, p.Mode())
	}
}

// later runs fn after d unless the provider was disconnected or signed out
// in the meantime.
func (p *Provider) later(d time.Duration, fn func()) {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()
	time.AfterFunc(d, func() {
		p.mu.Lock()
		stale := gen != p.generation
		p.mu.Unlock()
		if !stale {
			fn()
		}
	})
}

func (p *Provider) withDelegate(fn func(sdk.Delegate)) {
	p.mu.Lock()
	d := p.delegate
	p.mu.Unlock()
	if d != nil {
		fn(d)
	}
}

func (p *Provider) Prepare(_ context.Context, env sdk.Environment) error {
	p.mu.Lock()
	p.record("Prepare")
	st := p.state
	p.mu.Unlock()

	if env.BrandID <= 0 || env.ChannelID == "" {
		return fmt.Errorf("sim: invalid environment %q", env.Name)
	}
	if st != sdk.StateInitial {
		return nil
	}
	p.transition(sdk.StatePreparing)
	p.later(p.prepareDelay, func() {
		if p.fx.FailPrepare {
			p.transition(sdk.StateInitial)
			return
		}
		p.transition(sdk.StatePrepared)
	})
	return nil
}

func (p *Provider) Connect(_ context.Context) error {
	p.mu.Lock()
	p.record("Connect")
	st := p.state
	p.mu.Unlock()

	switch st {
	case sdk.StatePrepared, sdk.StateOffline, sdk.StateConnectionLost:
	case sdk.StateConnecting, sdk.StateConnected, sdk.StateReady:
		return nil
	default:
		return ErrNotPrepared
	}
	p.transition(sdk.StateConnecting)
	p.later(p.connectDelay, func() {
		if p.fx.FailConnect {
			p.transition(sdk.StateConnectionLost)
			return
		}
		p.transition(sdk.StateConnected)
		p.transition(sdk.StateReady)
		threads := p.Threads().Get()
		p.withDelegate(func(d sdk.Delegate) { d.OnThreadsUpdated(threads) })
	})
	return nil
}

func (p *Provider) Disconnect(_ context.Context) error {
	p.mu.Lock()
	p.record("Disconnect")
	p.generation++
	st := p.state
	p.mu.Unlock()

	if st == sdk.StateInitial || st == sdk.StatePreparing {
		return nil
	}
	p.transition(sdk.StatePrepared)
	return nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.record("SignOut")
	p.generation++
	p.resetThreads()
	p.mu.Unlock()

	p.customer.reset()
	p.transition(sdk.StateInitial)
	return nil
}

func (p *Provider) ExecuteTrigger(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	p.record("ExecuteTrigger")
	connected := p.connectedLocked()
	p.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	p.log.Info("trigger executed", "trigger_id", id.String())
	return nil
}

func (p *Provider) ChannelConfiguration(_ context.Context) (any, error) {
	p.mu.Lock()
	p.record("ChannelConfiguration")
	st := p.state
	p.mu.Unlock()
	if st == sdk.StateInitial || st == sdk.StatePreparing {
		return nil, ErrNotPrepared
	}
	return p.fx.configuration(), nil
}

func (p *Provider) ChannelConfigurationByURL(_ context.Context, env sdk.Environment) (any, error) {
	p.mu.Lock()
	p.record("ChannelConfigurationByURL")
	p.mu.Unlock()
	if env.ChatURL == "" {
		return nil, fmt.Errorf("sim: chat url is required")
	}
	return p.fx.configuration(), nil
}

func (p *Provider) Customer() sdk.Customer   { return p.customer }
func (p *Provider) Analytics() sdk.Analytics { return p.analytics }
func (p *Provider) Threads() sdk.ThreadList  { return &threadList{p: p} }

func (p *Provider) connectedLocked() bool {
	return p.state == sdk.StateConnected || p.state == sdk.StateReady
}

// DropConnection simulates the socket closing under a connected session.
func (p *Provider) DropConnection() {
	p.mu.Lock()
	p.generation++
	p.mu.Unlock()
	p.transition(sdk.StateConnectionLost)
	p.withDelegate(func(d sdk.Delegate) { d.OnUnexpectedDisconnect() })
}

// FailTokenRefresh simulates the SDK failing to refresh its access token.
func (p *Provider) FailTokenRefresh() {
	p.withDelegate(func(d sdk.Delegate) { d.OnTokenRefreshFailed() })
}

// ReportError delivers err through the delegate's error callback.
func (p *Provider) ReportError(err error) {
	p.withDelegate(func(d sdk.Delegate) { d.OnError(err) })
}

// CustomEvent delivers a custom event payload to the delegate.
func (p *Provider) CustomEvent(data []byte) {
	p.withDelegate(func(d sdk.Delegate) { d.OnCustomEventMessage(data) })
}

// ProactivePopup delivers a proactive popup action to the delegate.
func (p *Provider) ProactivePopup(actionID uuid.UUID, data map[string]any) {
	p.withDelegate(func(d sdk.Delegate) { d.OnProactivePopupAction(actionID, data) })
}
