package sdk

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the SDK entry point. State changes are push-only through
// listeners; State gives the current value.
type Provider interface {
	// State returns the current connection state.
	State() ConnectionState

	// Mode returns the chat mode reported by the channel configuration.
	Mode() ChatMode

	// AddStateListener registers fn for every subsequent state change. The
	// returned func removes the listener and is safe to call more than once.
	AddStateListener(fn func(ConnectionState)) (remove func())

	// SetDelegate installs the receiver of asynchronous SDK callbacks.
	SetDelegate(d Delegate)

	// Prepare starts loading channel configuration. Completion is observed
	// through state listeners.
	Prepare(ctx context.Context, env Environment) error

	// Connect opens the chat socket. Completion is observed through state
	// listeners.
	Connect(ctx context.Context) error

	Disconnect(ctx context.Context) error
	SignOut(ctx context.Context) error

	ExecuteTrigger(ctx context.Context, id uuid.UUID) error

	// ChannelConfiguration returns the SDK's configuration object. Its
	// concrete type is not guaranteed to be *ChannelConfiguration.
	ChannelConfiguration(ctx context.Context) (any, error)
	ChannelConfigurationByURL(ctx context.Context, env Environment) (any, error)

	Customer() Customer
	Analytics() Analytics
	Threads() ThreadList
}

// ThreadList is the SDK's per-channel list of threads.
type ThreadList interface {
	// Get returns the threads currently known to the SDK.
	Get() []Thread

	// Refresh asks the SDK to reload the list from the backend.
	Refresh(ctx context.Context) error

	Create(ctx context.Context) (ThreadHandler, error)
	CreateWithCustomFields(ctx context.Context, fields map[string]string) (ThreadHandler, error)

	// Handler returns the handler for a thread the SDK knows.
	Handler(id uuid.UUID) (ThreadHandler, error)

	PreChatSurvey(ctx context.Context) (*PreChatSurvey, error)
}

// ThreadHandler performs operations on a single thread.
type ThreadHandler interface {
	// Thread returns the SDK's current snapshot of the thread.
	Thread() Thread

	Send(ctx context.Context, msg OutboundMessage) error

	// LoadMore requests the previous page of messages. The page arrives
	// asynchronously and is visible only as a change in Thread().Messages.
	LoadMore(ctx context.Context) error

	MarkRead(ctx context.Context) error
	UpdateName(ctx context.Context, name string) error
	Archive(ctx context.Context) error
	EndContact(ctx context.Context) error
	ReportTypingStart(ctx context.Context, typing bool) error

	CustomFields() map[string]string
	SetCustomFields(ctx context.Context, fields map[string]string) error
}

type Customer interface {
	SetName(ctx context.Context, firstName, lastName string) error
	SetIdentity(ctx context.Context, id, firstName, lastName string) error
	ClearIdentity(ctx context.Context) error
	SetDeviceToken(ctx context.Context, token string) error
	SetAuthorizationCode(ctx context.Context, code string) error
	SetCodeVerifier(ctx context.Context, verifier string) error
	VisitorID() (uuid.UUID, bool)

	CustomFields() map[string]string
	SetCustomFields(ctx context.Context, fields map[string]string) error
}

type Analytics interface {
	ViewPage(ctx context.Context, title, url string) error
	ViewPageEnded(ctx context.Context, title, url string) error
	ChatWindowOpen(ctx context.Context) error
	Conversion(ctx context.Context, kind string, value float64) error
}

// Delegate receives SDK callbacks on the SDK's delivery goroutine.
type Delegate interface {
	OnChatUpdated(state ConnectionState, mode ChatMode)
	OnThreadUpdated(thread Thread)
	OnThreadsUpdated(threads []Thread)
	OnAgentTyping(isTyping bool, threadID uuid.UUID, agent *Agent)
	OnCustomEventMessage(data []byte)
	OnContactCustomFieldsSet()
	OnCustomerCustomFieldsSet()
	OnError(err error)
	OnUnexpectedDisconnect()
	OnTokenRefreshFailed()
	OnProactivePopupAction(actionID uuid.UUID, data map[string]any)
}
