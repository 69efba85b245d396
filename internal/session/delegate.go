package session

import (
	"encoding/base64"

	"github.com/google/uuid"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/types"
)

var _ sdk.Delegate = (*Session)(nil)

func (s *Session) OnChatUpdated(state sdk.ConnectionState, mode sdk.ChatMode) {
	s.mu.Lock()
	s.lastState = state
	s.mu.Unlock()
	s.log.Debug("chat updated", "state", string(state), "mode", string(mode))
	s.emitter.Emit(events.ChatUpdated, events.ChatUpdatedPayload{State: string(state), Mode: string(mode)})
}

func (s *Session) OnThreadUpdated(thread sdk.Thread) {
	s.storeThread(thread)
	s.emitter.Emit(events.ThreadUpdated, events.ThreadUpdatedPayload{
		ThreadID: codec.ID(thread.ID),
		Thread:   codec.EncodeThread(thread),
	})
}

func (s *Session) OnThreadsUpdated(threads []sdk.Thread) {
	s.replaceThreads(threads)
	s.emitter.Emit(events.ThreadsUpdated, events.ThreadsUpdatedPayload{
		ThreadIDs: codec.ThreadIDs(threads),
		Threads:   codec.EncodeThreads(threads),
	})
}

func (s *Session) OnAgentTyping(isTyping bool, threadID uuid.UUID, agent *sdk.Agent) {
	s.emitter.Emit(events.AgentTyping, events.AgentTypingPayload{
		IsTyping: isTyping,
		ThreadID: codec.ID(threadID),
		Agent:    codec.EncodeAgent(agent),
	})
}

func (s *Session) OnCustomEventMessage(data []byte) {
	s.emitter.Emit(events.CustomEventMessage, events.CustomEventMessagePayload{
		Base64: base64.StdEncoding.EncodeToString(data),
	})
}

func (s *Session) OnContactCustomFieldsSet() {
	s.emitter.Emit(events.ContactCustomFieldsSet, events.Empty{})
}

func (s *Session) OnCustomerCustomFieldsSet() {
	s.emitter.Emit(events.CustomerCustomFieldsSet, events.Empty{})
}

// OnError has no pending caller; the failure is observable only as events.
func (s *Session) OnError(err error) {
	s.errs.Report(types.PhaseRuntime, types.NewVendorError("sdk", err))
}

func (s *Session) OnUnexpectedDisconnect() {
	s.log.Warn("unexpected disconnect")
	s.emitter.Emit(events.UnexpectedDisconnect, events.Empty{})
}

func (s *Session) OnTokenRefreshFailed() {
	s.log.Warn("token refresh failed")
	s.emitter.Emit(events.TokenRefreshFailed, events.Empty{})
}

// OnProactivePopupAction passes the SDK's action data through the
// reflective encoder so arbitrary values stay JSON-safe.
func (s *Session) OnProactivePopupAction(actionID uuid.UUID, data map[string]any) {
	safe, _ := codec.Reflect(data, codec.MaxReflectDepth).(map[string]any)
	if safe == nil {
		safe = map[string]any{}
	}
	s.emitter.Emit(events.ProactivePopupAction, events.ProactivePopupActionPayload{
		ActionID: codec.ID(actionID),
		Data:     safe,
	})
}
