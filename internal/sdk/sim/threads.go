package sim

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/user/chatbridge/internal/sdk"
)

type threadList struct {
	p *Provider
}

func (l *threadList) Get() []sdk.Thread {
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	out := make([]sdk.Thread, 0, len(l.p.threads))
	for _, t := range l.p.threads {
		out = append(out, t.snapshot())
	}
	return out
}

func (l *threadList) Refresh(_ context.Context) error {
	l.p.mu.Lock()
	l.p.record("Refresh")
	connected := l.p.connectedLocked()
	l.p.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	threads := l.Get()
	l.p.withDelegate(func(d sdk.Delegate) { d.OnThreadsUpdated(threads) })
	return nil
}

func (l *threadList) Create(ctx context.Context) (sdk.ThreadHandler, error) {
	return l.create(ctx, "Create", nil)
}

func (l *threadList) CreateWithCustomFields(ctx context.Context, fields map[string]string) (sdk.ThreadHandler, error) {
	return l.create(ctx, "CreateWithCustomFields", fields)
}

func (l *threadList) create(_ context.Context, method string, fields map[string]string) (sdk.ThreadHandler, error) {
	l.p.mu.Lock()
	l.p.record(method)
	if !l.p.connectedLocked() {
		l.p.mu.Unlock()
		return nil, ErrNotConnected
	}
	st := &simThread{thread: sdk.Thread{
		ID:           uuid.New(),
		State:        sdk.ThreadPending,
		CustomFields: maps.Clone(fields),
	}}
	if st.thread.CustomFields == nil {
		st.thread.CustomFields = map[string]string{}
	}
	l.p.threads = append(l.p.threads, st)
	snap := st.snapshot()
	l.p.mu.Unlock()

	l.p.withDelegate(func(d sdk.Delegate) { d.OnThreadUpdated(snap) })
	return &handler{p: l.p, id: snap.ID}, nil
}

func (l *threadList) Handler(id uuid.UUID) (sdk.ThreadHandler, error) {
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	if l.p.findLocked(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThread, id)
	}
	return &handler{p: l.p, id: id}, nil
}

func (l *threadList) PreChatSurvey(_ context.Context) (*sdk.PreChatSurvey, error) {
	l.p.mu.Lock()
	l.p.record("PreChatSurvey")
	l.p.mu.Unlock()
	return l.p.fx.survey(), nil
}

func (p *Provider) findLocked(id uuid.UUID) *simThread {
	for _, t := range p.threads {
		if t.thread.ID == id {
			return t
		}
	}
	return nil
}

// handler implements sdk.ThreadHandler against one simulated thread.
type handler struct {
	p  *Provider
	id uuid.UUID
}

func (h *handler) Thread() sdk.Thread {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if t := h.p.findLocked(h.id); t != nil {
		return t.snapshot()
	}
	return sdk.Thread{ID: h.id}
}

// mutate applies fn to the thread and publishes the result to the
// delegate.
func (h *handler) mutate(method string, requireConnected bool, fn func(t *simThread)) error {
	h.p.mu.Lock()
	h.p.record(method)
	if requireConnected && !h.p.connectedLocked() {
		h.p.mu.Unlock()
		return ErrNotConnected
	}
	t := h.p.findLocked(h.id)
	if t == nil {
		h.p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownThread, h.id)
	}
	fn(t)
	snap := t.snapshot()
	h.p.mu.Unlock()

	h.p.withDelegate(func(d sdk.Delegate) { d.OnThreadUpdated(snap) })
	return nil
}

func (h *handler) Send(_ context.Context, msg sdk.OutboundMessage) error {
	var text string
	err := h.mutate("Send", true, func(t *simThread) {
		m := sdk.Message{
			ID:        uuid.New(),
			ThreadID:  h.id,
			CreatedAt: time.Now(),
			Direction: sdk.ToAgent,
			Content:   msg.Content,
		}
		for _, a := range msg.Attachments {
			url := a.URL
			if url == "" {
				url = "https://files.sim.invalid/" + a.FileName
			}
			m.Attachments = append(m.Attachments, sdk.Attachment{
				URL:          url,
				FriendlyName: a.FriendlyName,
				MimeType:     a.MimeType,
				FileName:     a.FileName,
			})
		}
		if m.Content == nil {
			m.Content = sdk.TextContent{}
		}
		if tc, ok := msg.Content.(sdk.TextContent); ok {
			text = tc.Text
		}
		if t.thread.State == sdk.ThreadPending {
			t.thread.State = sdk.ThreadReady
		}
		t.thread.Messages = append(t.thread.Messages, m)
	})
	if err != nil {
		return err
	}
	if text != "" && h.p.fx.AutoReply != "" {
		h.reply()
	}
	return nil
}

// reply simulates the assigned agent typing and then answering.
func (h *handler) reply() {
	agent := h.p.fx.Agent.agent()
	h.p.withDelegate(func(d sdk.Delegate) { d.OnAgentTyping(true, h.id, agent) })
	h.p.later(h.p.connectDelay, func() {
		_ = h.mutate("reply", false, func(t *simThread) {
			t.thread.AssignedAgent = agent
			t.thread.LastAssignedAgent = agent
			t.thread.Messages = append(t.thread.Messages, sdk.Message{
				ID:        uuid.New(),
				ThreadID:  h.id,
				CreatedAt: time.Now(),
				Direction: sdk.ToClient,
				Content:   sdk.TextContent{Text: h.p.fx.AutoReply},
				Author:    agent,
			})
		})
		h.p.withDelegate(func(d sdk.Delegate) { d.OnAgentTyping(false, h.id, agent) })
	})
}

// LoadMore moves one page of history into the thread after the page
// delay. The oldest already-loaded message is delivered again with the
// page, as the SDK does when pages overlap.
func (h *handler) LoadMore(_ context.Context) error {
	h.p.mu.Lock()
	h.p.record("LoadMore")
	connected := h.p.connectedLocked()
	h.p.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	h.p.later(h.p.pageDelay, func() {
		_ = h.mutate("page", false, func(t *simThread) {
			if len(t.history) == 0 {
				return
			}
			size := h.p.fx.PageSize
			if size <= 0 || size > len(t.history) {
				size = len(t.history)
			}
			cut := len(t.history) - size
			page := append([]sdk.Message(nil), t.history[cut:]...)
			if len(t.thread.Messages) > 0 {
				page = append(page, t.thread.Messages[0])
			}
			t.history = t.history[:cut]
			t.thread.Messages = append(page, t.thread.Messages...)
			t.syncPaging()
		})
	})
	return nil
}

func (h *handler) MarkRead(_ context.Context) error {
	now := time.Now()
	return h.mutate("MarkRead", true, func(t *simThread) {
		for i := range t.thread.Messages {
			m := &t.thread.Messages[i]
			if m.Direction == sdk.ToClient && m.Statistics.ReadAt == nil {
				m.Statistics.ReadAt = &now
				if m.Statistics.SeenAt == nil {
					m.Statistics.SeenAt = &now
				}
			}
		}
	})
}

func (h *handler) UpdateName(_ context.Context, name string) error {
	return h.mutate("UpdateName", true, func(t *simThread) { t.thread.Name = name })
}

func (h *handler) Archive(_ context.Context) error {
	return h.mutate("Archive", true, func(t *simThread) { t.thread.State = sdk.ThreadClosed })
}

func (h *handler) EndContact(_ context.Context) error {
	return h.mutate("EndContact", true, func(t *simThread) {
		t.thread.State = sdk.ThreadClosed
		t.thread.AssignedAgent = nil
	})
}

func (h *handler) ReportTypingStart(_ context.Context, typing bool) error {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	h.p.record("ReportTypingStart")
	if !h.p.connectedLocked() {
		return ErrNotConnected
	}
	if t := h.p.findLocked(h.id); t != nil {
		t.typing = typing
	}
	return nil
}

func (h *handler) CustomFields() map[string]string {
	return h.Thread().CustomFields
}

func (h *handler) SetCustomFields(_ context.Context, fields map[string]string) error {
	err := h.mutate("SetThreadCustomFields", true, func(t *simThread) {
		if t.thread.CustomFields == nil {
			t.thread.CustomFields = map[string]string{}
		}
		maps.Copy(t.thread.CustomFields, fields)
	})
	if err != nil {
		return err
	}
	h.p.withDelegate(func(d sdk.Delegate) { d.OnContactCustomFieldsSet() })
	return nil
}
