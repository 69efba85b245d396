package session

import (
	"context"
	"encoding/base64"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/types"
)

// Threads returns the SDK's current thread list and refreshes the cache
// from it.
func (s *Session) Threads(_ context.Context) ([]codec.Thread, error) {
	if !s.ready() {
		return nil, types.NewChatNotReady()
	}
	threads := s.provider.Threads().Get()
	s.replaceThreads(threads)
	return codec.EncodeThreads(threads), nil
}

// LoadThreads asks the SDK to reload the list from the backend.
func (s *Session) LoadThreads(ctx context.Context) ([]codec.Thread, error) {
	if !s.ready() {
		return nil, types.NewChatNotReady()
	}
	list := s.provider.Threads()
	if err := list.Refresh(ctx); err != nil {
		return nil, types.NewVendorError("load threads", err)
	}
	threads := list.Get()
	s.replaceThreads(threads)
	return codec.EncodeThreads(threads), nil
}

// LoadThread reloads the list and returns one thread from it.
func (s *Session) LoadThread(ctx context.Context, threadID string) (codec.Thread, error) {
	id, err := types.ParseThreadID(threadID)
	if err != nil {
		return codec.Thread{}, err
	}
	if _, err := s.LoadThreads(ctx); err != nil {
		return codec.Thread{}, err
	}
	t, ok := s.cachedThread(id)
	if !ok {
		return codec.Thread{}, types.NewThreadNotFound(threadID)
	}
	return codec.EncodeThread(t), nil
}

// CreateThread creates a thread. Without custom fields the SDK's plain
// create is used.
func (s *Session) CreateThread(ctx context.Context, fields map[string]string) (codec.Thread, error) {
	if !s.ready() {
		return codec.Thread{}, types.NewChatNotReady()
	}
	list := s.provider.Threads()

	var (
		h   sdk.ThreadHandler
		err error
	)
	if len(fields) == 0 {
		h, err = list.Create(ctx)
	} else {
		h, err = list.CreateWithCustomFields(ctx, fields)
	}
	if err != nil {
		return codec.Thread{}, types.NewVendorError("create thread", err)
	}

	t := h.Thread()
	s.storeThread(t)
	s.log.Info("thread created", "thread_id", t.ID.String(), "custom_fields", len(fields))
	return codec.EncodeThread(t), nil
}

func (s *Session) PreChatSurvey(ctx context.Context) (*codec.PreChatSurvey, error) {
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	if !active {
		return nil, types.NewChatNotReady()
	}
	survey, err := s.provider.Threads().PreChatSurvey(ctx)
	if err != nil {
		return nil, types.NewVendorError("get pre-chat survey", err)
	}
	return codec.EncodePreChatSurvey(survey), nil
}

// handler resolves a validated thread ID to the SDK handler. Unknown IDs
// fail before any SDK call.
func (s *Session) handler(id uuid.UUID) (sdk.ThreadHandler, error) {
	if !s.ready() {
		return nil, types.NewChatNotReady()
	}
	if _, ok := s.cachedThread(id); !ok {
		return nil, types.NewThreadNotFound(id.String())
	}
	h, err := s.provider.Threads().Handler(id)
	if err != nil {
		return nil, types.NewVendorError("resolve thread", err)
	}
	return h, nil
}

func (s *Session) resolve(threadID string) (sdk.ThreadHandler, error) {
	id, err := types.ParseThreadID(threadID)
	if err != nil {
		return nil, err
	}
	return s.handler(id)
}

// threadOp runs fn against the thread's handler and refreshes the cached
// copy afterwards.
func (s *Session) threadOp(threadID, op string, fn func(sdk.ThreadHandler) error) error {
	h, err := s.resolve(threadID)
	if err != nil {
		return err
	}
	if err := fn(h); err != nil {
		return types.NewVendorError(op, err)
	}
	s.storeThread(h.Thread())
	return nil
}

func (s *Session) SendMessage(ctx context.Context, threadID string, content codec.Content) error {
	if _, err := types.ParseThreadID(threadID); err != nil {
		return err
	}
	vc, err := content.Vendor()
	if err != nil {
		return err
	}
	return s.threadOp(threadID, "send message", func(h sdk.ThreadHandler) error {
		return h.Send(ctx, sdk.OutboundMessage{Content: vc})
	})
}

// SendText is a convenience for plain text messages.
func (s *Session) SendText(ctx context.Context, threadID, text string) error {
	if strings.TrimSpace(text) == "" {
		return types.NewInvalidArgument("message text is empty", nil)
	}
	return s.SendMessage(ctx, threadID, codec.Content{Type: codec.ContentText, Payload: &codec.TextPayload{Text: text}})
}

// Attachment describes a file sent by URL or inline base64.
type Attachment struct {
	MimeType     string
	FileName     string
	FriendlyName string
}

func (s *Session) SendAttachmentURL(ctx context.Context, threadID, rawURL string, a Attachment) error {
	if _, err := types.ParseThreadID(threadID); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return types.NewInvalidArgument("attachment url must be absolute", err)
	}
	if a.MimeType == "" {
		return types.NewInvalidArgument("attachment mimeType is required", nil)
	}
	desc := sdk.ContentDescriptor{URL: u.String(), MimeType: a.MimeType, FileName: a.FileName, FriendlyName: a.FriendlyName}
	return s.threadOp(threadID, "send attachment", func(h sdk.ThreadHandler) error {
		return h.Send(ctx, sdk.OutboundMessage{Attachments: []sdk.ContentDescriptor{desc}})
	})
}

func (s *Session) SendAttachmentBase64(ctx context.Context, threadID, data string, a Attachment) error {
	if _, err := types.ParseThreadID(threadID); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) == 0 {
		return types.NewInvalidArgument("attachment data is not valid base64", err)
	}
	if a.MimeType == "" || a.FileName == "" {
		return types.NewInvalidArgument("attachment mimeType and fileName are required", nil)
	}
	desc := sdk.ContentDescriptor{Data: raw, MimeType: a.MimeType, FileName: a.FileName, FriendlyName: a.FriendlyName}
	return s.threadOp(threadID, "send attachment", func(h sdk.ThreadHandler) error {
		return h.Send(ctx, sdk.OutboundMessage{Attachments: []sdk.ContentDescriptor{desc}})
	})
}

// LoadMore pages older messages until batch new messages arrived or the
// SDK has no more pages. The SDK signals page arrival only through the
// thread's message count, so each page is awaited by polling it.
func (s *Session) LoadMore(ctx context.Context, threadID string, batch int) (codec.Thread, error) {
	h, err := s.resolve(threadID)
	if err != nil {
		return codec.Thread{}, err
	}
	if batch <= 0 {
		batch = DefaultLoadMoreBatch
	}

	before := len(codec.NormalizeMessages(h.Thread().Messages))
	for i := 0; i < s.pagingIterations; i++ {
		t := h.Thread()
		if !t.HasMoreMessagesToLoad || len(codec.NormalizeMessages(t.Messages))-before >= batch {
			break
		}
		count := len(t.Messages)
		if err := h.LoadMore(ctx); err != nil {
			return codec.Thread{}, types.NewVendorError("load more", err)
		}
		arrived, err := s.awaitPage(ctx, h, count)
		if err != nil {
			return codec.Thread{}, err
		}
		if !arrived {
			s.log.Debug("load more page did not arrive", "thread_id", threadID, "iteration", i)
			break
		}
	}

	t := h.Thread()
	s.storeThread(t)
	return codec.EncodeThread(t), nil
}

func (s *Session) awaitPage(ctx context.Context, h sdk.ThreadHandler, count int) (bool, error) {
	for attempt := 0; attempt <= s.pagingPollAttempts; attempt++ {
		if len(h.Thread().Messages) != count {
			return true, nil
		}
		if attempt == s.pagingPollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(s.pagingPollInterval):
		}
	}
	return false, nil
}

func (s *Session) MarkRead(ctx context.Context, threadID string) error {
	return s.threadOp(threadID, "mark read", func(h sdk.ThreadHandler) error {
		return h.MarkRead(ctx)
	})
}

func (s *Session) UpdateName(ctx context.Context, threadID, name string) error {
	if _, err := types.ParseThreadID(threadID); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return types.NewInvalidArgument("thread name is empty", nil)
	}
	return s.threadOp(threadID, "update thread name", func(h sdk.ThreadHandler) error {
		return h.UpdateName(ctx, name)
	})
}

func (s *Session) Archive(ctx context.Context, threadID string) error {
	return s.threadOp(threadID, "archive thread", func(h sdk.ThreadHandler) error {
		return h.Archive(ctx)
	})
}

func (s *Session) EndContact(ctx context.Context, threadID string) error {
	return s.threadOp(threadID, "end contact", func(h sdk.ThreadHandler) error {
		return h.EndContact(ctx)
	})
}

func (s *Session) ReportTypingStart(ctx context.Context, threadID string, typing bool) error {
	return s.threadOp(threadID, "report typing", func(h sdk.ThreadHandler) error {
		return h.ReportTypingStart(ctx, typing)
	})
}

func (s *Session) ThreadCustomFields(threadID string) (map[string]string, error) {
	h, err := s.resolve(threadID)
	if err != nil {
		return nil, err
	}
	return codec.Fields(h.CustomFields()), nil
}

func (s *Session) UpdateThreadCustomFields(ctx context.Context, threadID string, fields map[string]string) error {
	if _, err := types.ParseThreadID(threadID); err != nil {
		return err
	}
	if len(fields) == 0 {
		return types.NewInvalidArgument("custom fields are empty", nil)
	}
	return s.threadOp(threadID, "update thread custom fields", func(h sdk.ThreadHandler) error {
		return h.SetCustomFields(ctx, fields)
	})
}

func (s *Session) cachedThread(id uuid.UUID) (sdk.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.threads {
		if t.ID == id {
			return t, true
		}
	}
	return sdk.Thread{}, false
}

// replaceThreads swaps the whole cached list.
func (s *Session) replaceThreads(threads []sdk.Thread) {
	next := slices.Clone(threads)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = next
}

// storeThread replaces or appends one thread by building a new list.
func (s *Session) storeThread(t sdk.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]sdk.Thread, 0, len(s.threads)+1)
	found := false
	for _, existing := range s.threads {
		if existing.ID == t.ID {
			next = append(next, t)
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		next = append(next, t)
	}
	s.threads = next
}
