package session

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/types"
)

const fixtureThreadID = "0b1c5a62-53b4-4f53-b6a1-2fe0f1e7c4d1"

func TestThreadOps_UnknownThreadMakesNoVendorCall(t *testing.T) {
	s, p, rec := connectedSession(t)
	ctx := context.Background()
	unknown := uuid.NewString()
	file := Attachment{MimeType: "image/png", FileName: "a.png"}

	ops := map[string]func() error{
		"MarkRead":   func() error { return s.MarkRead(ctx, unknown) },
		"SendText":   func() error { return s.SendText(ctx, unknown, "hi") },
		"Archive":    func() error { return s.Archive(ctx, unknown) },
		"UpdateName": func() error { return s.UpdateName(ctx, unknown, "renamed") },
		"EndContact": func() error { return s.EndContact(ctx, unknown) },
		"ReportTypingStart": func() error {
			return s.ReportTypingStart(ctx, unknown, true)
		},
		"LoadMore": func() error {
			_, err := s.LoadMore(ctx, unknown, 5)
			return err
		},
		"ThreadCustomFields": func() error {
			_, err := s.ThreadCustomFields(unknown)
			return err
		},
		"UpdateThreadCustomFields": func() error {
			return s.UpdateThreadCustomFields(ctx, unknown, map[string]string{"k": "v"})
		},
		"SendAttachmentURL": func() error {
			return s.SendAttachmentURL(ctx, unknown, "https://example.com/a.png", file)
		},
		"SendAttachmentBase64": func() error {
			return s.SendAttachmentBase64(ctx, unknown, base64.StdEncoding.EncodeToString([]byte("png")), file)
		},
	}
	for name, op := range ops {
		assert.ErrorIs(t, op(), types.ErrThreadNotFound, name)
	}

	for _, method := range []string{
		"MarkRead", "Send", "Archive", "UpdateName", "EndContact",
		"ReportTypingStart", "LoadMore", "SetThreadCustomFields",
	} {
		assert.Equal(t, 0, p.Calls(method), method)
	}
	assert.Empty(t, connectionErrors(rec))
}

func TestThreadOps_InvalidIDIsRejectedFirst(t *testing.T) {
	s, _, rec := newTestSession(t, fastFixture())
	ctx := context.Background()

	// Not ready either, but the ID is checked before readiness.
	assert.ErrorIs(t, s.MarkRead(ctx, "nope"), types.ErrInvalidArgument)
	assert.ErrorIs(t, s.UpdateName(ctx, "", "x"), types.ErrInvalidArgument)
	_, err := s.LoadMore(ctx, "123", 5)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.Empty(t, rec.Events())
}

func TestThreadOps_ChatNotReady(t *testing.T) {
	s, _, _ := newTestSession(t, fastFixture())
	ctx := context.Background()

	assert.ErrorIs(t, s.MarkRead(ctx, fixtureThreadID), types.ErrChatNotReady)
	_, err := s.CreateThread(ctx, nil)
	assert.ErrorIs(t, err, types.ErrChatNotReady)
	_, err = s.PreChatSurvey(ctx)
	assert.ErrorIs(t, err, types.ErrChatNotReady)
}

func TestCreateThread_Arity(t *testing.T) {
	s, p, _ := connectedSession(t)
	ctx := context.Background()

	plain, err := s.CreateThread(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Calls("Create"))
	assert.Equal(t, 0, p.Calls("CreateWithCustomFields"))
	assert.Equal(t, map[string]string{}, plain.CustomFields)

	withFields, err := s.CreateThread(ctx, map[string]string{"topic": "billing"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Calls("Create"))
	assert.Equal(t, 1, p.Calls("CreateWithCustomFields"))
	assert.Equal(t, "billing", withFields.CustomFields["topic"])

	// New threads are addressable without a refresh.
	require.NoError(t, s.MarkRead(ctx, withFields.ID))
}

func TestSendText(t *testing.T) {
	s, p, rec := connectedSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SendText(ctx, fixtureThreadID, "  "), types.ErrInvalidArgument)
	require.NoError(t, s.SendText(ctx, fixtureThreadID, "where is my parcel?"))
	assert.Equal(t, 1, p.Calls("Send"))

	updates := rec.Named(events.ThreadUpdated)
	require.NotEmpty(t, updates)
	payload := updates[0].Payload.(events.ThreadUpdatedPayload)
	assert.Equal(t, fixtureThreadID, payload.ThreadID)
	assert.Equal(t, "where is my parcel?", payload.Thread.Messages[0].Content.Payload.Text)
}

func TestSendMessage_UnknownContentIsRejected(t *testing.T) {
	s, p, _ := connectedSession(t)

	err := s.SendMessage(context.Background(), fixtureThreadID, codec.Content{Type: codec.ContentUnknown})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.Equal(t, 0, p.Calls("Send"))
}

func TestSendAttachments(t *testing.T) {
	s, p, _ := connectedSession(t)
	ctx := context.Background()
	att := Attachment{MimeType: "image/png", FileName: "a.png"}

	assert.ErrorIs(t, s.SendAttachmentBase64(ctx, fixtureThreadID, "%%%not-base64", att), types.ErrInvalidArgument)
	assert.ErrorIs(t, s.SendAttachmentURL(ctx, fixtureThreadID, "/relative.png", att), types.ErrInvalidArgument)
	assert.ErrorIs(t, s.SendAttachmentURL(ctx, fixtureThreadID, "https://x.test/a.png", Attachment{}), types.ErrInvalidArgument)
	assert.Equal(t, 0, p.Calls("Send"))

	data := base64.StdEncoding.EncodeToString([]byte("\x89PNG"))
	require.NoError(t, s.SendAttachmentBase64(ctx, fixtureThreadID, data, att))
	require.NoError(t, s.SendAttachmentURL(ctx, fixtureThreadID, "https://x.test/a.png", att))
	assert.Equal(t, 2, p.Calls("Send"))
}

func TestLoadMore_StopsWhenNoMorePages(t *testing.T) {
	s, p, _ := connectedSession(t)

	th, err := s.LoadMore(context.Background(), fixtureThreadID, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Calls("LoadMore"))
	assert.False(t, th.HasMoreMessagesToLoad)
	assert.Nil(t, th.ScrollToken)
	// Five distinct messages; the overlapping copy is deduplicated.
	assert.Len(t, th.Messages, 5)
}

func TestLoadMore_LoopsUntilBatchIsFilled(t *testing.T) {
	fx := fastFixture()
	fx.PageSize = 1
	s, p, _ := newTestSession(t, fx)
	require.NoError(t, s.PrepareAndConnect(context.Background(), testEnv))

	th, err := s.LoadMore(context.Background(), fixtureThreadID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Calls("LoadMore"))
	assert.Len(t, th.Messages, 4)
	assert.True(t, th.HasMoreMessagesToLoad)
	require.NotNil(t, th.ScrollToken)
}

func TestLoadMore_BoundedByIterations(t *testing.T) {
	fx := fastFixture()
	fx.PageSize = 1
	s, p, _ := newTestSession(t, fx, WithPaging(1, time.Millisecond, 50))
	require.NoError(t, s.PrepareAndConnect(context.Background(), testEnv))

	_, err := s.LoadMore(context.Background(), fixtureThreadID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Calls("LoadMore"))
}

func TestLoadMore_GivesUpWhenPageNeverArrives(t *testing.T) {
	fx := fastFixture()
	fx.PageDelay = "1h"
	s, p, _ := newTestSession(t, fx, WithPaging(5, time.Millisecond, 3))
	require.NoError(t, s.PrepareAndConnect(context.Background(), testEnv))

	th, err := s.LoadMore(context.Background(), fixtureThreadID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Calls("LoadMore"))
	assert.Len(t, th.Messages, 2)
}

func TestThreadMutations(t *testing.T) {
	s, p, _ := connectedSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.UpdateName(ctx, fixtureThreadID, " "), types.ErrInvalidArgument)
	require.NoError(t, s.UpdateName(ctx, fixtureThreadID, "Renamed"))
	require.NoError(t, s.ReportTypingStart(ctx, fixtureThreadID, true))
	require.NoError(t, s.MarkRead(ctx, fixtureThreadID))

	assert.ErrorIs(t, s.UpdateThreadCustomFields(ctx, fixtureThreadID, nil), types.ErrInvalidArgument)
	require.NoError(t, s.UpdateThreadCustomFields(ctx, fixtureThreadID, map[string]string{"priority": "high"}))
	fields, err := s.ThreadCustomFields(fixtureThreadID)
	require.NoError(t, err)
	assert.Equal(t, "high", fields["priority"])

	require.NoError(t, s.EndContact(ctx, fixtureThreadID))
	require.NoError(t, s.Archive(ctx, fixtureThreadID))

	th, err := s.LoadThread(ctx, fixtureThreadID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", th.Name)
	assert.Equal(t, "closed", th.State)
	assert.Equal(t, 1, p.Calls("ReportTypingStart"))
}

func TestLoadThreads(t *testing.T) {
	s, p, _ := connectedSession(t)

	threads, err := s.LoadThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, fixtureThreadID, threads[0].ID)
	assert.Equal(t, 1, p.Calls("Refresh"))

	_, err = s.LoadThread(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, types.ErrThreadNotFound)
}

func TestPreChatSurvey(t *testing.T) {
	fx := fastFixture()
	fx.Survey = nil
	s, _, _ := newTestSession(t, fx)
	require.NoError(t, s.PrepareAndConnect(context.Background(), testEnv))

	survey, err := s.PreChatSurvey(context.Background())
	require.NoError(t, err)
	assert.Nil(t, survey)
}
