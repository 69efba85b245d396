package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/types"
)

func TestCustomer(t *testing.T) {
	s, p, rec := connectedSession(t)
	ctx := context.Background()

	require.NoError(t, s.SetCustomerName(ctx, "Grace", "Hopper"))
	assert.ErrorIs(t, s.SetCustomerIdentity(ctx, "", "Grace", "Hopper"), types.ErrInvalidArgument)
	require.NoError(t, s.SetCustomerIdentity(ctx, "cust-1", "Grace", "Hopper"))
	require.NoError(t, s.ClearCustomerIdentity(ctx))
	assert.ErrorIs(t, s.SetDeviceToken(ctx, ""), types.ErrInvalidArgument)
	require.NoError(t, s.SetDeviceToken(ctx, "apns-token"))
	assert.ErrorIs(t, s.SetAuthorizationCode(ctx, ""), types.ErrInvalidArgument)

	_, err := uuid.Parse(s.VisitorID())
	assert.NoError(t, err)

	assert.Equal(t, map[string]string{}, s.CustomerCustomFields())
	assert.ErrorIs(t, s.SetCustomerCustomFields(ctx, nil), types.ErrInvalidArgument)
	require.NoError(t, s.SetCustomerCustomFields(ctx, map[string]string{"plan": "pro"}))
	assert.Equal(t, map[string]string{"plan": "pro"}, s.CustomerCustomFields())
	assert.Len(t, rec.Named(events.CustomerCustomFieldsSet), 1)

	assert.Equal(t, 1, p.Calls("SetIdentity"))
	assert.Equal(t, 1, p.Calls("SetDeviceToken"))
}

func TestAnalytics(t *testing.T) {
	s, p, _ := connectedSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.ViewPage(ctx, "", "/home"), types.ErrInvalidArgument)
	assert.ErrorIs(t, s.ViewPageEnded(ctx, "Home", ""), types.ErrInvalidArgument)
	assert.ErrorIs(t, s.Conversion(ctx, "", 1), types.ErrInvalidArgument)

	require.NoError(t, s.ViewPage(ctx, "Home", "/home"))
	require.NoError(t, s.ViewPageEnded(ctx, "Home", "/home"))
	require.NoError(t, s.ChatWindowOpen(ctx))
	require.NoError(t, s.Conversion(ctx, "purchase", 42.5))

	got := p.AnalyticsEvents()
	require.Len(t, got, 4)
	assert.Equal(t, "purchase", got[3].Title)
	assert.Equal(t, 42.5, got[3].Value)
}

func TestDelegate_RuntimeErrorsAreEmitted(t *testing.T) {
	s, p, rec := connectedSession(t)
	rec.Reset()

	p.ReportError(errors.New("token expired"))

	errs := connectionErrors(rec)
	require.Len(t, errs, 1)
	assert.Equal(t, "runtime", errs[0].Phase)
	assert.Equal(t, "token expired", errs[0].Message)
	require.Len(t, rec.Named(events.Error), 1)
	assert.Equal(t, events.ErrorPayload{Message: "token expired"}, rec.Named(events.Error)[0].Payload)
	assert.True(t, s.IsConnected())
}

func TestDelegate_Callbacks(t *testing.T) {
	s, p, rec := connectedSession(t)
	rec.Reset()

	p.CustomEvent([]byte("ping"))
	p.FailTokenRefresh()
	actionID := uuid.New()
	p.ProactivePopup(actionID, map[string]any{"variables": map[string]any{"discount": 10}, "raw": []byte{1}})
	s.OnAgentTyping(true, uuid.MustParse(fixtureThreadID), nil)
	p.DropConnection()

	custom := rec.Named(events.CustomEventMessage)
	require.Len(t, custom, 1)
	assert.Equal(t, events.CustomEventMessagePayload{Base64: "cGluZw=="}, custom[0].Payload)
	assert.Len(t, rec.Named(events.TokenRefreshFailed), 1)
	assert.Len(t, rec.Named(events.UnexpectedDisconnect), 1)

	popup := rec.Named(events.ProactivePopupAction)
	require.Len(t, popup, 1)
	pp := popup[0].Payload.(events.ProactivePopupActionPayload)
	assert.Equal(t, actionID.String(), pp.ActionID)
	assert.Equal(t, "AQ==", pp.Data["raw"])

	typing := rec.Named(events.AgentTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, events.AgentTypingPayload{IsTyping: true, ThreadID: fixtureThreadID}, typing[0].Payload)
}

func TestDelegate_ThreadsUpdatedReplacesCache(t *testing.T) {
	s, _, rec := connectedSession(t)
	rec.Reset()

	s.OnThreadsUpdated(nil)
	assert.ErrorIs(t, s.MarkRead(context.Background(), fixtureThreadID), types.ErrThreadNotFound)

	got := rec.Named(events.ThreadsUpdated)
	require.Len(t, got, 1)
	assert.Equal(t, events.ThreadsUpdatedPayload{ThreadIDs: []string{}, Threads: []codec.Thread{}}, got[0].Payload)
}
