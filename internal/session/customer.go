package session

import (
	"context"
	"strings"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/types"
)

const (
	authPending = "pending"
	authReady   = "ready"
	authCleared = "cleared"
)

func (s *Session) SetCustomerName(ctx context.Context, firstName, lastName string) error {
	if err := s.provider.Customer().SetName(ctx, firstName, lastName); err != nil {
		return types.NewVendorError("set customer name", err)
	}
	return nil
}

func (s *Session) SetCustomerIdentity(ctx context.Context, id, firstName, lastName string) error {
	if strings.TrimSpace(id) == "" {
		return types.NewInvalidArgument("customer id is required", nil)
	}
	if err := s.provider.Customer().SetIdentity(ctx, id, firstName, lastName); err != nil {
		return types.NewVendorError("set customer identity", err)
	}
	return nil
}

func (s *Session) ClearCustomerIdentity(ctx context.Context) error {
	if err := s.provider.Customer().ClearIdentity(ctx); err != nil {
		return types.NewVendorError("clear customer identity", err)
	}
	return nil
}

func (s *Session) SetDeviceToken(ctx context.Context, token string) error {
	if token == "" {
		return types.NewInvalidArgument("device token is required", nil)
	}
	if err := s.provider.Customer().SetDeviceToken(ctx, token); err != nil {
		return types.NewVendorError("set device token", err)
	}
	return nil
}

// SetAuthorizationCode forwards the OAuth code and emits
// authorizationChanged with the pending pair.
func (s *Session) SetAuthorizationCode(ctx context.Context, code string) error {
	if code == "" {
		return types.NewInvalidArgument("authorization code is required", nil)
	}
	if err := s.provider.Customer().SetAuthorizationCode(ctx, code); err != nil {
		return types.NewVendorError("set authorization code", err)
	}
	s.updateAuth(func(a *authorization) { a.code = code })
	return nil
}

func (s *Session) SetCodeVerifier(ctx context.Context, verifier string) error {
	if verifier == "" {
		return types.NewInvalidArgument("code verifier is required", nil)
	}
	if err := s.provider.Customer().SetCodeVerifier(ctx, verifier); err != nil {
		return types.NewVendorError("set code verifier", err)
	}
	s.updateAuth(func(a *authorization) { a.verifier = verifier })
	return nil
}

func (s *Session) updateAuth(fn func(*authorization)) {
	s.mu.Lock()
	fn(&s.auth)
	a := s.auth
	s.mu.Unlock()

	status := authPending
	if a.code != "" && a.verifier != "" {
		status = authReady
	}
	s.emitter.Emit(events.AuthorizationChanged, events.AuthorizationChangedPayload{
		Status:   status,
		Code:     a.code,
		Verifier: a.verifier,
	})
}

// VisitorID returns the SDK visitor identifier, or "" before one exists.
func (s *Session) VisitorID() string {
	id, ok := s.provider.Customer().VisitorID()
	if !ok {
		return ""
	}
	return codec.ID(id)
}

func (s *Session) CustomerCustomFields() map[string]string {
	return codec.Fields(s.provider.Customer().CustomFields())
}

func (s *Session) SetCustomerCustomFields(ctx context.Context, fields map[string]string) error {
	if len(fields) == 0 {
		return types.NewInvalidArgument("custom fields are empty", nil)
	}
	if err := s.provider.Customer().SetCustomFields(ctx, fields); err != nil {
		return types.NewVendorError("set customer custom fields", err)
	}
	return nil
}

func (s *Session) ViewPage(ctx context.Context, title, url string) error {
	if title == "" || url == "" {
		return types.NewInvalidArgument("page title and url are required", nil)
	}
	if err := s.provider.Analytics().ViewPage(ctx, title, url); err != nil {
		return types.NewVendorError("view page", err)
	}
	return nil
}

func (s *Session) ViewPageEnded(ctx context.Context, title, url string) error {
	if title == "" || url == "" {
		return types.NewInvalidArgument("page title and url are required", nil)
	}
	if err := s.provider.Analytics().ViewPageEnded(ctx, title, url); err != nil {
		return types.NewVendorError("view page ended", err)
	}
	return nil
}

func (s *Session) ChatWindowOpen(ctx context.Context) error {
	if err := s.provider.Analytics().ChatWindowOpen(ctx); err != nil {
		return types.NewVendorError("chat window open", err)
	}
	return nil
}

func (s *Session) Conversion(ctx context.Context, kind string, value float64) error {
	if kind == "" {
		return types.NewInvalidArgument("conversion type is required", nil)
	}
	if err := s.provider.Analytics().Conversion(ctx, kind, value); err != nil {
		return types.NewVendorError("conversion", err)
	}
	return nil
}
