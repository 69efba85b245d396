package sim

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/user/chatbridge/internal/sdk"
)

type customer struct {
	p *Provider

	mu           sync.Mutex
	firstName    string
	lastName     string
	identity     string
	deviceToken  string
	authCode     string
	codeVerifier string
	visitorID    uuid.UUID
	fields       map[string]string
}

func newCustomer(p *Provider, visitorID string) *customer {
	c := &customer{p: p, fields: map[string]string{}}
	if visitorID != "" {
		c.visitorID = uuid.MustParse(visitorID)
	}
	return c
}

func (c *customer) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.firstName, c.lastName, c.identity = "", "", ""
	c.authCode, c.codeVerifier = "", ""
	c.fields = map[string]string{}
}

func (c *customer) set(method string, fn func()) error {
	c.p.mu.Lock()
	c.p.record(method)
	c.p.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	return nil
}

func (c *customer) SetName(_ context.Context, firstName, lastName string) error {
	return c.set("SetName", func() { c.firstName, c.lastName = firstName, lastName })
}

func (c *customer) SetIdentity(_ context.Context, id, firstName, lastName string) error {
	return c.set("SetIdentity", func() {
		c.identity, c.firstName, c.lastName = id, firstName, lastName
	})
}

func (c *customer) ClearIdentity(_ context.Context) error {
	return c.set("ClearIdentity", func() {
		c.identity, c.firstName, c.lastName = "", "", ""
	})
}

func (c *customer) SetDeviceToken(_ context.Context, token string) error {
	return c.set("SetDeviceToken", func() { c.deviceToken = token })
}

func (c *customer) SetAuthorizationCode(_ context.Context, code string) error {
	return c.set("SetAuthorizationCode", func() { c.authCode = code })
}

func (c *customer) SetCodeVerifier(_ context.Context, verifier string) error {
	return c.set("SetCodeVerifier", func() { c.codeVerifier = verifier })
}

// VisitorID is assigned on first connect unless the fixture fixed one.
func (c *customer) VisitorID() (uuid.UUID, bool) {
	c.p.mu.Lock()
	connected := c.p.connectedLocked()
	c.p.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visitorID == uuid.Nil && connected {
		c.visitorID = uuid.New()
	}
	return c.visitorID, c.visitorID != uuid.Nil
}

func (c *customer) CustomFields() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.fields)
}

func (c *customer) SetCustomFields(_ context.Context, fields map[string]string) error {
	_ = c.set("SetCustomerCustomFields", func() { maps.Copy(c.fields, fields) })
	c.p.withDelegate(func(d sdk.Delegate) { d.OnCustomerCustomFieldsSet() })
	return nil
}

// PageView is one recorded analytics call.
type PageView struct {
	Event string
	Title string
	URL   string
	Value float64
}

type analytics struct {
	p *Provider

	mu     sync.Mutex
	events []PageView
}

func (a *analytics) add(v PageView) error {
	a.p.mu.Lock()
	a.p.record(v.Event)
	a.p.mu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, v)
	return nil
}

func (a *analytics) ViewPage(_ context.Context, title, url string) error {
	return a.add(PageView{Event: "ViewPage", Title: title, URL: url})
}

func (a *analytics) ViewPageEnded(_ context.Context, title, url string) error {
	return a.add(PageView{Event: "ViewPageEnded", Title: title, URL: url})
}

func (a *analytics) ChatWindowOpen(_ context.Context) error {
	return a.add(PageView{Event: "ChatWindowOpen"})
}

func (a *analytics) Conversion(_ context.Context, kind string, value float64) error {
	return a.add(PageView{Event: "Conversion", Title: kind, Value: value})
}

// AnalyticsEvents returns the analytics calls recorded so far.
func (p *Provider) AnalyticsEvents() []PageView {
	p.analytics.mu.Lock()
	defer p.analytics.mu.Unlock()
	out := make([]PageView, len(p.analytics.events))
	copy(out, p.analytics.events)
	return out
}
