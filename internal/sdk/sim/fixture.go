package sim

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/user/chatbridge/internal/sdk"
)

// Fixture describes a simulated channel: its configuration, the threads
// and history that exist before the first connect, and the timings of
// the simulated state machine.
type Fixture struct {
	Mode          string          `yaml:"mode"`
	PrepareDelay  string          `yaml:"prepare_delay"` // e.g. "50ms"
	ConnectDelay  string          `yaml:"connect_delay"` // e.g. "50ms"
	PageDelay     string          `yaml:"page_delay"`    // delay before a LoadMore page lands
	PageSize      int             `yaml:"page_size"`     // messages per LoadMore page
	FailPrepare   bool            `yaml:"fail_prepare"`  // fall back to initial after preparing
	FailConnect   bool            `yaml:"fail_connect"`  // drop to connectionLost after connecting
	VisitorID     string          `yaml:"visitor_id"`
	AutoReply     string          `yaml:"auto_reply"` // agent reply to every customer text
	Agent         FixtureAgent    `yaml:"agent"`
	Configuration FixtureConfig   `yaml:"configuration"`
	Survey        *FixtureSurvey  `yaml:"pre_chat_survey"`
	Threads       []FixtureThread `yaml:"threads"`
}

type FixtureAgent struct {
	ID        int    `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	NickName  string `yaml:"nick_name"`
	IsBot     bool   `yaml:"is_bot"`
	ImageURL  string `yaml:"image_url"`
}

type FixtureConfig struct {
	MultipleThreads  bool            `yaml:"multiple_threads"`
	ProactiveChat    bool            `yaml:"proactive_chat"`
	Authorization    bool            `yaml:"authorization"`
	LiveChat         bool            `yaml:"live_chat"`
	AttachmentsLimit int             `yaml:"attachments_limit"`
	AllowedMimeTypes []string        `yaml:"allowed_mime_types"`
	Features         map[string]bool `yaml:"features"`
}

type FixtureSurvey struct {
	Name   string         `yaml:"name"`
	Fields []FixtureField `yaml:"fields"`
}

type FixtureField struct {
	Ident    string   `yaml:"ident"`
	Label    string   `yaml:"label"`
	Kind     string   `yaml:"kind"`
	Required bool     `yaml:"required"`
	Options  []string `yaml:"options"`
}

type FixtureThread struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	CustomFields map[string]string `yaml:"custom_fields"`
	Loaded       int               `yaml:"loaded"` // newest messages visible before the first LoadMore
	Messages     []FixtureMessage  `yaml:"messages"`
}

// FixtureMessage is one history entry. Age is how long before load time
// the message was created.
type FixtureMessage struct {
	Text      string `yaml:"text"`
	HTML      string `yaml:"html"` // unsupported content with an HTML fallback
	Direction string `yaml:"direction"`
	Age       string `yaml:"age"`
}

// LoadFixture reads a YAML fixture. Environment variables in the file are
// expanded before parsing.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("sim: load fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return Fixture{}, fmt.Errorf("sim: parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// DefaultFixture is a small multithread channel with one thread holding
// two pages of history.
func DefaultFixture() Fixture {
	return Fixture{
		Mode:         string(sdk.ModeMultiThread),
		PrepareDelay: "20ms",
		ConnectDelay: "20ms",
		PageDelay:    "10ms",
		PageSize:     3,
		AutoReply:    "Thanks, an agent will be with you shortly.",
		Agent:        FixtureAgent{ID: 1, FirstName: "Ada", LastName: "Agent", NickName: "ada"},
		Configuration: FixtureConfig{
			MultipleThreads:  true,
			AttachmentsLimit: 10 << 20,
			AllowedMimeTypes: []string{"image/png", "image/jpeg", "application/pdf"},
			Features:         map[string]bool{"liveChatLogoHidden": false},
		},
		Threads: []FixtureThread{{
			ID:     "0b1c5a62-53b4-4f53-b6a1-2fe0f1e7c4d1",
			Name:   "Order question",
			Loaded: 2,
			Messages: []FixtureMessage{
				{Text: "Hi, where is my order?", Direction: string(sdk.ToAgent), Age: "50m"},
				{Text: "Let me check.", Direction: string(sdk.ToClient), Age: "49m"},
				{Text: "It ships tomorrow.", Direction: string(sdk.ToClient), Age: "45m"},
				{Text: "Great, thanks", Direction: string(sdk.ToAgent), Age: "44m"},
				{HTML: "<p>Rate <b>us</b></p>", Direction: string(sdk.ToClient), Age: "40m"},
			},
		}},
	}
}

func (f Fixture) Validate() error {
	switch sdk.ChatMode(f.Mode) {
	case "", sdk.ModeSingleThread, sdk.ModeMultiThread, sdk.ModeLiveChat:
	default:
		return fmt.Errorf("sim: fixture: unknown mode %q", f.Mode)
	}
	for _, d := range []string{f.PrepareDelay, f.ConnectDelay, f.PageDelay} {
		if _, err := parseDelay(d); err != nil {
			return fmt.Errorf("sim: fixture: %w", err)
		}
	}
	if f.VisitorID != "" {
		if _, err := uuid.Parse(f.VisitorID); err != nil {
			return fmt.Errorf("sim: fixture: visitor_id: %w", err)
		}
	}
	seen := make(map[string]struct{}, len(f.Threads))
	for _, t := range f.Threads {
		if _, err := uuid.Parse(t.ID); err != nil {
			return fmt.Errorf("sim: fixture: thread %q: %w", t.Name, err)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("sim: fixture: duplicate thread id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		for _, m := range t.Messages {
			if _, err := parseDelay(m.Age); err != nil {
				return fmt.Errorf("sim: fixture: thread %q: %w", t.Name, err)
			}
		}
	}
	return nil
}

func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func (f Fixture) configuration() *sdk.ChannelConfiguration {
	types := make([]sdk.AllowedFileType, 0, len(f.Configuration.AllowedMimeTypes))
	for _, mt := range f.Configuration.AllowedMimeTypes {
		types = append(types, sdk.AllowedFileType{MimeType: mt})
	}
	return &sdk.ChannelConfiguration{
		HasMultipleThreadsPerEndUser: f.Configuration.MultipleThreads,
		IsProactiveChatEnabled:       f.Configuration.ProactiveChat,
		IsAuthorizationEnabled:       f.Configuration.Authorization,
		IsLiveChat:                   f.Configuration.LiveChat,
		FileRestrictions: sdk.FileRestrictions{
			AllowedFileSize:      f.Configuration.AttachmentsLimit,
			AllowedFileTypes:     types,
			IsAttachmentsEnabled: f.Configuration.AttachmentsLimit > 0,
		},
		Features:      f.Configuration.Features,
		PreChatSurvey: f.survey(),
	}
}

func (f Fixture) survey() *sdk.PreChatSurvey {
	if f.Survey == nil {
		return nil
	}
	out := &sdk.PreChatSurvey{Name: f.Survey.Name}
	for _, fld := range f.Survey.Fields {
		sf := sdk.SurveyField{
			Ident:    fld.Ident,
			Label:    fld.Label,
			Kind:     sdk.SurveyFieldKind(fld.Kind),
			Required: fld.Required,
		}
		if sf.Kind == "" {
			sf.Kind = sdk.SurveyText
		}
		for _, o := range fld.Options {
			sf.Options = append(sf.Options, sdk.SurveyOption{ID: o, Label: o})
		}
		out.Fields = append(out.Fields, sf)
	}
	return out
}

func (a FixtureAgent) agent() *sdk.Agent {
	if a.ID == 0 && a.FirstName == "" {
		return nil
	}
	return &sdk.Agent{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		NickName:  a.NickName,
		IsBot:     a.IsBot,
		ImageURL:  a.ImageURL,
	}
}

// history builds the thread's messages oldest first.
func (t FixtureThread) history(now time.Time, agent *sdk.Agent) []sdk.Message {
	id := uuid.MustParse(t.ID)
	out := make([]sdk.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		age, _ := parseDelay(m.Age)
		msg := sdk.Message{
			ID:        uuid.New(),
			ThreadID:  id,
			CreatedAt: now.Add(-age),
			Direction: sdk.Direction(m.Direction),
		}
		if msg.Direction == "" {
			msg.Direction = sdk.ToClient
		}
		if m.HTML != "" {
			msg.Content = sdk.UnsupportedContent{Kind: "adaptiveCard", FallbackText: m.HTML}
		} else {
			msg.Content = sdk.TextContent{Text: m.Text}
		}
		if msg.Direction == sdk.ToClient {
			msg.Author = agent
		}
		out = append(out, msg)
	}
	return out
}
