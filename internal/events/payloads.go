package events

import "github.com/user/chatbridge/internal/codec"

// Empty is the payload of events that carry no data. It encodes as {}.
type Empty struct{}

type ChatUpdatedPayload struct {
	State string `json:"state"`
	Mode  string `json:"mode"`
}

type ThreadUpdatedPayload struct {
	ThreadID string       `json:"threadId"`
	Thread   codec.Thread `json:"thread"`
}

type ThreadsUpdatedPayload struct {
	ThreadIDs []string       `json:"threadIds"`
	Threads   []codec.Thread `json:"threads"`
}

type AgentTypingPayload struct {
	IsTyping bool         `json:"isTyping"`
	ThreadID string       `json:"threadId"`
	Agent    *codec.Agent `json:"agent,omitempty"`
}

type CustomEventMessagePayload struct {
	Base64 string `json:"base64"`
}

type AuthorizationChangedPayload struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Verifier string `json:"verifier"`
}

type ConnectionErrorPayload struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ProactivePopupActionPayload struct {
	ActionID string         `json:"actionId"`
	Data     map[string]any `json:"data"`
}
