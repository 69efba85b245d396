package codec

import (
	"cmp"
	"slices"
	"strings"

	"github.com/user/chatbridge/internal/sdk"
)

type Agent struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	NickName  string `json:"nickname,omitempty"`
	FullName  string `json:"fullName"`
	IsBotUser bool   `json:"isBotUser"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type Attachment struct {
	URL          string `json:"url"`
	FriendlyName string `json:"friendlyName"`
	MimeType     string `json:"mimeType"`
	FileName     string `json:"fileName"`
}

type UserStatistics struct {
	SeenAt *int64 `json:"seenAt"`
	ReadAt *int64 `json:"readAt"`
}

type Message struct {
	ID             string         `json:"id"`
	ThreadID       string         `json:"threadId"`
	CreatedAt      int64          `json:"createdAt"`
	Direction      string         `json:"direction"`
	Content        Content        `json:"content"`
	Attachments    []Attachment   `json:"attachments"`
	UserStatistics UserStatistics `json:"userStatistics"`
	AuthorAgent    *Agent         `json:"authorAgent,omitempty"`
}

// Thread is the wire form of a chat thread. ScrollToken is present only
// while the SDK reports more pages, so callers never page on a stale token.
type Thread struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	State                 string            `json:"state"`
	AssignedAgent         *Agent            `json:"assignedAgent"`
	LastAssignedAgent     *Agent            `json:"lastAssignedAgent,omitempty"`
	CustomFields          map[string]string `json:"customFields"`
	HasMoreMessagesToLoad bool              `json:"hasMoreMessagesToLoad"`
	ScrollToken           *string           `json:"scrollToken,omitempty"`
	Messages              []Message         `json:"messages"`
}

func EncodeAgent(a *sdk.Agent) *Agent {
	if a == nil {
		return nil
	}
	full := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if full == "" {
		full = a.NickName
	}
	return &Agent{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		NickName:  a.NickName,
		FullName:  full,
		IsBotUser: a.IsBot,
		ImageURL:  a.ImageURL,
	}
}

func EncodeMessage(m sdk.Message) Message {
	attachments := make([]Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, Attachment{
			URL:          a.URL,
			FriendlyName: a.FriendlyName,
			MimeType:     a.MimeType,
			FileName:     a.FileName,
		})
	}
	return Message{
		ID:          ID(m.ID),
		ThreadID:    ID(m.ThreadID),
		CreatedAt:   Millis(m.CreatedAt),
		Direction:   string(m.Direction),
		Content:     EncodeContent(m.Content),
		Attachments: attachments,
		UserStatistics: UserStatistics{
			SeenAt: MillisPtr(m.Statistics.SeenAt),
			ReadAt: MillisPtr(m.Statistics.ReadAt),
		},
		AuthorAgent: EncodeAgent(m.Author),
	}
}

// NormalizeMessages deduplicates by message ID, keeping the copy with the
// latest creation time, and orders the result newest first.
func NormalizeMessages(in []sdk.Message) []sdk.Message {
	byID := make(map[string]int, len(in))
	out := make([]sdk.Message, 0, len(in))
	for _, m := range in {
		key := m.ID.String()
		if i, ok := byID[key]; ok {
			if m.CreatedAt.After(out[i].CreatedAt) {
				out[i] = m
			}
			continue
		}
		byID[key] = len(out)
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b sdk.Message) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

func EncodeThread(t sdk.Thread) Thread {
	msgs := NormalizeMessages(t.Messages)
	encoded := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		encoded = append(encoded, EncodeMessage(m))
	}

	out := Thread{
		ID:                    ID(t.ID),
		Name:                  t.Name,
		State:                 strings.ToLower(string(t.State)),
		AssignedAgent:         EncodeAgent(t.AssignedAgent),
		LastAssignedAgent:     EncodeAgent(t.LastAssignedAgent),
		CustomFields:          Fields(t.CustomFields),
		HasMoreMessagesToLoad: t.HasMoreMessagesToLoad,
		Messages:              encoded,
	}
	if t.HasMoreMessagesToLoad {
		token := t.ScrollToken
		out.ScrollToken = &token
	}
	return out
}

func EncodeThreads(in []sdk.Thread) []Thread {
	out := make([]Thread, 0, len(in))
	for _, t := range in {
		out = append(out, EncodeThread(t))
	}
	return out
}

// ThreadIDs returns the stringified IDs of threads in order.
func ThreadIDs(in []sdk.Thread) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = append(out, ID(t.ID))
	}
	return out
}
