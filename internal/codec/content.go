package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/types"
)

// ContentType tags a message content variant.
type ContentType string

const (
	ContentText         ContentType = "text"
	ContentRichLink     ContentType = "richLink"
	ContentQuickReplies ContentType = "quickReplies"
	ContentListPicker   ContentType = "listPicker"
	ContentUnknown      ContentType = "unknown"
)

const defaultFallbackText = "Unsupported message"

// Content is the wire form of a message body: text carries a payload,
// the structured variants carry data, unknown carries only fallback text.
type Content struct {
	Type         ContentType  `json:"type"`
	Payload      *TextPayload `json:"payload,omitempty"`
	Data         any          `json:"data,omitempty"`
	FallbackText string       `json:"fallbackText,omitempty"`
}

type TextPayload struct {
	Text     string  `json:"text"`
	Postback *string `json:"postback"`
}

type RichLinkData struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	FallbackText string `json:"fallbackText,omitempty"`
	Media        Media  `json:"media"`
}

type Media struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

type QuickRepliesData struct {
	Title        string   `json:"title"`
	FallbackText string   `json:"fallbackText,omitempty"`
	Buttons      []Button `json:"buttons"`
}

type ListPickerData struct {
	Title        string   `json:"title"`
	Text         string   `json:"text"`
	FallbackText string   `json:"fallbackText,omitempty"`
	Buttons      []Button `json:"buttons"`
}

type Button struct {
	Text        string  `json:"text"`
	Postback    *string `json:"postback"`
	Description string  `json:"description,omitempty"`
	IconURL     string  `json:"iconUrl,omitempty"`
}

// EncodeContent converts vendor content. It never fails: anything it does
// not recognise becomes ContentUnknown.
func EncodeContent(c sdk.Content) Content {
	switch v := c.(type) {
	case sdk.TextContent:
		return Content{Type: ContentText, Payload: &TextPayload{Text: v.Text, Postback: v.Postback}}
	case *sdk.TextContent:
		if v == nil {
			break
		}
		return EncodeContent(*v)
	case sdk.RichLinkContent:
		return Content{Type: ContentRichLink, Data: &RichLinkData{
			Title:        v.Title,
			URL:          v.URL,
			FallbackText: v.FallbackText,
			Media:        Media{URL: v.MediaURL, MimeType: v.MimeType, FileName: v.FileName},
		}}
	case sdk.QuickRepliesContent:
		return Content{Type: ContentQuickReplies, Data: &QuickRepliesData{
			Title:        v.Title,
			FallbackText: v.FallbackText,
			Buttons:      encodeButtons(v.Buttons),
		}}
	case sdk.ListPickerContent:
		return Content{Type: ContentListPicker, Data: &ListPickerData{
			Title:        v.Title,
			Text:         v.Text,
			FallbackText: v.FallbackText,
			Buttons:      encodeButtons(v.Buttons),
		}}
	case sdk.UnsupportedContent:
		return Content{Type: ContentUnknown, FallbackText: FallbackText(v.FallbackText)}
	}
	return Content{Type: ContentUnknown, FallbackText: defaultFallbackText}
}

func encodeButtons(in []sdk.ReplyButton) []Button {
	out := make([]Button, 0, len(in))
	for _, b := range in {
		out = append(out, Button{Text: b.Text, Postback: b.Postback, Description: b.Description, IconURL: b.IconURL})
	}
	return out
}

// FallbackText renders vendor fallback text for display. Vendor fallback
// text is sometimes HTML; it is converted to markdown.
func FallbackText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultFallbackText
	}
	if !strings.Contains(s, "<") {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil || strings.TrimSpace(md) == "" {
		return s
	}
	return strings.TrimSpace(md)
}

type rawContent struct {
	Type         ContentType     `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Data         json.RawMessage `json:"data"`
	FallbackText string          `json:"fallbackText"`
}

// DecodeContent parses the wire form produced by EncodeContent.
func DecodeContent(raw []byte) (Content, error) {
	var rc rawContent
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Content{}, types.NewInvalidArgument("malformed message content", err)
	}

	out := Content{Type: rc.Type, FallbackText: rc.FallbackText}
	switch rc.Type {
	case ContentText:
		var p TextPayload
		if err := decodePart(rc.Payload, &p); err != nil {
			return Content{}, err
		}
		out.Payload = &p
	case ContentRichLink:
		var d RichLinkData
		if err := decodePart(rc.Data, &d); err != nil {
			return Content{}, err
		}
		out.Data = &d
	case ContentQuickReplies:
		var d QuickRepliesData
		if err := decodePart(rc.Data, &d); err != nil {
			return Content{}, err
		}
		out.Data = &d
	case ContentListPicker:
		var d ListPickerData
		if err := decodePart(rc.Data, &d); err != nil {
			return Content{}, err
		}
		out.Data = &d
	case ContentUnknown:
	default:
		return Content{}, types.NewInvalidArgument(fmt.Sprintf("unsupported content type %q", rc.Type), nil)
	}
	return out, nil
}

func decodePart(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return types.NewInvalidArgument("message content body is missing", nil)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return types.NewInvalidArgument("malformed message content body", err)
	}
	return nil
}

// Vendor converts decoded content into the vendor type sent to the SDK.
// Unknown content cannot be sent.
func (c Content) Vendor() (sdk.Content, error) {
	switch c.Type {
	case ContentText:
		if c.Payload == nil {
			return nil, types.NewInvalidArgument("text content requires a payload", nil)
		}
		return sdk.TextContent{Text: c.Payload.Text, Postback: c.Payload.Postback}, nil
	case ContentRichLink:
		d, ok := c.Data.(*RichLinkData)
		if !ok {
			break
		}
		return sdk.RichLinkContent{
			Title:        d.Title,
			URL:          d.URL,
			FallbackText: d.FallbackText,
			MediaURL:     d.Media.URL,
			MimeType:     d.Media.MimeType,
			FileName:     d.Media.FileName,
		}, nil
	case ContentQuickReplies:
		d, ok := c.Data.(*QuickRepliesData)
		if !ok {
			break
		}
		return sdk.QuickRepliesContent{Title: d.Title, FallbackText: d.FallbackText, Buttons: vendorButtons(d.Buttons)}, nil
	case ContentListPicker:
		d, ok := c.Data.(*ListPickerData)
		if !ok {
			break
		}
		return sdk.ListPickerContent{Title: d.Title, Text: d.Text, FallbackText: d.FallbackText, Buttons: vendorButtons(d.Buttons)}, nil
	}
	return nil, types.NewInvalidArgument(fmt.Sprintf("content type %q cannot be sent", c.Type), nil)
}

func vendorButtons(in []Button) []sdk.ReplyButton {
	out := make([]sdk.ReplyButton, 0, len(in))
	for _, b := range in {
		out = append(out, sdk.ReplyButton{Text: b.Text, Postback: b.Postback, Description: b.Description, IconURL: b.IconURL})
	}
	return out
}
