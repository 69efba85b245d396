package sdk

// Content is the body of a message. The SDK grows new content kinds over
// time, so callers must tolerate implementations they do not know.
type Content interface {
	contentKind() string
}

type TextContent struct {
	Text     string
	Postback *string
}

type RichLinkContent struct {
	Title        string
	URL          string
	FallbackText string
	MediaURL     string
	MimeType     string
	FileName     string
}

type QuickRepliesContent struct {
	Title        string
	FallbackText string
	Buttons      []ReplyButton
}

type ListPickerContent struct {
	Title        string
	Text         string
	FallbackText string
	Buttons      []ReplyButton
}

type ReplyButton struct {
	Text        string
	Postback    *string
	Description string
	IconURL     string
}

// UnsupportedContent is any content kind the SDK could not type. Its
// fallback text may contain HTML.
type UnsupportedContent struct {
	Kind         string
	FallbackText string
}

func (TextContent) contentKind() string         { return "text" }
func (RichLinkContent) contentKind() string     { return "richLink" }
func (QuickRepliesContent) contentKind() string { return "quickReplies" }
func (ListPickerContent) contentKind() string   { return "listPicker" }
func (UnsupportedContent) contentKind() string  { return "unsupported" }
