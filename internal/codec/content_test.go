package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/chatbridge/internal/sdk"
	"github.com/user/chatbridge/internal/types"
)

func TestEncodeContent_TextRoundTrip(t *testing.T) {
	encoded := EncodeContent(sdk.TextContent{Text: "hi"})

	raw, err := json.Marshal(encoded)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","payload":{"text":"hi","postback":null}}`, string(raw))

	decoded, err := DecodeContent(raw)
	require.NoError(t, err)
	assert.Equal(t, encoded, decoded)

	back, err := decoded.Vendor()
	require.NoError(t, err)
	assert.Equal(t, sdk.TextContent{Text: "hi"}, back)
}

func TestEncodeContent_RichLink(t *testing.T) {
	encoded := EncodeContent(sdk.RichLinkContent{
		Title:    "Docs",
		URL:      "https://example.com/docs",
		MediaURL: "https://example.com/logo.png",
		MimeType: "image/png",
		FileName: "logo.png",
	})

	raw, err := json.Marshal(encoded)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"richLink",
		"data":{"title":"Docs","url":"https://example.com/docs",
			"media":{"url":"https://example.com/logo.png","mimeType":"image/png","fileName":"logo.png"}}
	}`, string(raw))

	decoded, err := DecodeContent(raw)
	require.NoError(t, err)
	assert.Equal(t, encoded, decoded)
}

func TestEncodeContent_QuickRepliesAndListPicker(t *testing.T) {
	yes := "yes"
	qr := EncodeContent(sdk.QuickRepliesContent{
		Title:   "Continue?",
		Buttons: []sdk.ReplyButton{{Text: "Yes", Postback: &yes}, {Text: "No"}},
	})
	assert.Equal(t, ContentQuickReplies, qr.Type)
	data := qr.Data.(*QuickRepliesData)
	require.Len(t, data.Buttons, 2)
	assert.Equal(t, "yes", *data.Buttons[0].Postback)
	assert.Nil(t, data.Buttons[1].Postback)

	lp := EncodeContent(sdk.ListPickerContent{Title: "Pick", Text: "one of", Buttons: []sdk.ReplyButton{{Text: "A"}}})
	assert.Equal(t, ContentListPicker, lp.Type)
	raw, err := json.Marshal(lp)
	require.NoError(t, err)
	decoded, err := DecodeContent(raw)
	require.NoError(t, err)
	assert.Equal(t, lp, decoded)
}

func TestEncodeContent_UnknownNeverFails(t *testing.T) {
	assert.Equal(t, Content{Type: ContentUnknown, FallbackText: defaultFallbackText}, EncodeContent(nil))

	unsupported := EncodeContent(sdk.UnsupportedContent{Kind: "plugin", FallbackText: "<p>Open the <b>app</b></p>"})
	assert.Equal(t, ContentUnknown, unsupported.Type)
	assert.Contains(t, unsupported.FallbackText, "**app**")
	assert.NotContains(t, unsupported.FallbackText, "<p>")

	raw, err := json.Marshal(unsupported)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "payload")
	assert.NotContains(t, string(raw), "data")
}

func TestFallbackText(t *testing.T) {
	assert.Equal(t, "plain text", FallbackText("  plain text "))
	assert.Equal(t, defaultFallbackText, FallbackText(""))
}

func TestDecodeContent_Errors(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"carousel","data":{}}`,
		`{"type":"text"}`,
		`{"type":"richLink","data":"oops"}`,
	}
	for _, in := range cases {
		_, err := DecodeContent([]byte(in))
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, types.ErrInvalidArgument), in)
	}
}

func TestContentVendor_UnknownCannotBeSent(t *testing.T) {
	_, err := Content{Type: ContentUnknown, FallbackText: "x"}.Vendor()
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}
