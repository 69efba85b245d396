package codec

import "github.com/user/chatbridge/internal/sdk"

// EncodeChannelConfiguration snapshots a vendor configuration object. The
// curated form is used when the concrete type is known; anything else is
// walked with Reflect.
func EncodeChannelConfiguration(v any) map[string]any {
	if out := curatedConfiguration(v); len(out) > 0 {
		return out
	}
	if m, ok := Reflect(v, MaxReflectDepth).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func curatedConfiguration(v any) map[string]any {
	var cfg *sdk.ChannelConfiguration
	switch c := v.(type) {
	case *sdk.ChannelConfiguration:
		cfg = c
	case sdk.ChannelConfiguration:
		cfg = &c
	}
	if cfg == nil {
		return nil
	}

	fileTypes := make([]map[string]any, 0, len(cfg.FileRestrictions.AllowedFileTypes))
	for _, ft := range cfg.FileRestrictions.AllowedFileTypes {
		fileTypes = append(fileTypes, map[string]any{
			"mimeType":    ft.MimeType,
			"description": ft.Description,
		})
	}
	features := make(map[string]any, len(cfg.Features))
	for k, on := range cfg.Features {
		features[k] = on
	}

	out := map[string]any{
		"hasMultipleThreadsPerEndUser": cfg.HasMultipleThreadsPerEndUser,
		"isProactiveChatEnabled":       cfg.IsProactiveChatEnabled,
		"isAuthorizationEnabled":       cfg.IsAuthorizationEnabled,
		"isLiveChat":                   cfg.IsLiveChat,
		"fileRestrictions": map[string]any{
			"allowedFileSize":      cfg.FileRestrictions.AllowedFileSize,
			"allowedFileTypes":     fileTypes,
			"isAttachmentsEnabled": cfg.FileRestrictions.IsAttachmentsEnabled,
		},
		"features": features,
	}
	if survey := EncodePreChatSurvey(cfg.PreChatSurvey); survey != nil {
		out["preChatSurvey"] = survey
	}
	return out
}
