package codec

import "github.com/user/chatbridge/internal/sdk"

type PreChatSurvey struct {
	Name         string        `json:"name"`
	CustomFields []SurveyField `json:"customFields"`
}

type SurveyField struct {
	Ident      string         `json:"ident"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	IsRequired bool           `json:"isRequired"`
	IsEmail    bool           `json:"isEmail,omitempty"`
	Values     []SurveyOption `json:"values,omitempty"`
}

type SurveyOption struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Children []SurveyOption `json:"children,omitempty"`
}

func EncodePreChatSurvey(s *sdk.PreChatSurvey) *PreChatSurvey {
	if s == nil {
		return nil
	}
	fields := make([]SurveyField, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, SurveyField{
			Ident:      f.Ident,
			Label:      f.Label,
			Type:       string(f.Kind),
			IsRequired: f.Required,
			IsEmail:    f.IsEmail,
			Values:     encodeOptions(f.Options),
		})
	}
	return &PreChatSurvey{Name: s.Name, CustomFields: fields}
}

func encodeOptions(in []sdk.SurveyOption) []SurveyOption {
	if len(in) == 0 {
		return nil
	}
	out := make([]SurveyOption, 0, len(in))
	for _, o := range in {
		out = append(out, SurveyOption{ID: o.ID, Label: o.Label, Children: encodeOptions(o.Children)})
	}
	return out
}
