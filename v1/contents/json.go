package contents

import (
	"encoding/json"
	"fmt"
)

type itemJSON struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	ID           string          `json:"id,omitempty"`
	Index        int             `json:"index,omitempty"`
	PluginName   string          `json:"plugin_name,omitempty"`
	FunctionName string          `json:"function_name,omitempty"`
	Arguments    string          `json:"arguments,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	URI          string          `json:"uri,omitempty"`
	Data         []byte          `json:"data,omitempty"`
	MimeType     string          `json:"mime_type,omitempty"`
}

type messageJSON struct {
	Role         AuthorRole     `json:"role"`
	Name         string         `json:"name,omitempty"`
	Items        []itemJSON     `json:"items"`
	ModelID      string         `json:"model_id,omitempty"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"`
	Usage        *Usage         `json:"usage,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func encodeItem(item Item) (itemJSON, error) {
	switch v := item.(type) {
	case *TextContent:
		return itemJSON{Type: itemTypeText, Text: v.Text}, nil
	case *FunctionCallContent:
		return itemJSON{
			Type:         itemTypeFunctionCall,
			ID:           v.ID,
			Index:        v.Index,
			PluginName:   v.PluginName,
			FunctionName: v.FunctionName,
			Arguments:    v.Arguments,
		}, nil
	case *FunctionResultContent:
		raw, err := encodeResult(v)
		if err != nil {
			return itemJSON{}, err
		}
		return itemJSON{
			Type:         itemTypeFunctionResult,
			ID:           v.CallID,
			PluginName:   v.PluginName,
			FunctionName: v.FunctionName,
			Result:       raw,
		}, nil
	case *ImageContent:
		return itemJSON{Type: itemTypeImage, URI: v.URI, Data: v.Data, MimeType: v.MimeType}, nil
	case *AudioContent:
		return itemJSON{Type: itemTypeAudio, URI: v.URI, Data: v.Data, MimeType: v.MimeType}, nil
	}
	return itemJSON{}, fmt.Errorf("%w: %T", ErrUnknownItemType, item)
}

// encodeResult stores the result so that String returns the same text
// after decoding. Errors and Stringers are stored as their text, as are
// values that cannot be marshalled.
func encodeResult(r *FunctionResultContent) (json.RawMessage, error) {
	switch r.Result.(type) {
	case fmt.Stringer, error:
		return json.Marshal(r.String())
	}
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return json.Marshal(r.String())
	}
	return raw, nil
}

func decodeItem(in itemJSON) (Item, error) {
	switch in.Type {
	case itemTypeText:
		return &TextContent{Text: in.Text}, nil
	case itemTypeFunctionCall:
		return &FunctionCallContent{
			ID:           in.ID,
			Index:        in.Index,
			PluginName:   in.PluginName,
			FunctionName: in.FunctionName,
			Arguments:    in.Arguments,
		}, nil
	case itemTypeFunctionResult:
		var result any
		if len(in.Result) > 0 {
			if err := json.Unmarshal(in.Result, &result); err != nil {
				return nil, err
			}
		}
		return &FunctionResultContent{
			CallID:       in.ID,
			PluginName:   in.PluginName,
			FunctionName: in.FunctionName,
			Result:       result,
		}, nil
	case itemTypeImage:
		return &ImageContent{URI: in.URI, Data: in.Data, MimeType: in.MimeType}, nil
	case itemTypeAudio:
		return &AudioContent{URI: in.URI, Data: in.Data, MimeType: in.MimeType}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, in.Type)
}

func (m *ChatMessageContent) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		Role:         m.Role,
		Name:         m.Name,
		Items:        make([]itemJSON, 0, len(m.Items)),
		ModelID:      m.ModelID,
		FinishReason: m.FinishReason,
		Usage:        m.Usage,
		Metadata:     m.Metadata,
	}
	for _, item := range m.Items {
		enc, err := encodeItem(item)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, enc)
	}
	return json.Marshal(out)
}

func (m *ChatMessageContent) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Role = in.Role
	m.Name = in.Name
	m.ModelID = in.ModelID
	m.FinishReason = in.FinishReason
	m.Usage = in.Usage
	m.Metadata = in.Metadata
	m.Items = make([]Item, 0, len(in.Items))
	for _, raw := range in.Items {
		item, err := decodeItem(raw)
		if err != nil {
			return err
		}
		m.Items = append(m.Items, item)
	}
	return nil
}

func (h *ChatHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Messages())
}

func (h *ChatHistory) UnmarshalJSON(data []byte) error {
	var messages []*ChatMessageContent
	if err := json.Unmarshal(data, &messages); err != nil {
		return err
	}
	h.Replace(messages)
	return nil
}
