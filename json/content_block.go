package json

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/tether"
)

// Content block type discriminators.
const (
	typeText       = "TextBlock"
	typeToolUse    = "ToolUseBlock"
	typeToolResult = "ToolResultBlock"
)

// contentBlock is the JSON representation of a ContentBlock with a type discriminator.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      *string         `json:"text,omitempty"`
	ID        *string         `json:"id,omitempty"`
	Name      *string         `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID *string         `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`
}

func marshalContentBlocks(blocks []tether.ContentBlock) (json.RawMessage, error) {
	result := make([]contentBlock, len(blocks))
	for i, b := range blocks {
		cb, err := marshalContentBlock(b)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		result[i] = cb
	}
	return json.Marshal(result)
}

func marshalContentBlock(b tether.ContentBlock) (contentBlock, error) {
	switch v := b.(type) {
	case tether.TextBlock:
		return contentBlock{Type: typeText, Text: &v.Text}, nil
	case tether.ToolUseBlock:
		return contentBlock{Type: typeToolUse, ID: &v.ID, Name: &v.Name, Input: v.Input}, nil
	case tether.ToolResultBlock:
		return contentBlock{
			Type:      typeToolResult,
			ToolUseID: &v.ToolUseID,
			Content:   v.Content,
			IsError:   v.IsError,
		}, nil
	default:
		return contentBlock{}, fmt.Errorf("unknown content block type: %T", b)
	}
}

// unmarshalContentBlocks decodes a block list, dropping blocks of an unknown
// type. Absent or null content decodes to nil.
func unmarshalContentBlocks(raw json.RawMessage) ([]tether.ContentBlock, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("content blocks: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	result := make([]tether.ContentBlock, 0, len(items))
	for i, item := range items {
		b, ok, err := unmarshalContentBlock(item)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		if ok {
			result = append(result, b)
		}
	}
	return result, nil
}

func unmarshalContentBlock(raw json.RawMessage) (tether.ContentBlock, bool, error) {
	var dto contentBlock
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, false, err
	}
	switch dto.Type {
	case typeText:
		return tether.TextBlock{Text: deref(dto.Text)}, true, nil
	case typeToolUse:
		return tether.ToolUseBlock{
			ID:    deref(dto.ID),
			Name:  deref(dto.Name),
			Input: rawOrNil(dto.Input),
		}, true, nil
	case typeToolResult:
		return tether.ToolResultBlock{
			ToolUseID: deref(dto.ToolUseID),
			Content:   rawOrNil(dto.Content),
			IsError:   dto.IsError,
		}, true, nil
	default:
		return nil, false, nil
	}
}

// rawOrNil compacts raw so that values read back from an indented document
// match what was written.
func rawOrNil(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
