package json

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/tether"
)

// Message type discriminators.
const (
	typeUser      = "UserMessage"
	typeAssistant = "AssistantMessage"
	typeSystem    = "SystemMessage"
	typeResult    = "ResultMessage"
)

// messageDTO is the JSON representation of a Message with a type discriminator.
// Content is a string or a list of blocks for user messages and a list of
// blocks for assistant messages.
type messageDTO struct {
	MessageType   string          `json:"message_type"`
	Content       json.RawMessage `json:"content,omitempty"`
	Model         *string         `json:"model,omitempty"`
	Subtype       *string         `json:"subtype,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	DurationMS    *int            `json:"duration_ms,omitempty"`
	DurationAPIMS *int            `json:"duration_api_ms,omitempty"`
	IsError       *bool           `json:"is_error,omitempty"`
	NumTurns      *int            `json:"num_turns,omitempty"`
	SessionID     *string         `json:"session_id,omitempty"`
	TotalCostUSD  *float64        `json:"total_cost_usd,omitempty"`
	Usage         *usageDTO       `json:"usage,omitempty"`
	Result        *string         `json:"result,omitempty"`
}

func marshalMessage(msg tether.Message) (messageDTO, error) {
	switch m := msg.(type) {
	case tether.UserMessage:
		content, err := marshalUserContent(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{MessageType: typeUser, Content: content}, nil
	case tether.AssistantMessage:
		content, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{
			MessageType: typeAssistant,
			Content:     content,
			Model:       nullable(m.Model),
		}, nil
	case tether.SystemMessage:
		data, err := json.Marshal(m.Data)
		if err != nil {
			return messageDTO{}, fmt.Errorf("system data: %w", err)
		}
		return messageDTO{
			MessageType: typeSystem,
			Subtype:     &m.Subtype,
			Data:        data,
		}, nil
	case tether.ResultMessage:
		dto := messageDTO{
			MessageType:   typeResult,
			Subtype:       &m.Subtype,
			DurationMS:    &m.DurationMS,
			DurationAPIMS: &m.DurationAPIMS,
			IsError:       &m.IsError,
			NumTurns:      &m.NumTurns,
			SessionID:     &m.SessionID,
			TotalCostUSD:  m.TotalCostUSD,
			Result:        m.Result,
		}
		dto.Usage = marshalUsage(m.Usage)
		return dto, nil
	default:
		return messageDTO{}, fmt.Errorf("unknown message type: %T", msg)
	}
}

// unmarshalMessage decodes one history entry. It reports false for entries
// of a kind this version does not know, which callers skip.
func unmarshalMessage(raw json.RawMessage) (tether.Message, bool, error) {
	var head struct {
		MessageType string `json:"message_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, false, fmt.Errorf("unmarshal message: %w", err)
	}
	switch head.MessageType {
	case typeUser, typeAssistant, typeSystem, typeResult:
	default:
		return nil, false, nil
	}

	var dto messageDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, false, fmt.Errorf("unmarshal %s: %w", head.MessageType, err)
	}
	switch dto.MessageType {
	case typeUser:
		content, err := unmarshalUserContent(dto.Content)
		if err != nil {
			return nil, false, err
		}
		return tether.UserMessage{Content: content}, true, nil
	case typeAssistant:
		content, err := unmarshalContentBlocks(dto.Content)
		if err != nil {
			return nil, false, err
		}
		return tether.AssistantMessage{Content: content, Model: deref(dto.Model)}, true, nil
	case typeSystem:
		var data map[string]any
		if !isNull(dto.Data) {
			if err := json.Unmarshal(dto.Data, &data); err != nil {
				return nil, false, fmt.Errorf("system data: %w", err)
			}
		}
		return tether.SystemMessage{Subtype: deref(dto.Subtype), Data: data}, true, nil
	default:
		m := tether.ResultMessage{
			Subtype:      deref(dto.Subtype),
			SessionID:    deref(dto.SessionID),
			TotalCostUSD: dto.TotalCostUSD,
			Result:       dto.Result,
		}
		if dto.DurationMS != nil {
			m.DurationMS = *dto.DurationMS
		}
		if dto.DurationAPIMS != nil {
			m.DurationAPIMS = *dto.DurationAPIMS
		}
		if dto.IsError != nil {
			m.IsError = *dto.IsError
		}
		if dto.NumTurns != nil {
			m.NumTurns = *dto.NumTurns
		}
		m.Usage = unmarshalUsage(dto.Usage)
		return m, true, nil
	}
}

// marshalUserContent writes a lone text block as a plain string, which is
// how the agent itself sends simple prompts.
func marshalUserContent(blocks []tether.ContentBlock) (json.RawMessage, error) {
	if len(blocks) == 1 {
		if tb, ok := blocks[0].(tether.TextBlock); ok {
			return json.Marshal(tb.Text)
		}
	}
	return marshalContentBlocks(blocks)
}

func unmarshalUserContent(raw json.RawMessage) ([]tether.ContentBlock, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("user content: %w", err)
		}
		return []tether.ContentBlock{tether.TextBlock{Text: text}}, nil
	}
	return unmarshalContentBlocks(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
