package claudecode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwojciec/tether"
)

// line is the envelope shared by every stream-json output line.
type line struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	Message json.RawMessage `json:"message"`
}

type apiMessage struct {
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type apiBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   *bool           `json:"is_error"`
}

type resultLine struct {
	Subtype       string    `json:"subtype"`
	DurationMS    int       `json:"duration_ms"`
	DurationAPIMS int       `json:"duration_api_ms"`
	IsError       bool      `json:"is_error"`
	NumTurns      int       `json:"num_turns"`
	SessionID     string    `json:"session_id"`
	TotalCostUSD  *float64  `json:"total_cost_usd"`
	Usage         *apiUsage `json:"usage"`
	Result        *string   `json:"result"`
}

type apiUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// ParseMessage decodes one line of the CLI's stream-json output. It reports
// false for line types that are not conversation messages, such as control
// responses and partial stream events.
func ParseMessage(data []byte) (tether.Message, bool, error) {
	var env line
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("parse stream-json line: %w", err)
	}
	switch env.Type {
	case "user":
		msg, err := parseAPIMessage(env.Message)
		if err != nil {
			return nil, false, fmt.Errorf("user message: %w", err)
		}
		content, err := parseUserContent(msg.Content)
		if err != nil {
			return nil, false, fmt.Errorf("user message: %w", err)
		}
		return tether.UserMessage{Content: content}, true, nil
	case "assistant":
		msg, err := parseAPIMessage(env.Message)
		if err != nil {
			return nil, false, fmt.Errorf("assistant message: %w", err)
		}
		content, err := parseBlocks(msg.Content)
		if err != nil {
			return nil, false, fmt.Errorf("assistant message: %w", err)
		}
		return tether.AssistantMessage{Content: content, Model: msg.Model}, true, nil
	case "system":
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, false, fmt.Errorf("system message: %w", err)
		}
		return tether.SystemMessage{Subtype: env.Subtype, Data: fields}, true, nil
	case "result":
		var r resultLine
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, false, fmt.Errorf("result message: %w", err)
		}
		msg := tether.ResultMessage{
			Subtype:       r.Subtype,
			DurationMS:    r.DurationMS,
			DurationAPIMS: r.DurationAPIMS,
			IsError:       r.IsError,
			NumTurns:      r.NumTurns,
			SessionID:     r.SessionID,
			TotalCostUSD:  r.TotalCostUSD,
			Result:        r.Result,
		}
		if r.Usage != nil {
			msg.Usage = &tether.Usage{
				InputTokens:              r.Usage.InputTokens,
				OutputTokens:             r.Usage.OutputTokens,
				CacheCreationInputTokens: r.Usage.CacheCreationInputTokens,
				CacheReadInputTokens:     r.Usage.CacheReadInputTokens,
			}
		}
		return msg, true, nil
	default:
		return nil, false, nil
	}
}

func parseAPIMessage(raw json.RawMessage) (apiMessage, error) {
	var msg apiMessage
	if len(raw) == 0 {
		return msg, errors.New("missing message")
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// parseUserContent accepts either a plain string or a list of blocks.
func parseUserContent(raw json.RawMessage) ([]tether.ContentBlock, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []tether.ContentBlock{tether.TextBlock{Text: text}}, nil
	}
	return parseBlocks(raw)
}

// parseBlocks converts API content blocks, skipping kinds with no tether
// counterpart such as thinking blocks.
func parseBlocks(raw json.RawMessage) ([]tether.ContentBlock, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var blocks []apiBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("content blocks: %w", err)
	}
	var out []tether.ContentBlock
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, tether.TextBlock{Text: b.Text})
		case "tool_use":
			out = append(out, tether.ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input})
		case "tool_result":
			out = append(out, tether.ToolResultBlock{ToolUseID: b.ToolUseID, Content: b.Content, IsError: b.IsError})
		}
	}
	return out, nil
}
