// Package json implements the on-disk session document and a Store that
// keeps one document per session in a directory.
package json

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwojciec/tether"
)

// document is the wire format for a persisted session.
type document struct {
	SessionID           string       `json:"session_id"`
	StartTime           isoTime      `json:"start_time"`
	LastActivity        isoTime      `json:"last_activity"`
	ConversationHistory []messageDTO `json:"conversation_history"`
	WorkingDirectory    string       `json:"working_directory"`
	Options             *optionsDTO  `json:"options"`
}

// rawDocument defers decoding of history entries so unknown message kinds
// can be skipped before their fields are interpreted.
type rawDocument struct {
	SessionID           string            `json:"session_id"`
	StartTime           *isoTime          `json:"start_time"`
	LastActivity        *isoTime          `json:"last_activity"`
	ConversationHistory []json.RawMessage `json:"conversation_history"`
	WorkingDirectory    string            `json:"working_directory"`
	Options             *optionsDTO       `json:"options"`
}

// optionsDTO is the snapshot of the options a session started with. Unset
// values are written as null.
type optionsDTO struct {
	Model          *string  `json:"model"`
	AllowedTools   []string `json:"allowed_tools"`
	PermissionMode *string  `json:"permission_mode"`
}

// MarshalSession serializes a Session to an indented JSON document.
func MarshalSession(s tether.Session) ([]byte, error) {
	doc := document{
		SessionID:           s.ID,
		StartTime:           isoTime(s.StartTime),
		LastActivity:        isoTime(s.LastActivity),
		ConversationHistory: make([]messageDTO, len(s.History)),
		WorkingDirectory:    s.WorkingDirectory,
		Options:             marshalOptions(s.Options),
	}
	for i, msg := range s.History {
		dto, err := marshalMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		doc.ConversationHistory[i] = dto
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalSession deserializes a Session document. History entries of an
// unknown kind are dropped; anything else that fails to decode is an error.
func UnmarshalSession(data []byte) (tether.Session, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return tether.Session{}, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc.SessionID == "" {
		return tether.Session{}, errors.New("missing session_id")
	}
	if doc.StartTime == nil {
		return tether.Session{}, errors.New("missing start_time")
	}
	if doc.LastActivity == nil {
		return tether.Session{}, errors.New("missing last_activity")
	}
	var history []tether.Message
	for i, raw := range doc.ConversationHistory {
		msg, ok, err := unmarshalMessage(raw)
		if err != nil {
			return tether.Session{}, fmt.Errorf("message %d: %w", i, err)
		}
		if !ok {
			continue
		}
		history = append(history, msg)
	}
	return tether.Session{
		ID:               doc.SessionID,
		StartTime:        doc.StartTime.Time(),
		LastActivity:     doc.LastActivity.Time(),
		History:          history,
		WorkingDirectory: doc.WorkingDirectory,
		Options:          unmarshalOptions(doc.Options),
	}, nil
}

func marshalOptions(o *tether.SessionOptions) *optionsDTO {
	if o == nil {
		return nil
	}
	tools := o.AllowedTools
	if tools == nil {
		tools = []string{}
	}
	return &optionsDTO{
		Model:          nullable(o.Model),
		AllowedTools:   tools,
		PermissionMode: nullable(string(o.PermissionMode)),
	}
}

func unmarshalOptions(dto *optionsDTO) *tether.SessionOptions {
	if dto == nil {
		return nil
	}
	opts := &tether.SessionOptions{}
	if len(dto.AllowedTools) > 0 {
		opts.AllowedTools = dto.AllowedTools
	}
	if dto.Model != nil {
		opts.Model = *dto.Model
	}
	if dto.PermissionMode != nil {
		opts.PermissionMode = tether.PermissionMode(*dto.PermissionMode)
	}
	return opts
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
