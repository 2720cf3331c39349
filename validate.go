package tether

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate checks universal constraints on Options.
func (o Options) Validate() error {
	if !o.PermissionMode.Valid() {
		return fmt.Errorf("unknown permission mode %q: %w", o.PermissionMode, ErrValidation)
	}
	if o.MaxTurns < 0 {
		return fmt.Errorf("max_turns must be non-negative, got %d: %w", o.MaxTurns, ErrValidation)
	}
	if o.Resume != "" {
		if err := ValidateSessionID(o.Resume); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	}
	return nil
}

// ValidateSessionID checks that id can be used as a storage key. Stores
// address one entry per identifier, so an identifier must not escape the
// storage root or contain characters that are unsafe in file names.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("empty session id: %w", ErrValidation)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("session id %q is reserved: %w", id, ErrValidation)
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("session id %q contains a path separator: %w", id, ErrValidation)
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return fmt.Errorf("session id %q contains a control character: %w", id, ErrValidation)
	}
	return nil
}

// ValidateMessage checks that a message's content blocks are valid for its kind.
func ValidateMessage(msg Message) error {
	switch m := msg.(type) {
	case UserMessage:
		return validateBlocks(m.Content, m.Kind(), allowText|allowToolResult)
	case AssistantMessage:
		return validateBlocks(m.Content, m.Kind(), allowText|allowToolUse|allowToolResult)
	case SystemMessage:
		if m.Subtype == "" {
			return fmt.Errorf("system message without subtype: %w", ErrValidation)
		}
		return nil
	case ResultMessage:
		if m.SessionID != "" {
			return ValidateSessionID(m.SessionID)
		}
		return nil
	default:
		return fmt.Errorf("unknown message type %T: %w", msg, ErrValidation)
	}
}

type blockAllow uint8

const (
	allowText blockAllow = 1 << iota
	allowToolUse
	allowToolResult
)

func validateBlocks(blocks []ContentBlock, kind Kind, allowed blockAllow) error {
	for _, b := range blocks {
		switch b.(type) {
		case TextBlock:
			if allowed&allowText == 0 {
				return fmt.Errorf("TextBlock not allowed in %s message: %w", kind, ErrValidation)
			}
		case ToolUseBlock:
			if allowed&allowToolUse == 0 {
				return fmt.Errorf("ToolUseBlock not allowed in %s message: %w", kind, ErrValidation)
			}
		case ToolResultBlock:
			if allowed&allowToolResult == 0 {
				return fmt.Errorf("ToolResultBlock not allowed in %s message: %w", kind, ErrValidation)
			}
		default:
			return fmt.Errorf("unknown content block type %T in %s message: %w", b, kind, ErrValidation)
		}
	}
	return nil
}
