package tether

import "encoding/json"

// Message is a sealed interface representing one message of a conversation
// as it arrives from the agent. The unexported marker method prevents
// external implementations, so a type switch over the four variants below
// is exhaustive.
type Message interface {
	isMessage()
	Kind() Kind
}

// UserMessage is a user turn. A plain-string payload is represented as a
// single TextBlock.
type UserMessage struct {
	Content []ContentBlock
}

func (UserMessage) isMessage() {}

// Kind returns KindUser.
func (UserMessage) Kind() Kind { return KindUser }

// AssistantMessage is an assistant turn made of ordered content blocks.
type AssistantMessage struct {
	Content []ContentBlock
	Model   string
}

func (AssistantMessage) isMessage() {}

// Kind returns KindAssistant.
func (AssistantMessage) Kind() Kind { return KindAssistant }

// SystemMessage is a notice from the agent runtime, such as the "init"
// notice that announces the session identifier.
type SystemMessage struct {
	Subtype string
	Data    map[string]any
}

func (SystemMessage) isMessage() {}

// Kind returns KindSystem.
func (SystemMessage) Kind() Kind { return KindSystem }

// ResultMessage terminates a response. It always carries the identifier
// the server currently uses for the session.
type ResultMessage struct {
	Subtype       string
	DurationMS    int
	DurationAPIMS int
	IsError       bool
	NumTurns      int
	SessionID     string
	TotalCostUSD  *float64
	Usage         *Usage
	Result        *string
}

func (ResultMessage) isMessage() {}

// Kind returns KindResult.
func (ResultMessage) Kind() Kind { return KindResult }

// ContentBlock is a sealed interface representing a block of message content.
type ContentBlock interface {
	contentBlock()
}

// TextBlock contains text content.
type TextBlock struct {
	Text string
}

func (TextBlock) contentBlock() {}

// ToolUseBlock is a tool invocation requested by the assistant.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

func (ToolUseBlock) contentBlock() {}

// ToolResultBlock carries the outcome of a tool invocation. Content is kept
// raw because the agent sends either a string or a list of blocks. IsError is
// nil when the agent did not say.
type ToolResultBlock struct {
	ToolUseID string
	Content   json.RawMessage
	IsError   *bool
}

func (ToolResultBlock) contentBlock() {}

// SessionIDOf returns the session identifier carried by msg, if any. Result
// messages always carry one; system notices carry one in their data under
// "session_id". User and assistant turns never do.
func SessionIDOf(msg Message) (string, bool) {
	switch m := msg.(type) {
	case ResultMessage:
		return m.SessionID, m.SessionID != ""
	case SystemMessage:
		id, ok := m.Data["session_id"].(string)
		return id, ok && id != ""
	default:
		return "", false
	}
}

// Text concatenates the text blocks of content, separated by newlines.
func Text(content []ContentBlock) string {
	var out []byte
	for _, b := range content {
		tb, ok := b.(TextBlock)
		if !ok {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, tb.Text...)
	}
	return string(out)
}

// Interface compliance checks.
var (
	_ Message = UserMessage{}
	_ Message = AssistantMessage{}
	_ Message = SystemMessage{}
	_ Message = ResultMessage{}

	_ ContentBlock = TextBlock{}
	_ ContentBlock = ToolUseBlock{}
	_ ContentBlock = ToolResultBlock{}
)
