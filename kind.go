package tether

// Kind identifies the variant of a Message.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindSystem    Kind = "system"
	KindResult    Kind = "result"
)
