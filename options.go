package tether

import "slices"

// DefaultSessionKey is the conversation key used when a query names none.
const DefaultSessionKey = "default"

// Options configures one connection to the agent. Options is passed by
// value: a per-connection change such as the resume target is made on a
// copy with WithResume, never on a shared instance.
type Options struct {
	Model              string
	PermissionMode     PermissionMode
	AllowedTools       []string
	SystemPrompt       string
	AppendSystemPrompt string
	MaxTurns           int    // 0 = agent default
	Cwd                string // empty = current directory
	CLIPath            string // empty = "claude" on PATH
	Resume             string // session to resume on connect; empty = new session
}

// WithResume returns a copy of o that resumes the session id on connect.
// An empty id requests a new session.
func (o Options) WithResume(id string) Options {
	o.AllowedTools = slices.Clone(o.AllowedTools)
	o.Resume = id
	return o
}

// Snapshot returns the subset of o persisted with a session.
func (o Options) Snapshot() *SessionOptions {
	return &SessionOptions{
		Model:          o.Model,
		AllowedTools:   slices.Clone(o.AllowedTools),
		PermissionMode: o.PermissionMode,
	}
}
