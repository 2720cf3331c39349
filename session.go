package tether

import (
	"slices"
	"time"
)

// Session is the persisted unit of conversation state. ID is assigned by
// the agent server and doubles as the storage key.
type Session struct {
	ID               string
	StartTime        time.Time
	LastActivity     time.Time
	History          []Message
	WorkingDirectory string
	Options          *SessionOptions
}

// SessionOptions is the snapshot of the configuration a session was started
// with. It is kept for display and restore only.
type SessionOptions struct {
	Model          string
	AllowedTools   []string
	PermissionMode PermissionMode
}

// Append adds msg to the end of the history and moves LastActivity to now.
func (s *Session) Append(msg Message, now time.Time) {
	s.History = append(s.History, msg)
	s.Touch(now)
}

// Touch moves LastActivity forward to now. LastActivity never moves
// backwards and never precedes StartTime.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
	if s.LastActivity.Before(s.StartTime) {
		s.LastActivity = s.StartTime
	}
}

// Clone returns a copy of s whose history and options can be mutated
// without affecting s. Messages themselves are values and are shared.
func (s Session) Clone() Session {
	s.History = slices.Clone(s.History)
	if s.Options != nil {
		opts := *s.Options
		opts.AllowedTools = slices.Clone(opts.AllowedTools)
		s.Options = &opts
	}
	return s
}

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	ID               string
	StartTime        time.Time
	LastActivity     time.Time
	WorkingDirectory string
	MessageCount     int
}

// Summary returns the listing view of s.
func (s Session) Summary() SessionSummary {
	return SessionSummary{
		ID:               s.ID,
		StartTime:        s.StartTime,
		LastActivity:     s.LastActivity,
		WorkingDirectory: s.WorkingDirectory,
		MessageCount:     len(s.History),
	}
}
