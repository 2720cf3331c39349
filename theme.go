package tether

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the
// session browser matches any color scheme.
type Theme struct {
	UserMsg int // User message accent
	System  int // System notices
	ToolUse int // Tool use header
	Error   int // Error messages
	Success int // Success indicators
	Muted   int // Status bar, timestamps
	CodeBg  int // Code block background
	Accent  int // Headings, links, selection
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		System:  8,
		ToolUse: 3,
		Error:   1,
		Success: 2,
		Muted:   8,
		CodeBg:  0,
		Accent:  5,
	}
}
