package claudecode

// StderrTail exposes the stderr ring buffer for testing.
type StderrTail = stderrTail

var NewStderrTail = newStderrTail
