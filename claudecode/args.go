package claudecode

import (
	"strconv"
	"strings"

	"github.com/fwojciec/tether"
)

// DefaultCLIPath is the command run when Options.CLIPath is empty.
const DefaultCLIPath = "claude"

// BuildArgs returns the CLI arguments for a bidirectional stream-json
// session configured by opts.
func BuildArgs(opts tether.Options) []string {
	args := []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if opts.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", opts.AppendSystemPrompt)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, ","))
	}
	if opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(opts.MaxTurns))
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.PermissionMode != "" {
		args = append(args, "--permission-mode", string(opts.PermissionMode))
	}
	if opts.Resume != "" {
		args = append(args, "--resume", opts.Resume)
	}
	return args
}

func cliPath(opts tether.Options) string {
	if opts.CLIPath != "" {
		return opts.CLIPath
	}
	return DefaultCLIPath
}
