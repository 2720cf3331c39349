package tether

// PermissionMode controls how the agent asks for tool permissions.
// Empty means the agent's own default.
type PermissionMode string

const (
	PermissionDefault           PermissionMode = "default"
	PermissionAcceptEdits       PermissionMode = "acceptEdits"
	PermissionPlan              PermissionMode = "plan"
	PermissionBypassPermissions PermissionMode = "bypassPermissions"
)

// Valid reports whether m is empty or one of the known modes.
func (m PermissionMode) Valid() bool {
	switch m {
	case "", PermissionDefault, PermissionAcceptEdits, PermissionPlan, PermissionBypassPermissions:
		return true
	default:
		return false
	}
}
