package chat

import "github.com/bz888/murmur/internal/ollama"

// Role is the author of a conversation message. Only RoleUser and
// RoleAssistant are recognized; any other value is kept verbatim so callers
// can see what was dropped.
type Role string

const (
	RoleUser      Role = ollama.RoleUser
	RoleAssistant Role = ollama.RoleAssistant
)

func (r Role) Recognized() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
