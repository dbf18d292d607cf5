package domain

import "strings"

// Perms is the capability set a member holds over queue and playback commands.
type Perms uint8

const (
	PermNone Perms = 0

	PermRequestEnqueue Perms = 1 << 0
	PermModifyQueue    Perms = 1 << 1

	PermPauseVideo  Perms = 1 << 2
	PermJumpVideo   Perms = 1 << 3
	PermModifyVideo       = PermPauseVideo | PermJumpVideo

	PermAdmin Perms = 0xFF
)

var permNames = []struct {
	perm Perms
	name string
}{
	{PermRequestEnqueue, "request_enqueue"},
	{PermModifyQueue, "modify_queue"},
	{PermPauseVideo, "pause_video"},
	{PermJumpVideo, "jump_video"},
}

// Has reports whether p is a superset of other.
func (p Perms) Has(other Perms) bool {
	return p&other == other
}

func (p Perms) Union(other Perms) Perms {
	return p | other
}

func (p Perms) String() string {
	switch p {
	case PermNone:
		return "none"
	case PermAdmin:
		return "admin"
	}

	names := make([]string, 0, len(permNames))
	for _, pn := range permNames {
		if p.Has(pn.perm) {
			names = append(names, pn.name)
		}
	}

	return strings.Join(names, "|")
}
