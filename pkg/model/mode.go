package model

import "fmt"

// Mode selects which graph is bound, which layout policy applies and which
// axes are shown.
type Mode int

const (
	AttackGraph Mode = iota
	ActivityThread
	SubGraph
)

// AllModes lists the modes in menu order.
var AllModes = []Mode{ActivityThread, AttackGraph, SubGraph}

// Token is the navigation-fragment value for the mode.
func (m Mode) Token() string {
	switch m {
	case ActivityThread:
		return "activity_thread"
	case AttackGraph:
		return "attack_graph"
	case SubGraph:
		return "sub_attack_graph"
	default:
		return ""
	}
}

// String returns the human label used by the mode indicator.
func (m Mode) String() string {
	switch m {
	case ActivityThread:
		return "Activity Thread"
	case AttackGraph:
		return "Attack Graph"
	case SubGraph:
		return "Sub-Graph"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode resolves a navigation token. A leading '#' is ignored.
func ParseMode(token string) (Mode, bool) {
	if len(token) > 0 && token[0] == '#' {
		token = token[1:]
	}
	for _, m := range AllModes {
		if m.Token() == token {
			return m, true
		}
	}
	return AttackGraph, false
}
