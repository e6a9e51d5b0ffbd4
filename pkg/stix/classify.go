package stix

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/threatgraph/pkg/model"
)

// Tactics are the MITRE ATT&CK enterprise tactic columns, left to right.
var Tactics = []string{
	"Reconnaissance",
	"Resource Development",
	"Initial Access",
	"Execution",
	"Persistence",
	"Privilege Escalation",
	"Defense Evasion",
	"Credential Access",
	"Discovery",
	"Lateral Movement",
	"Collection",
	"Command and Control",
	"Exfiltration",
	"Impact",
}

// DiamondCategories are the diamond-model layers, top to bottom.
var DiamondCategories = []string{
	"Adversary",
	"Capability",
	"Infrastructure",
	"Victim",
}

var diamondLayers = map[string]int{
	"threat-actor":  0,
	"intrusion-set": 0,
	"campaign":      0,

	"attack-pattern": 1,
	"malware":        1,
	"tool":           1,

	"infrastructure":    2,
	"indicator":         2,
	"observed-data":     2,
	"ipv4-addr":         2,
	"ipv6-addr":         2,
	"domain-name":       2,
	"url":               2,
	"autonomous-system": 2,
	"network-traffic":   2,

	"identity":      3,
	"location":      3,
	"vulnerability": 3,
	"software":      3,
	"user-account":  3,
	"file":          3,
	"directory":     3,
	"process":       3,
}

var tacticColumns = func() map[string]string {
	m := make(map[string]string, len(Tactics))
	for _, t := range Tactics {
		m[strings.ReplaceAll(strings.ToLower(t), " ", "-")] = t
	}
	return m
}()

// Tactic returns the first kill-chain phase name of n, or "".
func Tactic(n *model.Node) string {
	if n == nil {
		return ""
	}
	phases, _ := n.Data["kill_chain_phases"].([]any)
	for _, p := range phases {
		phase, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := phase["phase_name"].(string); name != "" {
			return name
		}
	}
	return ""
}

// AxisColumn maps a kill-chain phase name onto its tactic column. Unknown
// phases report false.
func AxisColumn(tactic string) (string, bool) {
	c, ok := tacticColumns[strings.ToLower(strings.TrimSpace(tactic))]
	return c, ok
}

// Column is Tactic followed by AxisColumn, "" when unresolved.
func Column(n *model.Node) string {
	c, _ := AxisColumn(Tactic(n))
	return c
}

// DiamondLayer returns n's diamond-model layer index.
func DiamondLayer(n *model.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	i, ok := diamondLayers[n.Type]
	return i, ok
}

// Created parses the node's created timestamp.
func Created(n *model.Node) (time.Time, bool) {
	if n == nil {
		return time.Time{}, false
	}
	s := n.Data.String("created")
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MinCreated returns the earliest created timestamp among nodes.
func MinCreated(nodes []*model.Node) (time.Time, bool) {
	return extremeCreated(nodes, func(a, b time.Time) bool { return a.Before(b) })
}

// MaxCreated returns the latest created timestamp among nodes.
func MaxCreated(nodes []*model.Node) (time.Time, bool) {
	return extremeCreated(nodes, func(a, b time.Time) bool { return a.After(b) })
}

func extremeCreated(nodes []*model.Node, better func(a, b time.Time) bool) (time.Time, bool) {
	var best time.Time
	found := false
	for _, n := range nodes {
		t, ok := Created(n)
		if !ok {
			continue
		}
		if !found || better(t, best) {
			best, found = t, true
		}
	}
	return best, found
}

// ShortLabelWidth is the display width of a node label when the full name is
// not requested.
const ShortLabelWidth = 14

// Label is the text drawn under a node: its name, or its type when unnamed.
// Short labels are truncated by display width.
func Label(n *model.Node, full bool) string {
	if n == nil {
		return ""
	}
	s := n.Data.String("name")
	if s == "" {
		s = n.Type
	}
	if full {
		return s
	}
	return runewidth.Truncate(s, ShortLabelWidth, "…")
}

var icons = map[string]string{
	"grouping":          "GR",
	"attack-pattern":    "AP",
	"tool":              "TL",
	"malware":           "MW",
	"vulnerability":     "VU",
	"identity":          "ID",
	"indicator":         "IN",
	"threat-actor":      "TA",
	"observed-data":     "OD",
	"campaign":          "CA",
	"location":          "LO",
	"infrastructure":    "IF",
	"malware-analysis":  "MA",
	"note":              "NO",
	"opinion":           "OP",
	"file":              "FI",
	"directory":         "DI",
	"network-traffic":   "NT",
	"process":           "PR",
	"url":               "UR",
	"ipv4-addr":         "IP",
	"ipv6-addr":         "IP",
	"domain-name":       "DN",
	"autonomous-system": "AS",
	"software":          "SW",
	"user-account":      "UA",
	"code":              "CO",
}

// IconFor returns the two-letter glyph drawn for a STIX type.
func IconFor(typ string) string {
	if s, ok := icons[typ]; ok {
		return s
	}
	return "??"
}
