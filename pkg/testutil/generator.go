// Package testutil provides STIX bundle fixture generators and layout
// assertions for tests. All generators produce deterministic output for
// reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Phases are kill-chain phase names as they appear in STIX bundles.
var Phases = []string{
	"reconnaissance",
	"initial-access",
	"execution",
	"persistence",
	"privilege-escalation",
	"defense-evasion",
	"credential-access",
	"discovery",
	"lateral-movement",
	"collection",
	"command-and-control",
	"exfiltration",
	"impact",
}

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed     int64         // Random seed for determinism (0 = use current time)
	BaseTime time.Time     // Created timestamp of the first grouping
	Spacing  time.Duration // Gap between consecutive groupings
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		BaseTime: time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC),
		Spacing:  90 * 24 * time.Hour,
	}
}

// Generator creates bundle fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultConfig().BaseTime
	}
	if cfg.Spacing == 0 {
		cfg.Spacing = DefaultConfig().Spacing
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Object is one STIX object in a fixture.
type Object = map[string]any

// Fixture is a bundle under construction.
type Fixture struct {
	ID      string
	Objects []Object
}

// JSON encodes the fixture as a bundle document.
func (f Fixture) JSON() []byte {
	data, err := json.Marshal(map[string]any{
		"type":    "bundle",
		"id":      f.ID,
		"objects": f.Objects,
	})
	if err != nil {
		panic(fmt.Sprintf("testutil: encoding fixture: %v", err))
	}
	return data
}

// OfType returns the objects with the given type, in fixture order.
func (f Fixture) OfType(typ string) []Object {
	var out []Object
	for _, o := range f.Objects {
		if o["type"] == typ {
			out = append(out, o)
		}
	}
	return out
}

// ID returns a deterministic "<typ>--<uuid>" identifier.
func (g *Generator) ID(typ string) string {
	u, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		panic(fmt.Sprintf("testutil: generating id: %v", err))
	}
	return typ + "--" + u.String()
}

func (g *Generator) object(typ string, created time.Time) Object {
	return Object{
		"type":         typ,
		"id":           g.ID(typ),
		"spec_version": "2.1",
		"created":      created.UTC().Format(time.RFC3339Nano),
		"modified":     created.UTC().Format(time.RFC3339Nano),
	}
}

// Named returns an SDO of typ with a name and description.
func (g *Generator) Named(typ, name string) Object {
	o := g.object(typ, g.cfg.BaseTime)
	o["name"] = name
	o["description"] = fmt.Sprintf("%s %s", typ, name)
	return o
}

// AttackPattern returns an attack pattern in the given kill-chain phase.
func (g *Generator) AttackPattern(name, phase string) Object {
	o := g.Named("attack-pattern", name)
	if phase != "" {
		o["kill_chain_phases"] = []any{
			map[string]any{"kill_chain_name": "mitre-attack", "phase_name": phase},
		}
	}
	return o
}

// Relationship links src to tgt.
func (g *Generator) Relationship(src, tgt Object, rel string) Object {
	o := g.object("relationship", g.cfg.BaseTime)
	o["relationship_type"] = rel
	o["source_ref"] = src["id"]
	o["target_ref"] = tgt["id"]
	return o
}

// Grouping returns a grouping created at created that references members.
func (g *Generator) Grouping(name string, created time.Time, members ...Object) Object {
	o := g.object("grouping", created)
	o["name"] = name
	o["context"] = "suspicious-activity"
	refs := make([]any, len(members))
	for i, m := range members {
		refs[i] = m["id"]
	}
	o["object_refs"] = refs
	return o
}

// Bundle wraps objects in a new fixture.
func (g *Generator) Bundle(objects ...Object) Fixture {
	return Fixture{ID: g.ID("bundle"), Objects: objects}
}

// Minimal is a grouping owning an attack pattern that uses a malware.
// It parses to two nodes and one link.
func (g *Generator) Minimal() Fixture {
	ap := g.AttackPattern("Spearphishing Attachment", "initial-access")
	mw := g.Named("malware", "Emotet")
	rel := g.Relationship(ap, mw, "uses")
	gr := g.Grouping("Thread 1", g.cfg.BaseTime, ap, mw, rel)
	return g.Bundle(gr, ap, mw, rel)
}

// Threads builds count groupings, each owning perThread attack patterns in
// cycling phases plus one malware every pattern uses.
func (g *Generator) Threads(count, perThread int) Fixture {
	var objs []Object
	phase := 0
	for i := 0; i < count; i++ {
		mw := g.Named("malware", fmt.Sprintf("mw-%d", i))
		members := []Object{mw}
		var rest []Object
		for j := 0; j < perThread; j++ {
			ap := g.AttackPattern(fmt.Sprintf("ap-%d-%d", i, j), Phases[phase%len(Phases)])
			phase++
			rel := g.Relationship(ap, mw, "uses")
			members = append(members, ap, rel)
			rest = append(rest, ap, rel)
		}
		created := g.cfg.BaseTime.Add(time.Duration(i) * g.cfg.Spacing)
		objs = append(objs, g.Grouping(fmt.Sprintf("Thread %d", i+1), created, members...), mw)
		objs = append(objs, rest...)
	}
	return g.Bundle(objs...)
}

// Diamond builds one grouping whose sub graph holds one object per
// diamond-model layer plus a note with no layer, chained by relationships.
func (g *Generator) Diamond() Fixture {
	ta := g.Named("threat-actor", "APT-X")
	ap := g.AttackPattern("Phishing", "initial-access")
	infra := g.Named("infrastructure", "C2 server")
	victim := g.Named("identity", "ACME Corp")
	note := g.Named("note", "analyst note")
	r1 := g.Relationship(ta, ap, "uses")
	r2 := g.Relationship(ap, infra, "uses")
	r3 := g.Relationship(infra, victim, "targets")
	r4 := g.Relationship(note, victim, "related-to")
	gr := g.Grouping("Diamond", g.cfg.BaseTime, ta, ap, infra, victim, note, r1, r2, r3, r4)
	return g.Bundle(gr, ta, ap, infra, victim, note, r1, r2, r3, r4)
}

// Random scatters n objects of mixed types with random phases and density
// links, all owned by a single grouping.
func (g *Generator) Random(n int, density float64) Fixture {
	types := []string{"attack-pattern", "malware", "tool", "threat-actor", "indicator", "identity", "note"}
	nodes := make([]Object, n)
	for i := range nodes {
		typ := types[g.rng.Intn(len(types))]
		if typ == "attack-pattern" {
			nodes[i] = g.AttackPattern(fmt.Sprintf("ap-%d", i), Phases[g.rng.Intn(len(Phases))])
		} else {
			nodes[i] = g.Named(typ, fmt.Sprintf("%s-%d", typ, i))
		}
	}
	var rels []Object
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if g.rng.Float64() < density {
				rels = append(rels, g.Relationship(nodes[i], nodes[j], "related-to"))
			}
		}
	}
	members := append(append([]Object{}, nodes...), rels...)
	gr := g.Grouping("Random", g.cfg.BaseTime, members...)
	return g.Bundle(append([]Object{gr}, members...)...)
}

// QuickMinimal returns the minimal bundle JSON with default settings.
func QuickMinimal() []byte {
	return NewDefault().Minimal().JSON()
}

// QuickThreads returns a threads bundle JSON with default settings.
func QuickThreads(count, perThread int) []byte {
	return NewDefault().Threads(count, perThread).JSON()
}
