package testutil

// FixedSessionGenerator returns the same session id on every boot.
//
// Unlike bridge.FixedGenerator, which returns ids in sequence and panics when
// exhausted, this generator never runs out, so a scenario may reload as often
// as it likes and still produce byte-identical logs.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// If id is empty, Generate returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate implements bridge.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
