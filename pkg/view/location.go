package view

import "github.com/vanderheijden86/threatgraph/pkg/model"

// Location is the host's addressable navigation token, the fragment naming a
// mode. Replace must not trigger a reload.
type Location interface {
	Token() string
	Replace(token string)
}

// MemoryLocation keeps the token in memory. Used by hosts without an
// addressable location and by tests.
type MemoryLocation struct {
	token   string
	history []string
}

// NewMemoryLocation returns a location holding token.
func NewMemoryLocation(token string) *MemoryLocation {
	return &MemoryLocation{token: token}
}

func (l *MemoryLocation) Token() string { return l.token }

func (l *MemoryLocation) Replace(token string) {
	l.token = token
	l.history = append(l.history, token)
}

// History lists every token written with Replace.
func (l *MemoryLocation) History() []string { return l.history }

// InitialMode is the mode named by token, or fallback when token is empty or
// unknown.
func InitialMode(token string, fallback model.Mode) model.Mode {
	if m, ok := model.ParseMode(token); ok {
		return m
	}
	return fallback
}
