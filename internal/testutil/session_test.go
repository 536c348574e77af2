package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionGenerator_AlwaysSame(t *testing.T) {
	gen := NewFixedSessionGenerator("scenario-session")
	for i := 0; i < 3; i++ {
		assert.Equal(t, "scenario-session", gen.Generate())
	}
}

func TestFixedSessionGenerator_Default(t *testing.T) {
	gen := NewFixedSessionGenerator("")
	assert.Equal(t, "test-session-default", gen.Generate())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
