package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, log.InfoLevel, Level(false, false))
	assert.Equal(t, log.DebugLevel, Level(true, false))
	assert.Equal(t, log.ErrorLevel, Level(true, true))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, log.WarnLevel)
	l.Info("hidden")
	l.Warn("shown", "type", "pkg.A")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, Prefix)
	assert.Contains(t, out, "pkg.A")
}
