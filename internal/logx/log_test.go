package logx_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/a3tai/pdf-tools/internal/logx"
)

func TestConfigureLogLevel(t *testing.T) {
	t.Cleanup(func() { logx.Configure("info", false) })

	logx.Configure("all", false)
	assert.Equal(t, zerolog.TraceLevel, zerolog.GlobalLevel())

	logx.Configure("WARNING", true)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logx.Configure("none", false)
	assert.Equal(t, zerolog.Disabled, zerolog.GlobalLevel())

	logx.Configure("bogus", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestValidLevel(t *testing.T) {
	assert.True(t, logx.ValidLevel("Debug"))
	assert.True(t, logx.ValidLevel(" warn "))
	assert.False(t, logx.ValidLevel("verbose"))
}
