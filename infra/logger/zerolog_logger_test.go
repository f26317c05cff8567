package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZerologLoggerConsoleMode(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("dispatch")
	assert.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"ride": "r1"})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerJSONMode(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	l := New("dispatch")
	assert.NotNil(t, l)
	l.Infof("structured output")
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debugf("ignored")
	l.Debugw("ignored", nil)
	l.Infof("ignored")
	l.Warnf("ignored")
	l.Errorf("ignored")
}
