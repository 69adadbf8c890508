package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	require.NoError(t, Setup(Config{Level: "debug", File: path}))
	defer func() { require.NoError(t, Setup(Config{})) }()

	l := With(New("pipeline"), map[string]any{"district": "north"})
	l.Debugf("compiled %d flows", 12)
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"component":"pipeline"`), line)
	assert.Contains(t, line, `"district":"north"`)
	assert.Contains(t, line, "compiled 12 flows")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup(Config{Level: "loud"}))
}

func TestWithOnNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	assert.Equal(t, l, With(l, map[string]any{"k": "v"}))
}
