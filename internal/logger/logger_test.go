package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.log")
	log, err := New(Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.With(String("tab", "t1")).Debug("delivery failed", Error(errors.New("boom")), Int("bytes", 42))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"msg":"delivery failed"`), line)
	assert.True(t, strings.Contains(line, `"tab":"t1"`), line)
	assert.True(t, strings.Contains(line, `"error":"boom"`), line)
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	log.With(String("k", "v")).Error("ignored")
	assert.NoError(t, log.Sync())
}
