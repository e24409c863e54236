package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	infos []string
}

func (r *recordingLogger) Debug(format string, args ...any) {}
func (r *recordingLogger) Info(format string, args ...any)  { r.infos = append(r.infos, format) }
func (r *recordingLogger) Warn(format string, args ...any)  {}
func (r *recordingLogger) Error(format string, args ...any) {}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(nil))
	var typed *recordingLogger
	assert.True(t, IsNil(typed))
	assert.False(t, IsNil(&recordingLogger{}))
	assert.False(t, IsNil(Nop()))
}

func TestOrNop(t *testing.T) {
	logger := &recordingLogger{}
	assert.Same(t, logger, OrNop(logger).(*recordingLogger))

	nop := OrNop(nil)
	// Must not panic.
	nop.Info("ignored")
}

func TestFromSlog_NilLogger(t *testing.T) {
	logger := FromSlog(nil, "component")
	logger.Info("discarded")
}
