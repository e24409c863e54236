package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	config, err := LoadConfig("/nonexistent/observability.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "info", config.Logging.Level)
	assert.True(t, config.Metrics.Enabled)
	assert.False(t, config.Tracing.Enabled)
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `observability:
  logging:
    level: debug
  tracing:
    enabled: true
    exporter: zipkin
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.True(t, config.Tracing.Enabled)
	assert.Equal(t, "zipkin", config.Tracing.Exporter)
	assert.Equal(t, 9090, config.Metrics.PrometheusPort)
	assert.Equal(t, "governance-core", config.Tracing.ServiceName)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observability: [not a map"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSanitizeAPIKey(t *testing.T) {
	assert.Equal(t, "***", SanitizeAPIKey("short"))
	assert.Equal(t, "***", SanitizeAPIKey(""))
	assert.Equal(t, "sk-gov-1...wxyz", SanitizeAPIKey("sk-gov-1234567890abcdwxyz"))
}

func TestContextExecutionID(t *testing.T) {
	ctx := t.Context()
	assert.Empty(t, ExecutionIDFromContext(ctx))

	ctx = ContextWithExecutionID(ctx, "exec-123")
	assert.Equal(t, "exec-123", ExecutionIDFromContext(ctx))

	ctx = ContextWithSpanID(ctx, "span-456")
	assert.Equal(t, "span-456", SpanIDFromContext(ctx))
	assert.Equal(t, "exec-123", ExecutionIDFromContext(ctx))
}
