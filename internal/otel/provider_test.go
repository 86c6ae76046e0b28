package otel

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_NilLoggerProvider(t *testing.T) {
	var p *Provider
	assert.Nil(t, p.LoggerProvider())
}

func TestNew_EnabledRequiresWriter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "fpcam"})
	assert.Error(t, err)
}

func TestProvider_ExportsMetricsOnFlush(t *testing.T) {
	out := &syncBuffer{}
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    "fpcam",
		ServiceVersion: "test",
		BatchTimeout:   time.Second,
		MetricInterval: time.Hour,
		LogWriter:      out,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	counter, err := p.Meter("fpcam/test").Int64Counter("camera.transitions")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	require.NoError(t, p.Flush(context.Background()))

	assert.Contains(t, out.String(), "camera.transitions")
	assert.Contains(t, out.String(), "fpcam")
}

func TestProvider_ExportsLogsOnFlush(t *testing.T) {
	out := &syncBuffer{}
	p, err := New(Config{
		Enabled:     true,
		ServiceName: "fpcam",
		LogWriter:   out,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	var rec otellog.Record
	rec.SetBody(otellog.StringValue("first person entered"))
	p.LoggerProvider().Logger("fpcam/test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, out.String(), "first person entered")
}
