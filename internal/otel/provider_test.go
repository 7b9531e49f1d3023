package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(Config{Enabled: true})
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestServiceAttrs(t *testing.T) {
	attrs := serviceAttrs(Config{ServiceName: "floormap", Version: "1.4.0", InstanceID: "lobby-kiosk"})
	set := attribute.NewSet(attrs...)

	v, ok := set.Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "floormap", v.AsString())
	v, ok = set.Value("service.version")
	require.True(t, ok)
	assert.Equal(t, "1.4.0", v.AsString())
	v, ok = set.Value("service.instance.id")
	require.True(t, ok)
	assert.Equal(t, "lobby-kiosk", v.AsString())

	assert.Len(t, serviceAttrs(Config{ServiceName: "floormap"}), 1)
}

func TestNew_WriterExport(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, LogWriter: &buf, BatchTimeout: time.Second, Version: "dev"})
	require.NoError(t, err)
	require.True(t, p.Enabled())
	assert.Equal(t, "floormap", p.cfg.ServiceName)

	var rec otellog.Record
	rec.SetBody(otellog.StringValue("floor loaded"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "floor loaded")
	assert.Contains(t, buf.String(), "floormap")

	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}
