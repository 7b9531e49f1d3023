package logging

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGELFHandler_SendsDatagram(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	h, w, err := NewGELFHandler(pc.LocalAddr().String(), slog.LevelInfo)
	require.NoError(t, err)
	defer w.Close()

	slog.New(h).Info("to graylog", "floor", "first-floor")

	buf := make([]byte, 8192)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Positive(t, n)
}
