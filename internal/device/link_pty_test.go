//go:build linux

package device

import (
	"errors"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func TestLinkOverPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	l := NewLink(Config{ReadTimeout: 50 * time.Millisecond})
	if err := l.Connect(slave.Name()); err != nil {
		t.Skipf("serial open on pty not supported here: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	_, err = master.Write([]byte("415\r\n"))
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := l.ReadLine()
		if errors.Is(err, ErrNoData) {
			continue
		}
		require.NoError(t, err)
		require.Equal(t, "415", line)
		return
	}
	t.Fatal("timeout waiting for line from pty")
}
