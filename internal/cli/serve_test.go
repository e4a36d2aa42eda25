package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServeCommand_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	a.cfg.Retention.Days = 0

	// Port 0 lets the kernel pick a free port.
	cmd := &ServeCommand{Host: "127.0.0.1", globals: &GlobalFlags{}, version: "test"}
	a.cfg.Daemon.Port = 0

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, cmd.executeWithApp(ctx, a))
}

func TestServeCommand_ListenError(t *testing.T) {
	a := newTestApp(t)
	cmd := &ServeCommand{Host: "127.0.0.1", Port: -1, globals: &GlobalFlags{}}
	err := cmd.executeWithApp(context.Background(), a)
	require.Error(t, err)
}
