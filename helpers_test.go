package healthshare_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	healthshare "github.com/ozanturksever/go-healthshare"
)

func details(t *testing.T, name string, port int) healthshare.NodeDetails {
	t.Helper()
	d, err := healthshare.NewNodeDetails(healthshare.NodeDetailsParams{
		Type:      healthshare.NodeTypeApplication,
		Name:      name,
		Host:      "10.0.0.1",
		Port:      port,
		StartedAt: 1_700_000_000_000,
	})
	require.NoError(t, err)
	return d
}

func health(t *testing.T, status healthshare.Status, name string, causes ...string) healthshare.NodeHealth {
	t.Helper()
	h, err := healthshare.NewNodeHealth(status, details(t, name, 9000), causes...)
	require.NoError(t, err)
	return h
}

func staticProvider(h healthshare.NodeHealth) healthshare.NodeHealthProvider {
	return healthshare.ProviderFunc(func(context.Context) (healthshare.NodeHealth, error) {
		return h, nil
	})
}

// logBuffer collects text log output; safe for concurrent use.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
