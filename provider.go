package healthshare

import "context"

// NodeHealthProvider computes the current health of the local node.
type NodeHealthProvider interface {
	Get(ctx context.Context) (NodeHealth, error)
}

// ProviderFunc adapts a function to NodeHealthProvider.
type ProviderFunc func(ctx context.Context) (NodeHealth, error)

// Get calls f(ctx).
func (f ProviderFunc) Get(ctx context.Context) (NodeHealth, error) {
	return f(ctx)
}

var _ NodeHealthProvider = ProviderFunc(nil)
