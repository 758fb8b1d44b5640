package healthshare

import "errors"

// Health sharing errors.
var (
	// ErrInvalidNodeDetails indicates a NodeDetails could not be built from the given fields.
	ErrInvalidNodeDetails = errors.New("invalid node details")

	// ErrInvalidNodeHealth indicates a NodeHealth could not be built from the given fields.
	ErrInvalidNodeHealth = errors.New("invalid node health")

	// ErrClusterInactive indicates the cluster transport is not currently reachable.
	// Refresh ticks treat it as a harmless miss.
	ErrClusterInactive = errors.New("cluster transport not active")

	// ErrMemberLeft indicates the local member has left the cluster.
	ErrMemberLeft = errors.New("member has left the cluster")

	// ErrAlreadyStarted indicates the component is already running.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted indicates the component has not been started yet.
	ErrNotStarted = errors.New("not started")

	// ErrStopped indicates the component was stopped and cannot be restarted.
	ErrStopped = errors.New("already stopped")

	// ErrSchedulerShutdown indicates a task was submitted to a scheduler that is shutting down.
	ErrSchedulerShutdown = errors.New("scheduler shut down")
)

// IsTransient reports whether err belongs to the "cluster currently
// unreachable" class that a refresh tick swallows quietly.
func IsTransient(err error) bool {
	return errors.Is(err, ErrClusterInactive) || errors.Is(err, ErrMemberLeft)
}
