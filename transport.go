package healthshare

import "context"

// MemberID is the opaque identity the cluster transport assigns to a
// member. It is stable for the lifetime of the member.
type MemberID string

// Transport is the cluster membership and replication layer health sharing
// runs on. Implementations live in the transport package.
//
// Failures caused by the cluster being unreachable must wrap
// ErrClusterInactive; operations issued after the local member left the
// cluster must wrap ErrMemberLeft.
type Transport interface {
	// LocalMember returns the identity of this process.
	LocalMember() MemberID

	// ClusterTime returns the logical cluster time in milliseconds. It
	// never decreases.
	ClusterTime(ctx context.Context) (int64, error)

	// Members returns the identities of the currently live members.
	Members(ctx context.Context) ([]MemberID, error)

	// PutHealth stores v under id, replacing any previous value.
	PutHealth(ctx context.Context, id MemberID, v TimestampedNodeHealth) error

	// RemoveHealth deletes the value stored under id. Removing an absent
	// key is not an error.
	RemoveHealth(ctx context.Context, id MemberID) error

	// HealthEntries returns a snapshot of every stored value.
	HealthEntries(ctx context.Context) (map[MemberID]TimestampedNodeHealth, error)
}
