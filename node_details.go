package healthshare

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeType identifies the role a node plays in the cluster.
type NodeType string

const (
	// NodeTypeApplication is a node serving the application.
	NodeTypeApplication NodeType = "APPLICATION"
	// NodeTypeSearch is a node hosting the search index.
	NodeTypeSearch NodeType = "SEARCH"
)

// Valid returns true if t is a known node type.
func (t NodeType) Valid() bool {
	return t == NodeTypeApplication || t == NodeTypeSearch
}

// NodeDetailsParams holds the raw fields used to build a NodeDetails.
type NodeDetailsParams struct {
	Type      NodeType
	Name      string
	Host      string
	Port      int
	StartedAt int64 // epoch milliseconds
}

// NodeDetails describes the identity of a node. It is immutable and
// comparable with ==.
type NodeDetails struct {
	typ       NodeType
	name      string
	host      string
	port      int
	startedAt int64
}

// NewNodeDetails validates p and returns the corresponding NodeDetails.
// Name and host are trimmed.
func NewNodeDetails(p NodeDetailsParams) (NodeDetails, error) {
	if !p.Type.Valid() {
		return NodeDetails{}, fmt.Errorf("%w: type %q is not one of %s, %s",
			ErrInvalidNodeDetails, p.Type, NodeTypeApplication, NodeTypeSearch)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return NodeDetails{}, fmt.Errorf("%w: name must not be empty", ErrInvalidNodeDetails)
	}
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return NodeDetails{}, fmt.Errorf("%w: host must not be empty", ErrInvalidNodeDetails)
	}
	if p.Port <= 0 {
		return NodeDetails{}, fmt.Errorf("%w: port must be > 0, got %d", ErrInvalidNodeDetails, p.Port)
	}
	if p.StartedAt <= 0 {
		return NodeDetails{}, fmt.Errorf("%w: startedAt must be > 0, got %d", ErrInvalidNodeDetails, p.StartedAt)
	}

	return NodeDetails{
		typ:       p.Type,
		name:      name,
		host:      host,
		port:      p.Port,
		startedAt: p.StartedAt,
	}, nil
}

// Type returns the node type.
func (d NodeDetails) Type() NodeType {
	return d.typ
}

// Name returns the trimmed node name.
func (d NodeDetails) Name() string {
	return d.name
}

// Host returns the trimmed host the node listens on.
func (d NodeDetails) Host() string {
	return d.host
}

// Port returns the port the node listens on.
func (d NodeDetails) Port() int {
	return d.port
}

// StartedAt returns the node start time in epoch milliseconds.
func (d NodeDetails) StartedAt() int64 {
	return d.startedAt
}

// IsZero returns true if d was not built by NewNodeDetails.
func (d NodeDetails) IsZero() bool {
	return d == NodeDetails{}
}

// String returns "name (TYPE host:port)".
func (d NodeDetails) String() string {
	return fmt.Sprintf("%s (%s %s:%d)", d.name, d.typ, d.host, d.port)
}

type nodeDetailsJSON struct {
	Type      NodeType `json:"type"`
	Name      string   `json:"name"`
	Host      string   `json:"host"`
	Port      int      `json:"port"`
	StartedAt int64    `json:"startedAt"`
}

// MarshalJSON implements json.Marshaler.
func (d NodeDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeDetailsJSON{
		Type:      d.typ,
		Name:      d.name,
		Host:      d.host,
		Port:      d.port,
		StartedAt: d.startedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded fields go through
// the same validation as NewNodeDetails.
func (d *NodeDetails) UnmarshalJSON(data []byte) error {
	var raw nodeDetailsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := NewNodeDetails(NodeDetailsParams(raw))
	if err != nil {
		return err
	}
	*d = details
	return nil
}
