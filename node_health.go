package healthshare

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Status is the self-assessed health of a node.
type Status string

const (
	StatusGreen  Status = "GREEN"
	StatusYellow Status = "YELLOW"
	StatusRed    Status = "RED"
)

// Valid returns true if s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusGreen, StatusYellow, StatusRed:
		return true
	default:
		return false
	}
}

// severity orders statuses so that the worst one compares highest.
func (s Status) severity() int {
	switch s {
	case StatusGreen:
		return 0
	case StatusYellow:
		return 1
	case StatusRed:
		return 2
	default:
		return -1
	}
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	if other.severity() > s.severity() {
		return other
	}
	return s
}

// NodeHealth is an immutable health snapshot of a single node.
type NodeHealth struct {
	status  Status
	causes  []string // sorted, deduplicated
	details NodeDetails
}

// NewNodeHealth validates its arguments and returns a NodeHealth. Causes are
// trimmed and deduplicated; their order is irrelevant.
func NewNodeHealth(status Status, details NodeDetails, causes ...string) (NodeHealth, error) {
	if !status.Valid() {
		return NodeHealth{}, fmt.Errorf("%w: status %q is not one of %s, %s, %s",
			ErrInvalidNodeHealth, status, StatusGreen, StatusYellow, StatusRed)
	}
	if details.IsZero() {
		return NodeHealth{}, fmt.Errorf("%w: details are required", ErrInvalidNodeHealth)
	}

	set := make([]string, 0, len(causes))
	for _, c := range causes {
		c = strings.TrimSpace(c)
		if c == "" {
			return NodeHealth{}, fmt.Errorf("%w: cause must not be empty", ErrInvalidNodeHealth)
		}
		set = append(set, c)
	}
	slices.Sort(set)
	set = slices.Compact(set)

	return NodeHealth{
		status:  status,
		causes:  set,
		details: details,
	}, nil
}

// Status returns the health status.
func (h NodeHealth) Status() Status {
	return h.status
}

// Causes returns a sorted copy of the causes.
func (h NodeHealth) Causes() []string {
	return slices.Clone(h.causes)
}

// Details returns the descriptor of the node this snapshot belongs to.
func (h NodeHealth) Details() NodeDetails {
	return h.details
}

// IsZero returns true if h was not built by NewNodeHealth.
func (h NodeHealth) IsZero() bool {
	return h.status == "" && h.details.IsZero() && len(h.causes) == 0
}

// Equal reports structural equality by status, causes and details.
func (h NodeHealth) Equal(other NodeHealth) bool {
	return h.status == other.status &&
		h.details == other.details &&
		slices.Equal(h.causes, other.causes)
}

// key returns a string that is equal for structurally equal values.
func (h NodeHealth) key() string {
	d := h.details
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%q",
		h.status, d.typ, d.name, d.host, d.port, d.startedAt, h.causes)
}

func (h NodeHealth) String() string {
	if len(h.causes) == 0 {
		return fmt.Sprintf("%s %s", h.details, h.status)
	}
	return fmt.Sprintf("%s %s %v", h.details, h.status, h.causes)
}

type nodeHealthJSON struct {
	Status  Status      `json:"status"`
	Causes  []string    `json:"causes"`
	Details NodeDetails `json:"details"`
}

// MarshalJSON implements json.Marshaler.
func (h NodeHealth) MarshalJSON() ([]byte, error) {
	causes := h.causes
	if causes == nil {
		causes = []string{}
	}
	return json.Marshal(nodeHealthJSON{
		Status:  h.status,
		Causes:  causes,
		Details: h.details,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded fields go through
// the same validation as NewNodeHealth.
func (h *NodeHealth) UnmarshalJSON(data []byte) error {
	var raw nodeHealthJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	health, err := NewNodeHealth(raw.Status, raw.Details, raw.Causes...)
	if err != nil {
		return err
	}
	*h = health
	return nil
}

var (
	_ json.Marshaler   = NodeHealth{}
	_ json.Unmarshaler = (*NodeHealth)(nil)
)
