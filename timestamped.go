package healthshare

import (
	"encoding/json"
	"fmt"
)

// TimestampedNodeHealth is the value stored in the shared store: a health
// snapshot anchored to the logical cluster time (ms) at which it was
// published.
type TimestampedNodeHealth struct {
	NodeHealth NodeHealth
	Timestamp  int64
}

// freshAfter returns true if the entry was published strictly after staleBefore.
func (t TimestampedNodeHealth) freshAfter(staleBefore int64) bool {
	return t.Timestamp > staleBefore
}

type timestampedJSON struct {
	NodeHealth *NodeHealth `json:"nodeHealth"`
	Timestamp  int64       `json:"timestamp"`
}

// MarshalJSON implements json.Marshaler.
func (t TimestampedNodeHealth) MarshalJSON() ([]byte, error) {
	return json.Marshal(timestampedJSON{
		NodeHealth: &t.NodeHealth,
		Timestamp:  t.Timestamp,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TimestampedNodeHealth) UnmarshalJSON(data []byte) error {
	var raw timestampedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.NodeHealth == nil {
		return fmt.Errorf("%w: nodeHealth is required", ErrInvalidNodeHealth)
	}
	t.NodeHealth = *raw.NodeHealth
	t.Timestamp = raw.Timestamp
	return nil
}
