package healthshare

import (
	"fmt"
	"testing"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateNotStarted, "NOT_STARTED"},
		{StateStarted, "STARTED"},
		{StateStopped, "STOPPED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusWorse(t *testing.T) {
	tests := []struct {
		a, b Status
		want Status
	}{
		{StatusGreen, StatusGreen, StatusGreen},
		{StatusGreen, StatusYellow, StatusYellow},
		{StatusYellow, StatusGreen, StatusYellow},
		{StatusYellow, StatusRed, StatusRed},
		{StatusRed, StatusGreen, StatusRed},
		{StatusGreen, Status("BLUE"), StatusGreen},
	}

	for _, tt := range tests {
		t.Run(string(tt.a)+"_"+string(tt.b), func(t *testing.T) {
			if got := tt.a.Worse(tt.b); got != tt.want {
				t.Errorf("%s.Worse(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFreshAfter(t *testing.T) {
	entry := TimestampedNodeHealth{Timestamp: 1000}

	if !entry.freshAfter(999) {
		t.Error("entry published after the cutoff should be fresh")
	}
	if entry.freshAfter(1000) {
		t.Error("entry published exactly at the cutoff should be stale")
	}
	if entry.freshAfter(1001) {
		t.Error("entry published before the cutoff should be stale")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cluster inactive", ErrClusterInactive, true},
		{"member left", ErrMemberLeft, true},
		{"wrapped", fmt.Errorf("read: %w", fmt.Errorf("put: %w", ErrClusterInactive)), true},
		{"invalid health", ErrInvalidNodeHealth, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
