package types

import (
	"encoding/json"
	"time"
)

// State enum values for a container's update status.
const (
	StateUnknown         State = iota // No check performed yet.
	StateChecking                     // Resolve in progress.
	StateUpToDate                     // Running image matches the registry.
	StateUpdateAvailable              // Registry holds a newer digest.
	StateUpdating                     // Included in a running update job.
	StateUpdated                      // Replaced during the last job.
	StateError                        // Last check or update failed.
	StateLocalOnly                    // Image has no remote registry source.
)

// State indicates where a container currently sits in the update cycle.
type State int

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateUpToDate:
		return "up_to_date"
	case StateUpdateAvailable:
		return "update_available"
	case StateUpdating:
		return "updating"
	case StateUpdated:
		return "updated"
	case StateError:
		return "error"
	case StateLocalOnly:
		return "local_only"
	case StateUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its string name for API consumers.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UpdateStatus is the per-container entry held by the status store.
// Exactly one entry exists per currently-known container identity.
type UpdateStatus struct {
	// Name is the container name, carried for UI snapshots.
	Name string `json:"name"`
	// ImageName is the image reference the status refers to.
	ImageName string `json:"image"`
	// State is the current update state.
	State State `json:"state"`
	// CurrentDigest is the short form of the running image digest.
	CurrentDigest string `json:"current_digest,omitempty"`
	// RemoteDigest is the short form of the latest registry digest.
	RemoteDigest string `json:"remote_digest,omitempty"`
	// LastChecked is when the registry was last consulted.
	LastChecked time.Time `json:"last_checked,omitzero"`
	// LastError holds the most recent failure message, if any.
	LastError string `json:"last_error,omitempty"`
}
