package domain

import "time"

type ResolutionStrategy string

const (
	ResolutionMerge  ResolutionStrategy = "merge"
	ResolutionLocal  ResolutionStrategy = "local"
	ResolutionRemote ResolutionStrategy = "remote"
)

// SyncConflict lists keys that both replicas changed since the last
// successful sync and that disagree.
type SyncConflict struct {
	DetectedAt        time.Time `json:"detectedAt"`
	RemoteTimestamp   string    `json:"remoteTimestamp"`
	DivergentProgress []string  `json:"divergentProgress,omitempty"`
	DivergentNotes    []string  `json:"divergentNotes,omitempty"`
	RemoteOnly        int       `json:"remoteOnly"`
}

func (c *SyncConflict) Size() int {
	if c == nil {
		return 0
	}
	return len(c.DivergentProgress) + len(c.DivergentNotes)
}

type ConflictResolutionRequest struct {
	Strategy ResolutionStrategy `json:"strategy" validate:"required,oneof=merge local remote"`
}
