package domain

import "time"

// SyncSettings never leaves the device; it is not part of SyncPayload.
type SyncSettings struct {
	Credential         string `json:"credential,omitempty"`
	BlobID             string `json:"blobId,omitempty"`
	LastSyncTime       int64  `json:"lastSyncTime,omitempty"`
	LastRemoteModified string `json:"lastRemoteModified,omitempty"`
}

func (s SyncSettings) Configured() bool {
	return s.Credential != ""
}

// StudyState is everything persisted locally.
type StudyState struct {
	Payload  *SyncPayload `json:"payload"`
	Settings SyncSettings `json:"settings"`
}

func NewStudyState() *StudyState {
	return &StudyState{Payload: NewSyncPayload()}
}

type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncSuccess SyncState = "success"
	SyncError   SyncState = "error"
)

type SyncStatus struct {
	State        SyncState     `json:"state"`
	Pending      bool          `json:"pending"`
	LastError    string        `json:"lastError,omitempty"`
	LastSyncTime *time.Time    `json:"lastSyncTime,omitempty"`
	Conflict     *SyncConflict `json:"conflict,omitempty"`
}

type SyncRequest struct {
	Foreground *bool `json:"foreground"`
}

type SyncResponse struct {
	Status SyncStatus `json:"status"`
	BlobID string     `json:"blobId,omitempty"`
}

type UpdateSyncSettingsRequest struct {
	Credential string `json:"credential" validate:"required"`
	BlobID     string `json:"blobId"`
}

type StateChangeKind string

const (
	ChangeProgress StateChangeKind = "progress"
	ChangeNotes    StateChangeKind = "notes"
	ChangeTimes    StateChangeKind = "times"
	ChangeStars    StateChangeKind = "stars"
	ChangeSources  StateChangeKind = "sources"
	ChangeCustom   StateChangeKind = "custom"
	ChangeSettings StateChangeKind = "settings"
	ChangeApplied  StateChangeKind = "applied"
)

type StateEvent struct {
	Kind       StateChangeKind `json:"kind"`
	QuestionID string          `json:"questionId,omitempty"`
}

// TriggersSync reports whether the change should schedule a debounced sync.
func (e StateEvent) TriggersSync() bool {
	switch e.Kind {
	case ChangeProgress, ChangeNotes, ChangeStars:
		return true
	}
	return false
}
