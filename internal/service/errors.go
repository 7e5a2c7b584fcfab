package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrBuiltinSource   = errors.New("builtin sources cannot be removed")
	ErrDuplicateSource = errors.New("source url already present")
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrNoCredential    = errors.New("sync credential not configured")
	ErrInvalidStatus   = errors.New("invalid progress status")
)

type SyncStage string

const (
	StageFetch  SyncStage = "fetch"
	StageUpload SyncStage = "upload"
	StageApply  SyncStage = "apply"
)

// SyncError records which step of a sync attempt failed.
type SyncError struct {
	Stage SyncStage
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s failed: %v", e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
