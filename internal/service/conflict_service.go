package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"examtrack-sync/internal/domain"
)

// DetectConflict lists progress and note keys that both replicas changed
// after lastSync (ms) and that now hold different values. It returns nil when
// nothing diverged. Detection never blocks the merge.
func DetectConflict(local, remote *domain.SyncPayload, lastSync int64, now time.Time) *domain.SyncConflict {
	if local == nil || remote == nil {
		return nil
	}

	conflict := &domain.SyncConflict{
		DetectedAt:        now,
		RemoteTimestamp:   remote.Timestamp,
		DivergentProgress: divergent(local.Progress, local.ProgressLastModified, remote.Progress, remote.ProgressLastModified, lastSync),
		DivergentNotes:    divergent(local.Notes, local.NotesLastModified, remote.Notes, remote.NotesLastModified, lastSync),
	}

	for key := range remote.Progress {
		if _, ok := local.Progress[key]; !ok {
			conflict.RemoteOnly++
		}
	}

	if conflict.Size() == 0 {
		return nil
	}
	return conflict
}

func divergent[V comparable](
	localValues map[string]V, localTimes domain.Timestamps,
	remoteValues map[string]V, remoteTimes domain.Timestamps,
	lastSync int64,
) []string {
	var keys []string
	for key, localValue := range localValues {
		remoteValue, ok := remoteValues[key]
		if !ok || remoteValue == localValue {
			continue
		}
		if localTimes.Get(key) > lastSync && remoteTimes.Get(key) > lastSync {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

type ConflictService struct {
	sync *SyncService
}

func NewConflictService(sync *SyncService) *ConflictService {
	return &ConflictService{sync: sync}
}

// Pending returns the conflict reported by the latest sync, if any.
func (s *ConflictService) Pending() *domain.SyncConflict {
	conflict, _ := s.sync.LastConflict()
	return conflict
}

// Resolve settles the replicas with the chosen strategy: merge runs a
// foreground sync, local overwrites the remote blob, remote overwrites local
// payload fields.
func (s *ConflictService) Resolve(ctx context.Context, strategy domain.ResolutionStrategy) error {
	var err error
	switch strategy {
	case domain.ResolutionMerge:
		err = s.sync.SyncData(ctx, SyncOptions{Foreground: true})
	case domain.ResolutionLocal:
		err = s.sync.PushLocal(ctx)
	case domain.ResolutionRemote:
		err = s.sync.PullRemote(ctx)
	default:
		return fmt.Errorf("unknown resolution strategy %q", strategy)
	}
	if err != nil {
		return err
	}

	if strategy != domain.ResolutionMerge {
		s.sync.clearConflict()
	}
	return nil
}
