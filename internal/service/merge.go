package service

import (
	"time"

	"examtrack-sync/internal/domain"
)

// MergeData combines a local and a remote payload field by field.
//
//   - progress, notes: last write wins on the per-key timestamp. Remote wins
//     only when its timestamp is strictly greater; equal timestamps keep local.
//     A local timestamp without a value (a deleted entry) still takes part in
//     the comparison. A key unknown locally is adopted.
//   - times: the larger value wins; the winner's timestamp goes with it.
//   - history: the larger count per date.
//   - stars: union.
//   - repoSources: union by URL, local order first, remote-only entries appended.
//   - custom questions/papers/groups: remote entry replaces local on collision.
//   - version: the max of both; timestamp: now.
//
// Neither input is modified and nil inputs are treated as empty payloads.
func MergeData(local, remote *domain.SyncPayload, now time.Time) *domain.SyncPayload {
	if local == nil {
		local = domain.NewSyncPayload()
	}
	if remote == nil {
		remote = domain.NewSyncPayload()
	}

	merged := &domain.SyncPayload{
		Version:   max(local.Version, remote.Version),
		Timestamp: domain.FormatTimestamp(now),
	}

	merged.Progress, merged.ProgressLastModified = mergeLWW(
		local.Progress, local.ProgressLastModified,
		remote.Progress, remote.ProgressLastModified,
	)
	merged.Notes, merged.NotesLastModified = mergeLWW(
		local.Notes, local.NotesLastModified,
		remote.Notes, remote.NotesLastModified,
	)
	merged.Times, merged.TimesLastModified = mergeMax(
		local.Times, local.TimesLastModified,
		remote.Times, remote.TimesLastModified,
	)
	merged.History, _ = mergeMax(local.History, nil, remote.History, nil)
	merged.Stars = overlay(remote.Stars, local.Stars)
	merged.RepoSources = mergeRepoSources(local.RepoSources, remote.RepoSources)
	merged.CustomQuestions = overlay(local.CustomQuestions, remote.CustomQuestions)
	merged.CustomPapers = overlay(local.CustomPapers, remote.CustomPapers)
	merged.CustomPaperGroups = overlay(local.CustomPaperGroups, remote.CustomPaperGroups)

	merged.EnsureMaps()
	return merged
}

func mergeLWW[V any](
	localValues map[string]V, localTimes domain.Timestamps,
	remoteValues map[string]V, remoteTimes domain.Timestamps,
) (map[string]V, domain.Timestamps) {
	values := make(map[string]V, len(localValues)+len(remoteValues))
	times := make(domain.Timestamps, len(localTimes))
	for key, value := range localValues {
		values[key] = value
	}
	for key, ts := range localTimes {
		times[key] = ts
	}

	for key, remoteValue := range remoteValues {
		_, haveLocalValue := localValues[key]
		_, haveLocalTime := localTimes[key]
		if (haveLocalValue || haveLocalTime) && remoteTimes.Get(key) <= localTimes.Get(key) {
			continue
		}
		values[key] = remoteValue
		if ts, ok := remoteTimes[key]; ok {
			times[key] = ts
		}
	}

	return values, times
}

type number interface {
	~int | ~int64
}

func mergeMax[V number](
	localValues map[string]V, localTimes domain.Timestamps,
	remoteValues map[string]V, remoteTimes domain.Timestamps,
) (map[string]V, domain.Timestamps) {
	values := make(map[string]V, len(localValues)+len(remoteValues))
	times := make(domain.Timestamps, len(localTimes))
	for key, value := range localValues {
		values[key] = value
	}
	for key, ts := range localTimes {
		times[key] = ts
	}

	for key, remoteValue := range remoteValues {
		localValue, haveLocal := localValues[key]
		if haveLocal && remoteValue <= localValue {
			continue
		}
		values[key] = remoteValue
		if ts, ok := remoteTimes[key]; ok {
			times[key] = ts
		} else {
			delete(times, key)
		}
	}

	return values, times
}

// overlay copies base and then writes every entry of top over it.
func overlay[V any](base, top map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(top))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range top {
		out[key] = value
	}
	return out
}

func mergeRepoSources(local, remote []domain.RepoSource) []domain.RepoSource {
	seen := make(map[string]bool, len(local)+len(remote))
	out := make([]domain.RepoSource, 0, len(local)+len(remote))

	for _, sources := range [][]domain.RepoSource{local, remote} {
		for _, source := range sources {
			if seen[source.URL] {
				continue
			}
			seen[source.URL] = true
			out = append(out, source)
		}
	}

	return out
}
