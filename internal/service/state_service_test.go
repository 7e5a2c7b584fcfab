package service

import (
	"errors"
	"testing"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_SetStatus(t *testing.T) {
	repo := newMockStateRepo()
	clock := newTestClock(1_700_000_000_000)
	store := newTestStore(t, repo, clock)

	require.NoError(t, store.SetStatus("q1", domain.StatusFailed))
	clock.Set(1_700_000_005_000)
	require.NoError(t, store.SetStatus("q1", domain.StatusMastered))
	require.NoError(t, store.SetStatus("q2", domain.StatusUnanswered))

	snap := store.Snapshot()
	assert.Equal(t, domain.StatusMastered, snap.Progress["q1"])
	assert.Equal(t, int64(1_700_000_005_000), snap.ProgressLastModified["q1"])
	assert.Equal(t, domain.StatusUnanswered, snap.Progress["q2"])
	assert.Equal(t, 2, snap.History[historyDay(1_700_000_005_000)])

	err := store.SetStatus("q3", "perfect")
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	persisted, _ := repo.Load()
	assert.Equal(t, domain.StatusMastered, persisted.Payload.Progress["q1"])
}

func TestStateStore_NotesTimesStars(t *testing.T) {
	clock := newTestClock(5000)
	store := newTestStore(t, newMockStateRepo(), clock)

	require.NoError(t, store.SetNote("q1", "draw the diagram"))
	require.NoError(t, store.SetNote("q1", ""))
	require.NoError(t, store.AddTime("q1", 1200))
	clock.Set(6000)
	require.NoError(t, store.AddTime("q1", 800))
	assert.Error(t, store.AddTime("q1", 0))
	require.NoError(t, store.SetStar("q1", true))
	require.NoError(t, store.SetStar("q2", true))
	require.NoError(t, store.SetStar("q2", false))

	snap := store.Snapshot()
	note, ok := snap.Notes["q1"]
	assert.True(t, ok)
	assert.Equal(t, "", note)
	assert.Equal(t, int64(5000), snap.NotesLastModified["q1"])
	assert.Equal(t, int64(2000), snap.Times["q1"])
	assert.Equal(t, int64(6000), snap.TimesLastModified["q1"])
	assert.Equal(t, map[string]bool{"q1": true}, snap.Stars)
}

func TestStateStore_RepoSources(t *testing.T) {
	builtin := []domain.RepoSource{{Name: "official", URL: "https://example.com/bank", Enabled: true}}
	store, err := NewStateStore(newMockStateRepo(), builtin, nil)
	require.NoError(t, err)

	sources := store.RepoSources()
	require.Len(t, sources, 1)
	assert.True(t, sources[0].Builtin)

	custom := domain.RepoSource{Name: "mine", URL: "https://example.com/mine", Enabled: true, Builtin: true}
	require.NoError(t, store.AddRepoSource(custom))
	assert.False(t, store.RepoSources()[1].Builtin, "user sources are never builtin")

	err = store.AddRepoSource(custom)
	assert.True(t, errors.Is(err, ErrDuplicateSource))

	require.NoError(t, store.SetRepoSourceEnabled("https://example.com/mine", false))
	assert.False(t, store.RepoSources()[1].Enabled)

	assert.True(t, errors.Is(store.RemoveRepoSource("https://example.com/bank"), ErrBuiltinSource))
	assert.True(t, errors.Is(store.RemoveRepoSource("https://nowhere"), ErrNotFound))
	require.NoError(t, store.RemoveRepoSource("https://example.com/mine"))
	assert.Len(t, store.RepoSources(), 1)
}

func TestStateStore_ImportCustom(t *testing.T) {
	store := newTestStore(t, newMockStateRepo(), newTestClock(0))

	resp, err := store.ImportCustom(&domain.ImportRequest{
		Questions:   []domain.Question{{ID: "c1", Subject: "math"}, {ID: "c2", Subject: "math"}},
		Papers:      []domain.Paper{{ID: "p1", QuestionIDs: []string{"c1", "c2"}}},
		PaperGroups: []domain.PaperGroup{{ID: "g1", PaperIDs: []string{"p1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, &domain.ImportResponse{Questions: 2, Papers: 1, PaperGroups: 1}, resp)

	snap := store.Snapshot()
	assert.Len(t, snap.CustomQuestions, 2)
	assert.Contains(t, snap.CustomPapers, "p1")
	assert.Contains(t, snap.CustomPaperGroups, "g1")
}

func TestStateStore_PersistFailureLeavesStateUntouched(t *testing.T) {
	repo := newMockStateRepo()
	store := newTestStore(t, repo, newTestClock(10))

	var events int
	store.Subscribe(func(domain.StateEvent) { events++ })

	repo.saveErr = errors.New("disk full")
	err := store.SetStatus("q1", domain.StatusFailed)
	require.Error(t, err)

	assert.NotContains(t, store.Snapshot().Progress, "q1")
	assert.Equal(t, 0, events)
}

func TestStateStore_Subscribe(t *testing.T) {
	store := newTestStore(t, newMockStateRepo(), newTestClock(10))

	var got []domain.StateEvent
	unsubscribe := store.Subscribe(func(e domain.StateEvent) { got = append(got, e) })

	require.NoError(t, store.SetStatus("q1", domain.StatusConfused))
	require.NoError(t, store.AddTime("q1", 10))
	unsubscribe()
	require.NoError(t, store.SetNote("q1", "ignored"))

	require.Len(t, got, 2)
	assert.Equal(t, domain.StateEvent{Kind: domain.ChangeProgress, QuestionID: "q1"}, got[0])
	assert.True(t, got[0].TriggersSync())
	assert.False(t, got[1].TriggersSync())
}

func TestStateStore_ApplyMergedKeepsNewerLocalEdits(t *testing.T) {
	clock := newTestClock(100)
	store := newTestStore(t, newMockStateRepo(), clock)
	require.NoError(t, store.SetStatus("q1", domain.StatusMastered))

	merged := store.Snapshot()
	merged.Progress["q2"] = domain.StatusFailed
	merged.ProgressLastModified["q2"] = 150

	// An edit lands while the sync is in flight.
	clock.Set(200)
	require.NoError(t, store.SetStatus("q1", domain.StatusConfused))

	require.NoError(t, store.ApplyMerged(merged))

	snap := store.Snapshot()
	assert.Equal(t, domain.StatusConfused, snap.Progress["q1"])
	assert.Equal(t, domain.StatusFailed, snap.Progress["q2"])
}

func TestStateStore_ReplacePayloadKeepsBuiltinSources(t *testing.T) {
	builtin := []domain.RepoSource{{Name: "official", URL: "https://example.com/bank", Enabled: true}}
	store, err := NewStateStore(newMockStateRepo(), builtin, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetStatus("q1", domain.StatusMastered))

	remote := domain.NewSyncPayload()
	remote.Progress["q9"] = domain.StatusFailed

	require.NoError(t, store.ReplacePayload(remote))

	snap := store.Snapshot()
	assert.NotContains(t, snap.Progress, "q1")
	assert.Equal(t, domain.StatusFailed, snap.Progress["q9"])
	require.Len(t, snap.RepoSources, 1)
	assert.Equal(t, "https://example.com/bank", snap.RepoSources[0].URL)
}

func TestStateStore_SyncSettings(t *testing.T) {
	store := newTestStore(t, newMockStateRepo(), newTestClock(0))

	require.NoError(t, store.UpdateSyncSettings("token", "blob-1"))
	assert.Equal(t, domain.SyncSettings{Credential: "token", BlobID: "blob-1"}, store.Settings())

	require.NoError(t, store.UpdateSyncSettings("token-2", ""))
	assert.Equal(t, "blob-1", store.Settings().BlobID)

	require.NoError(t, store.ForgetBlob())
	assert.Equal(t, "", store.Settings().BlobID)

	require.NoError(t, store.ClearSyncSettings())
	assert.False(t, store.Settings().Configured())
}

func TestNewStateStore_PersistsMigration(t *testing.T) {
	kv, err := repository.NewBadgerKV("")
	require.NoError(t, err)
	defer kv.Close()

	v1 := `{"version":1,"state":{"payload":{"progress":{"q1":"failed"},"currentSession":{"index":2}}}}`
	require.NoError(t, kv.Set("examtrack:state", []byte(v1)))
	repo := repository.NewStateRepository(kv, nil)

	store, err := NewStateStore(repo, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, store.Snapshot().Progress["q1"])

	version, err := repo.StoredVersion()
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaVersion, version)
}
