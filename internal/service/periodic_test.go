package service

import (
	"testing"
	"time"

	"examtrack-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicSync_DisabledInterval(t *testing.T) {
	f := newSyncFixture(t, "token", "")
	p := NewPeriodicSync(f.sync, 0, nil)

	require.NoError(t, p.Start())
	p.Stop()

	_, uploads := f.blobs.counts()
	assert.Zero(t, uploads)
}

func TestPeriodicSync_TickRunsBackgroundSync(t *testing.T) {
	f := newSyncFixture(t, "token", "blob-1")
	f.blobs.put("blob-1", remotePayload())
	require.NoError(t, f.store.SetStatus("q1", domain.StatusMastered))

	NewPeriodicSync(f.sync, time.Minute, nil).tick()

	_, uploads := f.blobs.counts()
	assert.Equal(t, 1, uploads)
	assert.Equal(t, domain.StatusMastered, f.blobs.get("blob-1").Progress["q1"])
	assert.Equal(t, domain.SyncSuccess, f.sync.Status().State)
}
