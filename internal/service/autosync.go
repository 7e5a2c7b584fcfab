package service

import "examtrack-sync/internal/domain"

// AutoSync schedules a debounced sync after every edit that should reach the
// remote. It returns the unsubscribe func.
func AutoSync(store *StateStore, sync *SyncService) func() {
	return store.Subscribe(func(event domain.StateEvent) {
		if event.TriggersSync() {
			sync.ScheduleSync()
		}
	})
}
