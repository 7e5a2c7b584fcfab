package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/repository"
)

type mockStateRepo struct {
	mu      sync.Mutex
	state   *domain.StudyState
	saveErr error
	saves   int
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{}
}

func copyState(s *domain.StudyState) *domain.StudyState {
	return &domain.StudyState{Payload: s.Payload.Clone(), Settings: s.Settings}
}

func (m *mockStateRepo) Load() (*domain.StudyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return domain.NewStudyState(), nil
	}
	return copyState(m.state), nil
}

func (m *mockStateRepo) Save(state *domain.StudyState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = copyState(state)
	return nil
}

func (m *mockStateRepo) StoredVersion() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return 0, nil
	}
	return domain.SchemaVersion, nil
}

type mockBlobRepo struct {
	mu        sync.Mutex
	blobs     map[string]*domain.SyncPayload
	fetchErrs []error
	uploadErr error
	fetches   int
	uploads   int
	nextID    int

	// When gate is set, Fetch signals entered and waits for gate to close.
	gate    chan struct{}
	entered chan struct{}
}

func newMockBlobRepo() *mockBlobRepo {
	return &mockBlobRepo{blobs: make(map[string]*domain.SyncPayload)}
}

func (m *mockBlobRepo) put(id string, p *domain.SyncPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = p.Clone()
}

func (m *mockBlobRepo) get(id string) *domain.SyncPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.blobs[id]; ok {
		return p.Clone()
	}
	return nil
}

func (m *mockBlobRepo) counts() (fetches, uploads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches, m.uploads
}

func (m *mockBlobRepo) Fetch(ctx context.Context, credential, id string) (*repository.RemoteBlob, error) {
	m.mu.Lock()
	gate, entered := m.gate, m.entered
	m.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++

	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	p, ok := m.blobs[id]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	return &repository.RemoteBlob{ID: id, Payload: p.Clone(), ModifiedMarker: "rev-fetched"}, nil
}

func (m *mockBlobRepo) Upload(ctx context.Context, credential, id string, payload *domain.SyncPayload) (*repository.BlobRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++

	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	if id == "" {
		m.nextID++
		id = fmt.Sprintf("blob-%d", m.nextID)
	} else if _, ok := m.blobs[id]; !ok {
		return nil, repository.ErrBlobNotFound
	}

	m.blobs[id] = payload.Clone()
	return &repository.BlobRef{ID: id, ModifiedMarker: fmt.Sprintf("rev-%d", m.uploads)}, nil
}

type mockTimer struct {
	scheduler *mockScheduler
	delay     time.Duration
	fn        func()
	stopped   bool
	fired     bool
}

func (t *mockTimer) Stop() bool {
	t.scheduler.mu.Lock()
	defer t.scheduler.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// mockScheduler records deferred tasks; tests fire them explicitly.
type mockScheduler struct {
	mu     sync.Mutex
	timers []*mockTimer
}

func (s *mockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &mockTimer{scheduler: s, delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *mockScheduler) active(d time.Duration) []*mockTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mockTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.delay == d {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every active task with delay d and reports how many ran.
func (s *mockScheduler) fire(d time.Duration) int {
	timers := s.active(d)
	for _, t := range timers {
		s.mu.Lock()
		t.fired = true
		s.mu.Unlock()
		t.fn()
	}
	return len(timers)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(ms int64) *testClock {
	return &testClock{now: time.UnixMilli(ms)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms)
}

func newTestStore(t *testing.T, repo *mockStateRepo, clock *testClock) *StateStore {
	t.Helper()
	store, err := NewStateStore(repo, nil, nil)
	if err != nil {
		t.Fatalf("NewStateStore() error = %v", err)
	}
	store.now = clock.Now
	return store
}

type statusRecorder struct {
	mu     sync.Mutex
	states []domain.SyncState
}

func (r *statusRecorder) record(s domain.SyncStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

func (r *statusRecorder) seen(state domain.SyncState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s == state {
			return true
		}
	}
	return false
}
