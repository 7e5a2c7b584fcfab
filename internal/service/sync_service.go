package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/repository"

	"golang.org/x/time/rate"
)

type SyncConfig struct {
	DebounceDelay  time.Duration
	SuccessDisplay time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	// RequestsPerSecond paces calls to the blob store; 0 means unlimited.
	RequestsPerSecond float64
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		DebounceDelay:     2 * time.Second,
		SuccessDisplay:    2 * time.Second,
		RequestTimeout:    15 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      500 * time.Millisecond,
		RequestsPerSecond: 1,
	}
}

type SyncOptions struct {
	// Foreground syncs are user initiated and fold the merged payload back
	// into local state. Background syncs only upload.
	Foreground bool
}

// SyncService drives fetch, merge, upload and apply against the remote blob
// store. At most one attempt runs at a time.
type SyncService struct {
	store     *StateStore
	blobs     repository.BlobRepository
	scheduler Scheduler
	limiter   *rate.Limiter
	cfg       SyncConfig
	logger    *log.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	status     domain.SyncStatus
	running    bool
	pending    Timer
	pendingGen int
	idle       Timer
	idleGen    int
	lastRemote *domain.SyncPayload
	listeners  map[int]func(domain.SyncStatus)
	nextListen int
}

func NewSyncService(
	store *StateStore,
	blobs repository.BlobRepository,
	scheduler Scheduler,
	cfg SyncConfig,
	logger *log.Logger,
) *SyncService {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if scheduler == nil {
		scheduler = NewScheduler()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &SyncService{
		store:     store,
		blobs:     blobs,
		scheduler: scheduler,
		limiter:   rate.NewLimiter(limit, 2),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		status:    domain.SyncStatus{State: domain.SyncIdle},
		listeners: make(map[int]func(domain.SyncStatus)),
	}

	if last := store.Settings().LastSyncTime; last > 0 {
		t := time.UnixMilli(last)
		s.status.LastSyncTime = &t
	}

	return s
}

func (s *SyncService) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnStatus registers fn for every status change and returns its cancel func.
func (s *SyncService) OnStatus(fn func(domain.SyncStatus)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// notifyLocked snapshots status and listeners; call the result after unlocking.
func (s *SyncService) notifyLocked() func() {
	status := s.status
	fns := make([]func(domain.SyncStatus), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(status)
		}
	}
}

// ScheduleSync debounces a background sync. Each call restarts the quiet
// period; the status shows syncing while the timer is pending.
func (s *SyncService) ScheduleSync() {
	if !s.store.Settings().Configured() {
		return
	}

	s.mu.Lock()
	s.armLocked()
	s.stopIdleLocked()
	s.status.Pending = true
	s.status.State = domain.SyncSyncing
	s.status.LastError = ""
	notify := s.notifyLocked()
	s.mu.Unlock()

	notify()
}

func (s *SyncService) armLocked() {
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pendingGen++
	gen := s.pendingGen
	s.pending = s.scheduler.AfterFunc(s.cfg.DebounceDelay, func() {
		s.fireScheduled(gen)
	})
}

func (s *SyncService) fireScheduled(gen int) {
	s.mu.Lock()
	if gen != s.pendingGen {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.armLocked()
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.status.Pending = false
	s.mu.Unlock()

	if err := s.SyncData(s.ctx, SyncOptions{}); err != nil && !errors.Is(err, ErrSyncInProgress) {
		s.logger.Printf("background sync failed: %v", err)
	}
}

func (s *SyncService) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.pendingGen++
	s.status.Pending = false
}

func (s *SyncService) stopIdleLocked() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.idleGen++
}

// SyncData runs one sync attempt. Without a credential it does nothing.
// Failures are recorded in the status and also returned.
func (s *SyncService) SyncData(ctx context.Context, opts SyncOptions) error {
	return s.run(ctx, opts.Foreground, func(ctx context.Context, settings domain.SyncSettings) (*domain.SyncConflict, error) {
		local := s.store.Snapshot()
		upload := local
		id := settings.BlobID

		var conflict *domain.SyncConflict
		var remote *domain.SyncPayload
		if id != "" {
			blob, err := s.fetch(ctx, settings.Credential, id)
			switch {
			case errors.Is(err, repository.ErrBlobNotFound):
				s.logger.Printf("remote blob %s not found, uploading local state as a new blob", id)
				if err := s.store.ForgetBlob(); err != nil {
					return nil, &SyncError{Stage: StageApply, Err: err}
				}
				id = ""
			case err != nil:
				return nil, &SyncError{Stage: StageFetch, Err: err}
			default:
				remote = blob.Payload
				// An unchanged marker means nobody else wrote since our last upload.
				if !remoteUnchanged(blob, settings) {
					conflict = DetectConflict(local, remote, settings.LastSyncTime, s.now())
				}
				upload = MergeData(local, remote, s.now())
			}
		}

		ref, err := s.upload(ctx, settings.Credential, id, upload)
		if err != nil {
			return nil, &SyncError{Stage: StageUpload, Err: err}
		}
		if err := s.store.RecordSync(ref, s.now()); err != nil {
			return nil, &SyncError{Stage: StageApply, Err: err}
		}

		if opts.Foreground && remote != nil {
			if err := s.store.ApplyMerged(upload); err != nil {
				return nil, &SyncError{Stage: StageApply, Err: err}
			}
		}

		s.mu.Lock()
		s.lastRemote = remote
		s.mu.Unlock()

		return conflict, nil
	})
}

func remoteUnchanged(blob *repository.RemoteBlob, settings domain.SyncSettings) bool {
	return blob.ModifiedMarker != "" && blob.ModifiedMarker == settings.LastRemoteModified
}

// PushLocal uploads local state as-is, overwriting the remote blob.
func (s *SyncService) PushLocal(ctx context.Context) error {
	return s.run(ctx, true, func(ctx context.Context, settings domain.SyncSettings) (*domain.SyncConflict, error) {
		ref, err := s.upload(ctx, settings.Credential, settings.BlobID, s.store.Snapshot())
		if errors.Is(err, repository.ErrBlobNotFound) {
			ref, err = s.upload(ctx, settings.Credential, "", s.store.Snapshot())
		}
		if err != nil {
			return nil, &SyncError{Stage: StageUpload, Err: err}
		}
		if err := s.store.RecordSync(ref, s.now()); err != nil {
			return nil, &SyncError{Stage: StageApply, Err: err}
		}
		return nil, nil
	})
}

// PullRemote replaces local payload fields with the remote blob.
func (s *SyncService) PullRemote(ctx context.Context) error {
	return s.run(ctx, true, func(ctx context.Context, settings domain.SyncSettings) (*domain.SyncConflict, error) {
		if settings.BlobID == "" {
			return nil, &SyncError{Stage: StageFetch, Err: repository.ErrBlobNotFound}
		}
		blob, err := s.fetch(ctx, settings.Credential, settings.BlobID)
		if err != nil {
			return nil, &SyncError{Stage: StageFetch, Err: err}
		}
		if err := s.store.ReplacePayload(blob.Payload); err != nil {
			return nil, &SyncError{Stage: StageApply, Err: err}
		}
		ref := &repository.BlobRef{ID: settings.BlobID, ModifiedMarker: blob.ModifiedMarker}
		if err := s.store.RecordSync(ref, s.now()); err != nil {
			return nil, &SyncError{Stage: StageApply, Err: err}
		}
		return nil, nil
	})
}

// run wraps one attempt with the single-flight guard and status transitions.
func (s *SyncService) run(
	ctx context.Context,
	foreground bool,
	attempt func(ctx context.Context, settings domain.SyncSettings) (*domain.SyncConflict, error),
) error {
	settings := s.store.Settings()
	if !settings.Configured() {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	s.running = true
	if foreground {
		s.cancelPendingLocked()
	}
	s.stopIdleLocked()
	s.status.State = domain.SyncSyncing
	s.status.LastError = ""
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()

	conflict, err := attempt(ctx, settings)

	s.mu.Lock()
	s.running = false
	if err != nil {
		s.status.State = domain.SyncError
		s.status.LastError = err.Error()
	} else {
		at := s.now()
		s.status.State = domain.SyncSuccess
		s.status.LastSyncTime = &at
		s.status.Conflict = conflict
		s.scheduleIdleLocked()
	}
	if s.pending != nil {
		s.status.State = domain.SyncSyncing
	}
	notify = s.notifyLocked()
	s.mu.Unlock()
	notify()

	if err != nil {
		s.logger.Printf("sync failed: %v", err)
		return err
	}
	if conflict != nil {
		s.logger.Printf("merged remote changes with %d divergent keys", conflict.Size())
	}
	return nil
}

func (s *SyncService) scheduleIdleLocked() {
	s.idleGen++
	gen := s.idleGen
	s.idle = s.scheduler.AfterFunc(s.cfg.SuccessDisplay, func() {
		s.mu.Lock()
		if gen != s.idleGen || s.status.State != domain.SyncSuccess {
			s.mu.Unlock()
			return
		}
		s.idle = nil
		s.status.State = domain.SyncIdle
		notify := s.notifyLocked()
		s.mu.Unlock()
		notify()
	})
}

// LastConflict returns the conflict found by the latest sync and the remote
// payload it was detected against.
func (s *SyncService) LastConflict() (*domain.SyncConflict, *domain.SyncPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Conflict, s.lastRemote
}

func (s *SyncService) clearConflict() {
	s.mu.Lock()
	s.status.Conflict = nil
	s.lastRemote = nil
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Disconnect forgets the credential and blob id and drops any pending sync.
func (s *SyncService) Disconnect() error {
	if err := s.store.ClearSyncSettings(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cancelPendingLocked()
	s.stopIdleLocked()
	if !s.running {
		s.status.State = domain.SyncIdle
	}
	s.status.LastError = ""
	s.status.Conflict = nil
	s.lastRemote = nil
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()

	return nil
}

// Close stops timers and cancels background attempts.
func (s *SyncService) Close() {
	s.mu.Lock()
	s.cancelPendingLocked()
	s.stopIdleLocked()
	s.mu.Unlock()
	s.cancel()
}

func (s *SyncService) fetch(ctx context.Context, credential, id string) (*repository.RemoteBlob, error) {
	var blob *repository.RemoteBlob
	err := s.withRetry(ctx, "fetch", func(ctx context.Context) error {
		var err error
		blob, err = s.blobs.Fetch(ctx, credential, id)
		return err
	})
	return blob, err
}

func (s *SyncService) upload(ctx context.Context, credential, id string, payload *domain.SyncPayload) (*repository.BlobRef, error) {
	var ref *repository.BlobRef
	err := s.withRetry(ctx, "upload", func(ctx context.Context) error {
		var err error
		ref, err = s.blobs.Upload(ctx, credential, id, payload)
		return err
	})
	return ref, err
}

// withRetry runs call under the per-request timeout, retrying transport
// failures with exponential backoff.
func (s *SyncService) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	backoff := s.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx := ctx
		cancel := func() {}
		if s.cfg.RequestTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		}
		err := call(callCtx)
		cancel()

		if err == nil || !retryable(err) || attempt >= s.cfg.MaxRetries || ctx.Err() != nil {
			return err
		}

		s.logger.Printf("%s attempt %d failed, retrying in %s: %v", op, attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, repository.ErrBlobNotFound),
		errors.Is(err, repository.ErrInvalidPayload),
		errors.Is(err, repository.ErrUnauthorized),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
