package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/repository"
)

// StateStore owns the local study state. Every mutation stamps the touched
// key, persists the new state and then notifies subscribers. A mutation that
// fails to persist leaves the in-memory state untouched.
type StateStore struct {
	mu     sync.Mutex
	repo   repository.StateRepository
	state  *domain.StudyState
	now    func() time.Time
	logger *log.Logger

	subMu       sync.Mutex
	subscribers map[int]func(domain.StateEvent)
	nextSub     int
}

// NewStateStore loads (and if needed migrates) the persisted state. Builtin
// sources are added when missing.
func NewStateStore(repo repository.StateRepository, builtin []domain.RepoSource, logger *log.Logger) (*StateStore, error) {
	stored, err := repo.StoredVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to read state version: %w", err)
	}

	state, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load local state: %w", err)
	}

	s := &StateStore{
		repo:        repo,
		state:       state,
		now:         time.Now,
		logger:      logger,
		subscribers: make(map[int]func(domain.StateEvent)),
	}

	// Write migrated state back so the upgrade runs once.
	dirty := stored > 0 && stored < domain.SchemaVersion
	for _, source := range builtin {
		if indexOfSource(state.Payload.RepoSources, source.URL) >= 0 {
			continue
		}
		source.Builtin = true
		state.Payload.RepoSources = append(state.Payload.RepoSources, source)
		dirty = true
	}
	if dirty {
		if err := repo.Save(state); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Subscribe registers fn for every state change and returns its cancel func.
func (s *StateStore) Subscribe(fn func(domain.StateEvent)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *StateStore) publish(event domain.StateEvent) {
	s.subMu.Lock()
	fns := make([]func(domain.StateEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// update applies fn to a copy of the state, persists it and swaps it in.
func (s *StateStore) update(event domain.StateEvent, fn func(state *domain.StudyState, nowMs int64) error) error {
	s.mu.Lock()
	next := &domain.StudyState{
		Payload:  s.state.Payload.Clone(),
		Settings: s.state.Settings,
	}
	if err := fn(next, s.now().UnixMilli()); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.repo.Save(next); err != nil {
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Printf("failed to persist %s change: %v", event.Kind, err)
		}
		return fmt.Errorf("failed to persist state: %w", err)
	}
	s.state = next
	s.mu.Unlock()

	s.publish(event)
	return nil
}

// Snapshot builds a fresh payload from the current local state.
func (s *StateStore) Snapshot() *domain.SyncPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.state.Payload.Clone()
	p.Version = max(p.Version, domain.SchemaVersion)
	p.Timestamp = domain.FormatTimestamp(s.now())
	return p
}

func (s *StateStore) Settings() domain.SyncSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

func (s *StateStore) SetStatus(questionID string, status domain.ProgressStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	event := domain.StateEvent{Kind: domain.ChangeProgress, QuestionID: questionID}
	return s.update(event, func(state *domain.StudyState, nowMs int64) error {
		p := state.Payload
		p.Progress[questionID] = status
		p.ProgressLastModified[questionID] = nowMs
		if status.Answered() {
			p.History[historyDay(nowMs)]++
		}
		return nil
	})
}

// SetNote stores content for the question. An empty note is kept, so the
// clearing wins a later merge.
func (s *StateStore) SetNote(questionID, content string) error {
	event := domain.StateEvent{Kind: domain.ChangeNotes, QuestionID: questionID}
	return s.update(event, func(state *domain.StudyState, nowMs int64) error {
		state.Payload.Notes[questionID] = content
		state.Payload.NotesLastModified[questionID] = nowMs
		return nil
	})
}

func (s *StateStore) AddTime(questionID string, durationMs int64) error {
	if durationMs <= 0 {
		return fmt.Errorf("duration must be positive, got %d", durationMs)
	}

	event := domain.StateEvent{Kind: domain.ChangeTimes, QuestionID: questionID}
	return s.update(event, func(state *domain.StudyState, nowMs int64) error {
		state.Payload.Times[questionID] += durationMs
		state.Payload.TimesLastModified[questionID] = nowMs
		return nil
	})
}

// SetStar stars or unstars a question.
func (s *StateStore) SetStar(questionID string, starred bool) error {
	event := domain.StateEvent{Kind: domain.ChangeStars, QuestionID: questionID}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		if starred {
			state.Payload.Stars[questionID] = true
		} else {
			delete(state.Payload.Stars, questionID)
		}
		return nil
	})
}

func (s *StateStore) AddRepoSource(source domain.RepoSource) error {
	event := domain.StateEvent{Kind: domain.ChangeSources}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		if indexOfSource(state.Payload.RepoSources, source.URL) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, source.URL)
		}
		source.Builtin = false
		state.Payload.RepoSources = append(state.Payload.RepoSources, source)
		return nil
	})
}

func (s *StateStore) RemoveRepoSource(url string) error {
	event := domain.StateEvent{Kind: domain.ChangeSources}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		i := indexOfSource(state.Payload.RepoSources, url)
		if i < 0 {
			return fmt.Errorf("%w: source %s", ErrNotFound, url)
		}
		if state.Payload.RepoSources[i].Builtin {
			return ErrBuiltinSource
		}
		sources := state.Payload.RepoSources
		state.Payload.RepoSources = append(sources[:i:i], sources[i+1:]...)
		return nil
	})
}

func (s *StateStore) SetRepoSourceEnabled(url string, enabled bool) error {
	event := domain.StateEvent{Kind: domain.ChangeSources}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		i := indexOfSource(state.Payload.RepoSources, url)
		if i < 0 {
			return fmt.Errorf("%w: source %s", ErrNotFound, url)
		}
		state.Payload.RepoSources[i].Enabled = enabled
		return nil
	})
}

func (s *StateStore) RepoSources() []domain.RepoSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RepoSource(nil), s.state.Payload.RepoSources...)
}

// ImportCustom stores entities produced by the import flow, replacing
// existing entries with the same id.
func (s *StateStore) ImportCustom(req *domain.ImportRequest) (*domain.ImportResponse, error) {
	event := domain.StateEvent{Kind: domain.ChangeCustom}
	err := s.update(event, func(state *domain.StudyState, _ int64) error {
		for _, q := range req.Questions {
			state.Payload.CustomQuestions[q.ID] = q
		}
		for _, p := range req.Papers {
			state.Payload.CustomPapers[p.ID] = p
		}
		for _, g := range req.PaperGroups {
			state.Payload.CustomPaperGroups[g.ID] = g
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.ImportResponse{
		Questions:   len(req.Questions),
		Papers:      len(req.Papers),
		PaperGroups: len(req.PaperGroups),
	}, nil
}

// UpdateSyncSettings sets the remote credential. An empty blobID keeps the
// current one.
func (s *StateStore) UpdateSyncSettings(credential, blobID string) error {
	event := domain.StateEvent{Kind: domain.ChangeSettings}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		if credential != state.Settings.Credential {
			state.Settings.LastRemoteModified = ""
		}
		state.Settings.Credential = credential
		if blobID != "" && blobID != state.Settings.BlobID {
			state.Settings.BlobID = blobID
			state.Settings.LastSyncTime = 0
			state.Settings.LastRemoteModified = ""
		}
		return nil
	})
}

func (s *StateStore) ClearSyncSettings() error {
	event := domain.StateEvent{Kind: domain.ChangeSettings}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		state.Settings = domain.SyncSettings{}
		return nil
	})
}

// ForgetBlob drops a blob id the remote no longer resolves.
func (s *StateStore) ForgetBlob() error {
	event := domain.StateEvent{Kind: domain.ChangeSettings}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		state.Settings.BlobID = ""
		state.Settings.LastRemoteModified = ""
		return nil
	})
}

// RecordSync stores the outcome of a successful upload.
func (s *StateStore) RecordSync(ref *repository.BlobRef, at time.Time) error {
	event := domain.StateEvent{Kind: domain.ChangeSettings}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		state.Settings.BlobID = ref.ID
		state.Settings.LastRemoteModified = ref.ModifiedMarker
		state.Settings.LastSyncTime = at.UnixMilli()
		return nil
	})
}

// ApplyMerged folds a merged payload into local state. The merge runs against
// the current state so edits made while a sync was in flight are kept.
func (s *StateStore) ApplyMerged(merged *domain.SyncPayload) error {
	event := domain.StateEvent{Kind: domain.ChangeApplied}
	return s.update(event, func(state *domain.StudyState, nowMs int64) error {
		state.Payload = MergeData(state.Payload, merged, time.UnixMilli(nowMs))
		return nil
	})
}

// ReplacePayload overwrites every payload field with p.
func (s *StateStore) ReplacePayload(p *domain.SyncPayload) error {
	event := domain.StateEvent{Kind: domain.ChangeApplied}
	return s.update(event, func(state *domain.StudyState, _ int64) error {
		next := p.Clone()
		next.Version = max(next.Version, domain.SchemaVersion)
		for _, source := range state.Payload.RepoSources {
			if source.Builtin && indexOfSource(next.RepoSources, source.URL) < 0 {
				next.RepoSources = append(next.RepoSources, source)
			}
		}
		state.Payload = next
		return nil
	})
}

// historyDay is the local calendar date of a timestamp.
func historyDay(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02")
}

func indexOfSource(sources []domain.RepoSource, url string) int {
	for i, source := range sources {
		if source.URL == url {
			return i
		}
	}
	return -1
}
