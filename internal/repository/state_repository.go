package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"examtrack-sync/internal/domain"
)

const stateKey = "examtrack:state"

// Migration upgrades a decoded state document by exactly one version.
type Migration func(doc map[string]any) error

type StateRepository interface {
	Load() (*domain.StudyState, error)
	Save(state *domain.StudyState) error
	// StoredVersion returns the schema version on disk, 0 when nothing is stored.
	StoredVersion() (int, error)
}

type stateEnvelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

type stateRepository struct {
	kv         KVStore
	migrations map[int]Migration
	logger     *log.Logger
}

func NewStateRepository(kv KVStore, logger *log.Logger) StateRepository {
	return &stateRepository{
		kv:         kv,
		migrations: map[int]Migration{1: migrateV1ToV2},
		logger:     logger,
	}
}

func (r *stateRepository) Load() (*domain.StudyState, error) {
	env, err := r.envelope()
	if errors.Is(err, ErrNotFound) {
		return domain.NewStudyState(), nil
	}
	if err != nil {
		return nil, err
	}

	raw := env.State
	if env.Version < domain.SchemaVersion {
		raw, err = r.migrate(env.Version, raw)
		if err != nil {
			return nil, err
		}
	}
	if env.Version > domain.SchemaVersion {
		return nil, fmt.Errorf("stored state version %d is newer than supported version %d", env.Version, domain.SchemaVersion)
	}

	var state domain.StudyState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if state.Payload == nil {
		state.Payload = domain.NewSyncPayload()
	}
	state.Payload.EnsureMaps()

	return &state, nil
}

func (r *stateRepository) Save(state *domain.StudyState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	data, err := json.Marshal(stateEnvelope{Version: domain.SchemaVersion, State: raw})
	if err != nil {
		return fmt.Errorf("failed to encode state envelope: %w", err)
	}

	return r.kv.Set(stateKey, data)
}

func (r *stateRepository) StoredVersion() (int, error) {
	env, err := r.envelope()
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return env.Version, nil
}

func (r *stateRepository) envelope() (*stateEnvelope, error) {
	data, err := r.kv.Get(stateKey)
	if err != nil {
		return nil, err
	}

	var env stateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode state envelope: %w", err)
	}
	if env.Version == 0 {
		env.Version = 1
	}
	return &env, nil
}

func (r *stateRepository) migrate(from int, raw json.RawMessage) (json.RawMessage, error) {
	doc := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode state for migration: %w", err)
		}
	}

	for v := from; v < domain.SchemaVersion; v++ {
		migration, ok := r.migrations[v]
		if !ok {
			return nil, fmt.Errorf("no migration from state version %d", v)
		}
		if err := migration(doc); err != nil {
			return nil, fmt.Errorf("failed to migrate state from version %d: %w", v, err)
		}
		if r.logger != nil {
			r.logger.Printf("migrated local state from version %d to %d", v, v+1)
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode migrated state: %w", err)
	}
	return out, nil
}

// migrateV1ToV2 drops the session snapshot that version 1 persisted and adds
// the per-field timestamp maps version 2 merges on.
func migrateV1ToV2(doc map[string]any) error {
	payload, ok := doc["payload"].(map[string]any)
	if !ok {
		payload = map[string]any{}
		doc["payload"] = payload
	}

	delete(payload, "currentSession")
	for _, key := range []string{"progressLastModified", "notesLastModified", "timesLastModified"} {
		payload[key] = map[string]any{}
	}
	payload["version"] = 2

	return nil
}
