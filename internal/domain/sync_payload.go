package domain

import "time"

// SchemaVersion is the payload and local state schema this build writes.
const SchemaVersion = 2

// TimestampLayout matches the ISO-8601 form browsers produce (millisecond precision, UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type RepoSource struct {
	Name    string `json:"name" validate:"required"`
	URL     string `json:"url" validate:"required,url"`
	Enabled bool   `json:"enabled"`
	Builtin bool   `json:"builtin,omitempty"`
}

type SyncPayload struct {
	Progress             map[string]ProgressStatus `json:"progress" validate:"dive,keys,required,endkeys,oneof=unanswered mastered confused failed"`
	ProgressLastModified Timestamps                `json:"progressLastModified"`
	Notes                map[string]string         `json:"notes" validate:"dive,keys,required,endkeys"`
	NotesLastModified    Timestamps                `json:"notesLastModified"`
	Times                map[string]int64          `json:"times" validate:"dive,keys,required,endkeys,min=0"`
	TimesLastModified    Timestamps                `json:"timesLastModified"`
	Stars                map[string]bool           `json:"stars"`
	History              map[string]int            `json:"history" validate:"dive,keys,datetime=2006-01-02,endkeys,min=0"`
	RepoSources          []RepoSource              `json:"repoSources" validate:"dive"`
	CustomQuestions      map[string]Question       `json:"customQuestions" validate:"dive"`
	CustomPapers         map[string]Paper          `json:"customPapers" validate:"dive"`
	CustomPaperGroups    map[string]PaperGroup     `json:"customPaperGroups" validate:"dive"`
	Version              int                       `json:"version" validate:"gte=1"`
	Timestamp            string                    `json:"timestamp" validate:"required"`
}

func NewSyncPayload() *SyncPayload {
	p := &SyncPayload{Version: SchemaVersion}
	p.EnsureMaps()
	return p
}

// EnsureMaps replaces nil collections with empty ones.
func (p *SyncPayload) EnsureMaps() {
	if p.Progress == nil {
		p.Progress = make(map[string]ProgressStatus)
	}
	if p.ProgressLastModified == nil {
		p.ProgressLastModified = make(Timestamps)
	}
	if p.Notes == nil {
		p.Notes = make(map[string]string)
	}
	if p.NotesLastModified == nil {
		p.NotesLastModified = make(Timestamps)
	}
	if p.Times == nil {
		p.Times = make(map[string]int64)
	}
	if p.TimesLastModified == nil {
		p.TimesLastModified = make(Timestamps)
	}
	if p.Stars == nil {
		p.Stars = make(map[string]bool)
	}
	if p.History == nil {
		p.History = make(map[string]int)
	}
	if p.RepoSources == nil {
		p.RepoSources = []RepoSource{}
	}
	if p.CustomQuestions == nil {
		p.CustomQuestions = make(map[string]Question)
	}
	if p.CustomPapers == nil {
		p.CustomPapers = make(map[string]Paper)
	}
	if p.CustomPaperGroups == nil {
		p.CustomPaperGroups = make(map[string]PaperGroup)
	}
}

// Clone returns a deep copy of the maps and slices; entity values are copied by value.
func (p *SyncPayload) Clone() *SyncPayload {
	if p == nil {
		return NewSyncPayload()
	}

	c := &SyncPayload{
		Progress:             cloneMap(p.Progress),
		ProgressLastModified: Timestamps(cloneMap(p.ProgressLastModified)),
		Notes:                cloneMap(p.Notes),
		NotesLastModified:    Timestamps(cloneMap(p.NotesLastModified)),
		Times:                cloneMap(p.Times),
		TimesLastModified:    Timestamps(cloneMap(p.TimesLastModified)),
		Stars:                cloneMap(p.Stars),
		History:              cloneMap(p.History),
		RepoSources:          append([]RepoSource(nil), p.RepoSources...),
		CustomQuestions:      cloneMap(p.CustomQuestions),
		CustomPapers:         cloneMap(p.CustomPapers),
		CustomPaperGroups:    cloneMap(p.CustomPaperGroups),
		Version:              p.Version,
		Timestamp:            p.Timestamp,
	}
	c.EnsureMaps()
	return c
}

// StatusOf returns the recorded status, StatusUnanswered when absent.
func (p *SyncPayload) StatusOf(questionID string) ProgressStatus {
	if status, ok := p.Progress[questionID]; ok && status != "" {
		return status
	}
	return StatusUnanswered
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
