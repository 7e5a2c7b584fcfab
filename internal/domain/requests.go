package domain

type SetProgressRequest struct {
	Status ProgressStatus `json:"status" validate:"required,oneof=unanswered mastered confused failed"`
}

type SetNoteRequest struct {
	Content string `json:"content"`
}

type AddTimeRequest struct {
	DurationMs int64 `json:"durationMs" validate:"gt=0"`
}

type AddRepoSourceRequest struct {
	Name    string `json:"name" validate:"required"`
	URL     string `json:"url" validate:"required,url"`
	Enabled *bool  `json:"enabled"`
}

type RepoSourceRef struct {
	URL string `json:"url" validate:"required,url"`
}

type SetRepoSourceEnabledRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Enabled bool   `json:"enabled"`
}
