package domain

// Custom entities come from an external producer (the AI import flow) and
// are merged by key without timestamps.

type Question struct {
	ID          string   `json:"id" validate:"required"`
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PaperID     string   `json:"paperId,omitempty"`
}

type Paper struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title"`
	Subject     string   `json:"subject"`
	Year        int      `json:"year,omitempty"`
	QuestionIDs []string `json:"questionIds"`
	GroupID     string   `json:"groupId,omitempty"`
}

type PaperGroup struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name"`
	PaperIDs []string `json:"paperIds"`
}

type ImportRequest struct {
	Questions   []Question   `json:"questions" validate:"dive"`
	Papers      []Paper      `json:"papers" validate:"dive"`
	PaperGroups []PaperGroup `json:"paperGroups" validate:"dive"`
}

type ImportResponse struct {
	Questions   int `json:"questions"`
	Papers      int `json:"papers"`
	PaperGroups int `json:"paperGroups"`
}
