package domain

type TagNode struct {
	ID       string    `json:"id" yaml:"id"`
	Label    string    `json:"label" yaml:"label"`
	Children []TagNode `json:"children,omitempty" yaml:"children,omitempty"`
}

type TagStats struct {
	Total      int `json:"total"`
	Mastered   int `json:"mastered"`
	Confused   int `json:"confused"`
	Failed     int `json:"failed"`
	Unanswered int `json:"unanswered"`
}

func (s TagStats) Answered() int {
	return s.Mastered + s.Confused + s.Failed
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type ComputedTagMetrics struct {
	WeaknessScore  float64  `json:"weaknessScore"`
	Priority       Priority `json:"priority"`
	SizeMultiplier float64  `json:"sizeMultiplier"`
}

type EnhancedTagNode struct {
	ID       string             `json:"id"`
	Label    string             `json:"label"`
	Depth    int                `json:"depth"`
	Stats    TagStats           `json:"stats"`
	Computed ComputedTagMetrics `json:"computed"`
	Children []EnhancedTagNode  `json:"children,omitempty"`
}

// QuestionOutcome is the aggregator's input: a question's tags and its current status.
type QuestionOutcome struct {
	ID     string         `json:"id"`
	Tags   []string       `json:"tags"`
	Status ProgressStatus `json:"status,omitempty"`
}

type TagStatsRequest struct {
	Subject   string            `json:"subject" validate:"required"`
	Questions []QuestionOutcome `json:"questions" validate:"dive"`
}

type SubjectReport struct {
	Subject string            `json:"subject"`
	Tree    []EnhancedTagNode `json:"tree"`
	Flat    []EnhancedTagNode `json:"flat"`
	Weakest []EnhancedTagNode `json:"weakest"`
}
