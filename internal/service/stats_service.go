package service

import (
	"fmt"
	"math"
	"sort"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/repository"
)

const (
	minSizeMultiplier = 1.0
	maxSizeMultiplier = 3.0
)

// CalculateTagStats counts outcomes per tag. A question contributes to every
// tag it carries; untagged questions contribute nothing.
func CalculateTagStats(questions []domain.QuestionOutcome) map[string]domain.TagStats {
	stats := make(map[string]domain.TagStats)

	for _, q := range questions {
		status := q.Status
		if status == "" {
			status = domain.StatusUnanswered
		}

		for _, tag := range q.Tags {
			if tag == "" {
				continue
			}

			s := stats[tag]
			s.Total++
			switch status {
			case domain.StatusMastered:
				s.Mastered++
			case domain.StatusConfused:
				s.Confused++
			case domain.StatusFailed:
				s.Failed++
			default:
				s.Unanswered++
			}
			stats[tag] = s
		}
	}

	return stats
}

// CalculateWeaknessScore returns (failed*2 + confused) / (answered*2), in [0,1].
// A tag with nothing answered scores 0.
func CalculateWeaknessScore(stats domain.TagStats) float64 {
	answered := stats.Answered()
	if answered == 0 {
		return 0
	}
	return float64(stats.Failed*2+stats.Confused) / float64(answered*2)
}

func CalculatePriority(weaknessScore float64) domain.Priority {
	switch {
	case weaknessScore > 0.7:
		return domain.PriorityCritical
	case weaknessScore > 0.4:
		return domain.PriorityHigh
	case weaknessScore > 0.1:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// CalculateSizeMultiplier grows logarithmically with total and is clamped to [1,3].
func CalculateSizeMultiplier(total int) float64 {
	if total < 0 {
		total = 0
	}
	m := math.Log2(float64(total) + 1)
	return math.Min(maxSizeMultiplier, math.Max(minSizeMultiplier, m))
}

func computeMetrics(stats domain.TagStats) domain.ComputedTagMetrics {
	score := CalculateWeaknessScore(stats)
	return domain.ComputedTagMetrics{
		WeaknessScore:  score,
		Priority:       CalculatePriority(score),
		SizeMultiplier: CalculateSizeMultiplier(stats.Total),
	}
}

// EnhanceTagTree annotates every node of the taxonomy with its stats and
// derived metrics. Tags without recorded questions get zero stats.
func EnhanceTagTree(nodes []domain.TagNode, stats map[string]domain.TagStats) []domain.EnhancedTagNode {
	return enhance(nodes, stats, 0)
}

func enhance(nodes []domain.TagNode, stats map[string]domain.TagStats, depth int) []domain.EnhancedTagNode {
	if len(nodes) == 0 {
		return nil
	}

	out := make([]domain.EnhancedTagNode, 0, len(nodes))
	for _, node := range nodes {
		s := stats[node.ID]
		out = append(out, domain.EnhancedTagNode{
			ID:       node.ID,
			Label:    node.Label,
			Depth:    depth,
			Stats:    s,
			Computed: computeMetrics(s),
			Children: enhance(node.Children, stats, depth+1),
		})
	}
	return out
}

// FlattenTagTree lists nodes in pre-order, dropping only leaves with no activity.
func FlattenTagTree(nodes []domain.EnhancedTagNode) []domain.EnhancedTagNode {
	var out []domain.EnhancedTagNode
	var walk func([]domain.EnhancedTagNode)
	walk = func(level []domain.EnhancedTagNode) {
		for _, node := range level {
			if node.Stats.Total > 0 || len(node.Children) > 0 {
				flat := node
				flat.Children = nil
				out = append(out, flat)
			}
			walk(node.Children)
		}
	}
	walk(nodes)
	return out
}

// SortByWeakness orders nodes weakest first; ties go to the larger total, then the id.
func SortByWeakness(nodes []domain.EnhancedTagNode) []domain.EnhancedTagNode {
	out := append([]domain.EnhancedTagNode(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Computed.WeaknessScore != b.Computed.WeaknessScore {
			return a.Computed.WeaknessScore > b.Computed.WeaknessScore
		}
		if a.Stats.Total != b.Stats.Total {
			return a.Stats.Total > b.Stats.Total
		}
		return a.ID < b.ID
	})
	return out
}

// OutcomesFromPayload builds the aggregator input for a subject from the
// imported questions and their recorded status. An empty subject selects all.
func OutcomesFromPayload(payload *domain.SyncPayload, subject string) []domain.QuestionOutcome {
	if payload == nil {
		return nil
	}

	ids := make([]string, 0, len(payload.CustomQuestions))
	for id, q := range payload.CustomQuestions {
		if subject != "" && q.Subject != subject {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	outcomes := make([]domain.QuestionOutcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, domain.QuestionOutcome{
			ID:     id,
			Tags:   payload.CustomQuestions[id].Tags,
			Status: payload.StatusOf(id),
		})
	}
	return outcomes
}

type StatsService struct {
	taxonomy repository.TaxonomyRepository
	weakest  int
}

func NewStatsService(taxonomy repository.TaxonomyRepository, weakest int) *StatsService {
	if weakest <= 0 {
		weakest = 5
	}
	return &StatsService{
		taxonomy: taxonomy,
		weakest:  weakest,
	}
}

// SubjectReport aggregates questions against the subject's taxonomy.
func (s *StatsService) SubjectReport(subject string, questions []domain.QuestionOutcome) (*domain.SubjectReport, error) {
	nodes, ok := s.taxonomy.Tree(subject)
	if !ok {
		return nil, fmt.Errorf("%w: unknown subject %q", ErrNotFound, subject)
	}

	tree := EnhanceTagTree(nodes, CalculateTagStats(questions))
	flat := FlattenTagTree(tree)

	var attempted []domain.EnhancedTagNode
	for _, node := range flat {
		if node.Stats.Answered() > 0 {
			attempted = append(attempted, node)
		}
	}
	weakest := SortByWeakness(attempted)
	if len(weakest) > s.weakest {
		weakest = weakest[:s.weakest]
	}

	return &domain.SubjectReport{
		Subject: subject,
		Tree:    tree,
		Flat:    flat,
		Weakest: weakest,
	}, nil
}

func (s *StatsService) Subjects() []string {
	return s.taxonomy.Subjects()
}
