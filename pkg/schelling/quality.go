// Copyright 2025 Certen Protocol

// Package schelling implements Schelling-point commit-reveal voting for
// subjective jobs that cannot be verified deterministically.
package schelling

// Metric names a dimension of subjective quality. Custom metrics are
// represented by setting Name on a MetricCustom.
type Metric struct {
	Kind MetricKind
	Name string // only set when Kind == MetricCustom
}

// MetricKind enumerates the built-in quality metrics.
type MetricKind uint8

const (
	MetricOverall MetricKind = iota
	MetricCreativity
	MetricAccuracy
	MetricCoherence
	MetricCompleteness
	MetricRelevance
	MetricCustom
)

// MetricScore pairs a metric with its assessed score.
type MetricScore struct {
	Metric Metric
	Score  uint8
}

// Assessment is a quality judgment on a solution, either a single overall
// score or a detailed multi-metric breakdown.
type Assessment struct {
	OverallScore uint8
	Metrics      []MetricScore
	Feedback     string
}

// SimpleAssessment creates an assessment carrying only an overall score.
func SimpleAssessment(score uint8) Assessment {
	return Assessment{OverallScore: score}
}

// DetailedAssessment creates an assessment whose overall score is the
// mean of the given per-metric scores.
func DetailedAssessment(metrics []MetricScore) Assessment {
	if len(metrics) == 0 {
		return Assessment{Metrics: metrics}
	}
	var sum uint32
	for _, m := range metrics {
		sum += uint32(m.Score)
	}
	return Assessment{
		OverallScore: uint8(sum / uint32(len(metrics))),
		Metrics:      metrics,
	}
}

// WithFeedback returns a copy of the assessment carrying the given
// textual feedback.
func (a Assessment) WithFeedback(feedback string) Assessment {
	a.Feedback = feedback
	return a
}

// MeetsThreshold reports whether the overall score is at least threshold.
func (a Assessment) MeetsThreshold(threshold uint8) bool {
	return a.OverallScore >= threshold
}

// MetricScoreFor returns the score recorded for metric, if present.
func (a Assessment) MetricScoreFor(metric Metric) (uint8, bool) {
	for _, m := range a.Metrics {
		if m.Metric == metric {
			return m.Score, true
		}
	}
	return 0, false
}

// Rubric weights a set of required metrics into a single passing
// threshold for a specific task type.
type Rubric struct {
	RequiredMetrics   []Metric
	Weights           []uint8 // must sum to 100, one per RequiredMetrics entry
	PassingThreshold  uint8
}

// DefaultRubric scores on MetricOverall alone with a 70-point threshold.
func DefaultRubric() Rubric {
	return Rubric{
		RequiredMetrics:  []Metric{{Kind: MetricOverall}},
		Weights:          []uint8{100},
		PassingThreshold: 70,
	}
}

// CreativeRubric weights creativity, coherence, and relevance for
// open-ended creative tasks.
func CreativeRubric() Rubric {
	return Rubric{
		RequiredMetrics: []Metric{
			{Kind: MetricCreativity},
			{Kind: MetricCoherence},
			{Kind: MetricRelevance},
		},
		Weights:          []uint8{40, 30, 30},
		PassingThreshold: 65,
	}
}

// AccuracyFocusedRubric weights accuracy, completeness, and relevance for
// fact-sensitive tasks.
func AccuracyFocusedRubric() Rubric {
	return Rubric{
		RequiredMetrics: []Metric{
			{Kind: MetricAccuracy},
			{Kind: MetricCompleteness},
			{Kind: MetricRelevance},
		},
		Weights:          []uint8{50, 30, 20},
		PassingThreshold: 75,
	}
}

// CalculateWeightedScore combines assessment's per-metric scores using
// the rubric's weights, falling back to the assessment's overall score if
// the rubric is malformed or no required metric was scored.
func (r Rubric) CalculateWeightedScore(assessment Assessment) uint8 {
	if len(r.RequiredMetrics) != len(r.Weights) {
		return assessment.OverallScore
	}

	var weightedSum, totalWeight uint32
	for i, metric := range r.RequiredMetrics {
		if score, ok := assessment.MetricScoreFor(metric); ok {
			weightedSum += uint32(score) * uint32(r.Weights[i])
			totalWeight += uint32(r.Weights[i])
		}
	}

	if totalWeight == 0 {
		return assessment.OverallScore
	}
	return uint8(weightedSum / totalWeight)
}

// Passes reports whether assessment clears the rubric's passing
// threshold under its weighted score.
func (r Rubric) Passes(assessment Assessment) bool {
	return r.CalculateWeightedScore(assessment) >= r.PassingThreshold
}
