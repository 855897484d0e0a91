// Package scoring converts numeric scores into rating bands and computes
// weighted overall scores for a scoring matrix.
//
// Everything here is pure: no clocks, no I/O, no shared mutable state.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyScoringMatrix is returned when an overall score is requested for
	// a matrix with no entries.
	ErrEmptyScoringMatrix = errors.New("empty scoring matrix")

	// ErrDegenerateWeights is returned when the weights of a matrix sum to zero
	// or any weight is negative. Dividing through would fabricate a score.
	ErrDegenerateWeights = errors.New("degenerate scoring weights")

	// ErrScoreOutOfRange is returned by Entry.Validate for scores outside [0,100].
	ErrScoreOutOfRange = errors.New("score out of range")
)

// Rating is the label of a score band.
type Rating string

// Rating bands, best first.
const (
	RatingExcellent    Rating = "Excellent"
	RatingGood         Rating = "Good"
	RatingAverage      Rating = "Average"
	RatingBelowAverage Rating = "Below Average"
	RatingPoor         Rating = "Poor"
)

// ScoreRating is one band of the fixed partition of [0,100].
type ScoreRating struct {
	Rating      Rating  `json:"rating" yaml:"rating"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
	Description string  `json:"description" yaml:"description"`
}

// bands is ordered best first. Each band covers [Min, next band's Min), so
// fractional scores between the integer edges still land in a band.
var bands = []ScoreRating{
	{Rating: RatingExcellent, Min: 86, Max: 100, Description: "Exceptional position with clear strengths and minimal risk"},
	{Rating: RatingGood, Min: 71, Max: 85, Description: "Solid position with manageable gaps"},
	{Rating: RatingAverage, Min: 51, Max: 70, Description: "Mixed position; several areas need attention"},
	{Rating: RatingBelowAverage, Min: 31, Max: 50, Description: "Weak position with significant gaps"},
	{Rating: RatingPoor, Min: 0, Max: 30, Description: "Critical weaknesses; substantial work required"},
}

// Bands returns a copy of the rating table, best band first.
func Bands() []ScoreRating {
	out := make([]ScoreRating, len(bands))
	copy(out, bands)
	return out
}

// RateScore maps a score to exactly one band.
//
// Values outside [0,100], including NaN, fall back to Poor so that an
// unrateable document can never look healthy.
func RateScore(score float64) ScoreRating {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return bands[len(bands)-1]
	}
	for _, b := range bands {
		if score >= b.Min {
			return b
		}
	}
	return bands[len(bands)-1]
}

// Entry is one evaluated dimension of a scoring matrix.
type Entry struct {
	Dimension  string  `json:"dimension" yaml:"dimension"`
	Score      float64 `json:"score" yaml:"score"`
	Weight     float64 `json:"weight" yaml:"weight"` // percentage
	Assessment string  `json:"assessment,omitempty" yaml:"assessment,omitempty"`
}

// WeightedScore returns score * weight / 100.
func (e Entry) WeightedScore() float64 {
	return e.Score * e.Weight / 100
}

// Validate checks that the score lies in [0,100] and the weight is a
// non-negative number.
func (e Entry) Validate() error {
	if math.IsNaN(e.Score) || e.Score < 0 || e.Score > 100 {
		return fmt.Errorf("%w: dimension %q has score %v", ErrScoreOutOfRange, e.Dimension, e.Score)
	}
	if math.IsNaN(e.Weight) || e.Weight < 0 {
		return fmt.Errorf("%w: dimension %q has weight %v", ErrDegenerateWeights, e.Dimension, e.Weight)
	}
	return nil
}

// WeightedOverallScore returns Σ weightedScore / Σ weight * 100.
//
// Weights are percentages and are not required to sum to 100; the division
// normalises whatever total is supplied. The result is unrounded.
func WeightedOverallScore(entries []Entry) (float64, error) {
	if len(entries) == 0 {
		return 0, ErrEmptyScoringMatrix
	}

	var weighted, totalWeight float64
	for _, e := range entries {
		if e.Weight < 0 || math.IsNaN(e.Weight) {
			return 0, fmt.Errorf("%w: dimension %q has weight %v", ErrDegenerateWeights, e.Dimension, e.Weight)
		}
		weighted += e.WeightedScore()
		totalWeight += e.Weight
	}
	if totalWeight == 0 {
		return 0, fmt.Errorf("%w: weights sum to zero", ErrDegenerateWeights)
	}

	return weighted * 100 / totalWeight, nil
}

// Summary is the derived overall result of a scoring matrix.
type Summary struct {
	Entries       []Entry     `json:"entries"`
	TotalWeight   float64     `json:"total_weight"`
	WeightedTotal float64     `json:"weighted_total"`
	Overall       float64     `json:"overall"`
	Rating        ScoreRating `json:"rating"`
}

// Summarize computes the overall score and its rating for a matrix.
func Summarize(entries []Entry) (*Summary, error) {
	overall, err := WeightedOverallScore(entries)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Entries: append([]Entry(nil), entries...),
		Overall: overall,
		Rating:  RateScore(overall),
	}
	for _, e := range entries {
		s.TotalWeight += e.Weight
		s.WeightedTotal += e.WeightedScore()
	}
	return s, nil
}

// DisplayScore rounds a score for presentation. Scores are only rounded at
// display time; stored values keep full precision.
func DisplayScore(score float64) int {
	return int(math.Round(score))
}
