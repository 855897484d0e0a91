package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateScore_BandEdges(t *testing.T) {
	tests := []struct {
		score float64
		want  Rating
	}{
		{0, RatingPoor},
		{30, RatingPoor},
		{31, RatingBelowAverage},
		{50, RatingBelowAverage},
		{51, RatingAverage},
		{70, RatingAverage},
		{71, RatingGood},
		{85, RatingGood},
		{86, RatingExcellent},
		{100, RatingExcellent},
		{85.5, RatingGood},
		{30.9, RatingPoor},
	}

	for _, tt := range tests {
		got := RateScore(tt.score)
		assert.Equal(t, tt.want, got.Rating, "score %v", tt.score)
	}
}

func TestRateScore_OutOfRangeFallsBackToPoor(t *testing.T) {
	for _, s := range []float64{-1, -0.001, 100.01, 1000, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Equal(t, RatingPoor, RateScore(s).Rating, "score %v", s)
	}
}

func TestRateScore_PartitionHasNoGaps(t *testing.T) {
	counts := make(map[Rating]int)
	for s := 0; s <= 100; s++ {
		r := RateScore(float64(s))
		require.NotEmpty(t, r.Rating)
		assert.GreaterOrEqual(t, float64(s), r.Min)
		assert.LessOrEqual(t, float64(s), r.Max)
		counts[r.Rating]++
	}

	assert.Equal(t, 15, counts[RatingExcellent])
	assert.Equal(t, 15, counts[RatingGood])
	assert.Equal(t, 20, counts[RatingAverage])
	assert.Equal(t, 20, counts[RatingBelowAverage])
	assert.Equal(t, 31, counts[RatingPoor])
}

func TestBandsReturnsCopy(t *testing.T) {
	b := Bands()
	require.Len(t, b, 5)
	b[0].Rating = "mutated"
	assert.Equal(t, RatingExcellent, Bands()[0].Rating)
}

func TestWeightedOverallScore(t *testing.T) {
	entries := []Entry{
		{Dimension: "Market", Score: 90, Weight: 50},
		{Dimension: "Execution", Score: 60, Weight: 30},
		{Dimension: "Finance", Score: 40, Weight: 20},
	}

	got, err := WeightedOverallScore(entries)
	require.NoError(t, err)
	assert.InDelta(t, 71.0, got, 1e-9)
	assert.Equal(t, RatingGood, RateScore(got).Rating)
}

func TestWeightedOverallScore_OrderInvariant(t *testing.T) {
	a := []Entry{
		{Dimension: "a", Score: 17, Weight: 13},
		{Dimension: "b", Score: 88, Weight: 41},
		{Dimension: "c", Score: 53, Weight: 27},
		{Dimension: "d", Score: 99, Weight: 19},
	}
	b := []Entry{a[3], a[1], a[0], a[2]}

	sa, err := WeightedOverallScore(a)
	require.NoError(t, err)
	sb, err := WeightedOverallScore(b)
	require.NoError(t, err)
	assert.InDelta(t, sa, sb, 1e-9)
}

func TestWeightedOverallScore_NormalisesWeights(t *testing.T) {
	got, err := WeightedOverallScore([]Entry{
		{Dimension: "a", Score: 80, Weight: 1},
		{Dimension: "b", Score: 40, Weight: 1},
	})
	require.NoError(t, err)
	assert.InDelta(t, 60.0, got, 1e-9)
}

func TestWeightedOverallScore_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    error
	}{
		{name: "nil", entries: nil, want: ErrEmptyScoringMatrix},
		{name: "empty", entries: []Entry{}, want: ErrEmptyScoringMatrix},
		{name: "zero weights", entries: []Entry{{Score: 50}, {Score: 70}}, want: ErrDegenerateWeights},
		{name: "negative weight", entries: []Entry{{Score: 50, Weight: 120}, {Score: 70, Weight: -20}}, want: ErrDegenerateWeights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WeightedOverallScore(tt.entries)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]Entry{
		{Dimension: "Market", Score: 90, Weight: 50},
		{Dimension: "Execution", Score: 60, Weight: 30},
		{Dimension: "Finance", Score: 40, Weight: 20},
	})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, s.TotalWeight, 1e-9)
	assert.InDelta(t, 71.0, s.WeightedTotal, 1e-9)
	assert.Equal(t, 71, DisplayScore(s.Overall))
	assert.Equal(t, RatingGood, s.Rating.Rating)
	assert.Len(t, s.Entries, 3)

	_, err = Summarize(nil)
	assert.ErrorIs(t, err, ErrEmptyScoringMatrix)
}

func TestEntryWeightedScore(t *testing.T) {
	assert.InDelta(t, 45.0, Entry{Score: 90, Weight: 50}.WeightedScore(), 1e-9)
	assert.InDelta(t, 0.0, Entry{Score: 90}.WeightedScore(), 1e-9)
}

func TestEntryValidate(t *testing.T) {
	assert.NoError(t, Entry{Score: 0, Weight: 0}.Validate())
	assert.NoError(t, Entry{Score: 100, Weight: 100}.Validate())
	assert.ErrorIs(t, Entry{Score: 101, Weight: 10}.Validate(), ErrScoreOutOfRange)
	assert.ErrorIs(t, Entry{Score: -1, Weight: 10}.Validate(), ErrScoreOutOfRange)
	assert.ErrorIs(t, Entry{Score: math.NaN(), Weight: 10}.Validate(), ErrScoreOutOfRange)
	assert.ErrorIs(t, Entry{Score: 50, Weight: -1}.Validate(), ErrDegenerateWeights)
}
