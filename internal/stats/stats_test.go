package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	assert.Equal(t, Statistics{}, s)
}

func TestComputeSingleValue(t *testing.T) {
	s := Compute([]float64{42})
	assert.Equal(t, 42.0, s.Mean)
	assert.Equal(t, 42.0, s.Median)
	assert.Equal(t, 42.0, s.Min)
	assert.Equal(t, 42.0, s.Max)
	assert.Equal(t, 0.0, s.StdDeviation)
	assert.Equal(t, 0.0, s.TrendSlope)
}

func TestComputeBasics(t *testing.T) {
	s := Compute([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.StdDeviation, 1e-9) // population stddev
	assert.InDelta(t, 4.5, s.Median, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, 0.4, s.CoeffVariance, 1e-9)
}

func TestComputeMedianOdd(t *testing.T) {
	s := Compute([]float64{5, 1, 3})
	assert.InDelta(t, 3.0, s.Median, 1e-9)
}

func TestComputePercentile95(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}
	s := Compute(data)
	// index floor(0.95 * 99) = 94
	assert.Equal(t, 94.0, s.Percentile95)
}

func TestComputeOutliers(t *testing.T) {
	data := make([]float64, 0, 101)
	for i := 0; i < 100; i++ {
		data = append(data, 10)
	}
	data = append(data, 1000)
	s := Compute(data)
	assert.Equal(t, 1, s.OutlierCount)
}

func TestComputeTrendSlope(t *testing.T) {
	s := Compute([]float64{1, 2, 3, 4, 5})
	assert.InDelta(t, 1.0, s.TrendSlope, 1e-9)

	s = Compute([]float64{10, 8, 6, 4})
	assert.InDelta(t, -2.0, s.TrendSlope, 1e-9)

	s = Compute([]float64{7, 7, 7, 7})
	assert.InDelta(t, 0.0, s.TrendSlope, 1e-9)
}

func TestComputeZeroMeanCV(t *testing.T) {
	s := Compute([]float64{-1, 1})
	require.Equal(t, 0.0, s.Mean)
	assert.Equal(t, 0.0, s.CoeffVariance)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	data := []float64{3, 1, 2}
	Compute(data)
	assert.Equal(t, []float64{3, 1, 2}, data)
}

func TestPredictNext(t *testing.T) {
	assert.Equal(t, 0.0, PredictNext([]float64{1, 2}))
	assert.InDelta(t, 8.0, PredictNext([]float64{2, 4, 6}), 1e-9)
}
