package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telematics-monitor/internal/models"
)

func steadyWindow(vehicleID, n int, start time.Time) []models.Sample {
	window := make([]models.Sample, 0, n)
	for i := 0; i < n; i++ {
		window = append(window, models.Sample{
			Timestamp:    start.Add(time.Duration(i) * time.Second),
			VehicleID:    vehicleID,
			Speed:        60 + float64(i%5),
			RPM:          2500 + float64(i%7)*10,
			EngineTemp:   90 + float64(i%3)*0.5,
			FuelLevel:    80 - float64(i)*0.01,
			Acceleration: float64(i%3) - 1,
			EngineOn:     true,
		})
	}
	return window
}

func TestScoreUntrainedIsZero(t *testing.T) {
	d := NewDetector(MinTrainingSamples)
	score := d.Score(9, models.Sample{VehicleID: 9, Speed: 500, Timestamp: time.Now()})
	assert.Equal(t, 0.0, score)
	assert.False(t, d.Trained(9))
}

func TestTrainRequiresMinimumSamples(t *testing.T) {
	d := NewDetector(MinTrainingSamples)
	d.Train(9, steadyWindow(9, MinTrainingSamples-1, time.Now()))
	assert.False(t, d.Trained(9))

	d.Train(9, steadyWindow(9, MinTrainingSamples, time.Now()))
	assert.True(t, d.Trained(9))
}

func TestScoreNonNegative(t *testing.T) {
	d := NewDetector(MinTrainingSamples)
	start := time.Now()
	window := steadyWindow(1, 100, start)
	d.Train(1, window)

	score := d.Score(1, window[len(window)-1])
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestDeviantSampleScoresHigher(t *testing.T) {
	d := NewDetector(MinTrainingSamples)
	start := time.Now()
	window := steadyWindow(1, 100, start)
	d.Train(1, window)

	normal := models.Sample{
		Timestamp:    start.Add(101 * time.Second),
		VehicleID:    1,
		Speed:        62,
		RPM:          2520,
		EngineTemp:   90.5,
		FuelLevel:    79,
		Acceleration: 0,
		EngineOn:     true,
	}
	wild := normal
	wild.Speed = 250
	wild.RPM = 9000
	wild.EngineTemp = 130
	wild.Acceleration = 12

	require.True(t, d.Trained(1))
	assert.Greater(t, d.Score(1, wild), d.Score(1, normal))
}

func TestBaselinesAreIndependentPerVehicle(t *testing.T) {
	d := NewDetector(MinTrainingSamples)
	d.Train(1, steadyWindow(1, 100, time.Now()))

	assert.True(t, d.Trained(1))
	assert.False(t, d.Trained(2))
	assert.Equal(t, 0.0, d.Score(2, models.Sample{VehicleID: 2, Speed: 300, Timestamp: time.Now()}))
}

func TestRetrainReplacesBaseline(t *testing.T) {
	d := NewDetector(MinTrainingSamples)
	start := time.Now()
	d.Train(1, steadyWindow(1, 100, start))

	probe := models.Sample{
		Timestamp: start.Add(200 * time.Second),
		VehicleID: 1, Speed: 62, RPM: 2500, EngineTemp: 90, FuelLevel: 70, EngineOn: true,
	}
	before := d.Score(1, probe)

	// Retrain on a much faster driving profile; the same probe should now
	// deviate more.
	fast := steadyWindow(1, 100, start)
	for i := range fast {
		fast[i].Speed = 160 + float64(i%5)
		fast[i].RPM = 5200
	}
	d.Train(1, fast)
	after := d.Score(1, probe)

	assert.NotEqual(t, before, after)
	assert.Greater(t, after, before)
}
