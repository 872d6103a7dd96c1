package baseline

import (
	"math"
	"time"

	"telematics-monitor/internal/models"
)

const (
	featureCount = 7
	epsilon      = 1e-6
)

// MinTrainingSamples is the window length below which a vehicle has no
// baseline and every sample scores 0.
const MinTrainingSamples = 50

// featureVector is one observation in the per-vehicle baseline space.
type featureVector [featureCount]float64

// Detector maintains a per-vehicle statistical baseline over recent driving
// behavior. Training recomputes feature means and standard deviations from a
// window of samples; scoring measures how far a new sample sits from that
// baseline. The detector carries no lock of its own: the owning store
// serializes train against score.
type Detector struct {
	minSamples int
	means      map[int]featureVector
	stds       map[int]featureVector
}

// NewDetector builds a detector requiring minSamples window entries before a
// baseline forms; values below 1 fall back to MinTrainingSamples.
func NewDetector(minSamples int) *Detector {
	if minSamples < 1 {
		minSamples = MinTrainingSamples
	}
	return &Detector{
		minSamples: minSamples,
		means:      make(map[int]featureVector),
		stds:       make(map[int]featureVector),
	}
}

// Train rebuilds the baseline for vehicleID from window. Windows shorter than
// the training minimum leave any existing baseline untouched. Each
// consecutive (previous, current) pair contributes one feature vector.
func (d *Detector) Train(vehicleID int, window []models.Sample) {
	if len(window) < d.minSamples {
		return
	}

	features := make([]featureVector, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		features = append(features, extractFeatures(window[i], &window[i-1]))
	}

	var means featureVector
	for _, fv := range features {
		for i, v := range fv {
			means[i] += v
		}
	}
	n := float64(len(features))
	for i := range means {
		means[i] /= n
	}

	var stds featureVector
	for _, fv := range features {
		for i, v := range fv {
			diff := v - means[i]
			stds[i] += diff * diff
		}
	}
	for i := range stds {
		stds[i] = math.Sqrt(stds[i] / n)
	}

	d.means[vehicleID] = means
	d.stds[vehicleID] = stds
}

// Score returns the Euclidean norm of the element-wise z-scores of the
// sample's feature vector against the vehicle baseline, or 0 when the vehicle
// is untrained.
func (d *Detector) Score(vehicleID int, sample models.Sample) float64 {
	means, ok := d.means[vehicleID]
	if !ok {
		return 0
	}
	stds := d.stds[vehicleID]

	fv := extractFeatures(sample, nil)
	var dist float64
	for i, v := range fv {
		z := (v - means[i]) / (stds[i] + epsilon)
		dist += z * z
	}
	return math.Sqrt(dist)
}

// Trained reports whether a baseline exists for the vehicle.
func (d *Detector) Trained(vehicleID int) bool {
	_, ok := d.means[vehicleID]
	return ok
}

// extractFeatures builds the feature vector for current. The fuel consumption
// rate needs a predecessor; scored samples have none and carry 0 there.
func extractFeatures(current models.Sample, previous *models.Sample) featureVector {
	var fv featureVector
	fv[0] = current.Speed
	fv[1] = current.RPM
	fv[2] = current.EngineTemp
	fv[3] = current.Acceleration

	if previous != nil {
		dt := current.Timestamp.Sub(previous.Timestamp).Seconds()
		if dt > 0 {
			fv[4] = (previous.FuelLevel - current.FuelLevel) / dt
		}
	}

	local := current.Timestamp.Local()
	fv[5] = timeOfDay(local)
	fv[6] = float64(local.Weekday())
	return fv
}

func timeOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}
