package rules

import (
	"fmt"
	"math"
	"time"

	"telematics-monitor/internal/models"
)

// Thresholds are the tunable limits of the rule set. Zero values are never
// valid; construct with DefaultThresholds. The engine uses the defaults
// unchanged; config.Config carries no threshold fields.
type Thresholds struct {
	SpeedMax          float64
	SpeedMin          float64
	RPMMax            float64
	RPMStallBelow     float64
	RPMStallMinSpeed  float64
	TempMax           float64
	HarshAccel        float64
	OilPressureMin    float64
	BatteryMin        float64
	BatteryMax        float64
	FuelDropWindow    int
	FuelDropRateMax   float64 // percent per minute
	BaselineScoreMax  float64
	MaintenanceMaxAge time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SpeedMax:          200.0,
		SpeedMin:          -5.0,
		RPMMax:            8000.0,
		RPMStallBelow:     400.0,
		RPMStallMinSpeed:  10.0,
		TempMax:           110.0,
		HarshAccel:        6.0,
		OilPressureMin:    1.0,
		BatteryMin:        11.0,
		BatteryMax:        15.0,
		FuelDropWindow:    10,
		FuelDropRateMax:   2.0,
		BaselineScoreMax:  3.0,
		MaintenanceMaxAge: 90 * 24 * time.Hour,
	}
}

// Input carries everything a classification pass reads. Profile is nil for
// vehicles outside the catalog; profile-dependent rules are skipped then.
type Input struct {
	Sample    models.Sample
	Window    []models.Sample
	MLScore   float64
	Geofences []models.GeofenceZone
	Profile   *models.VehicleProfile
}

// Classifier converts a sample plus its context into zero or more anomalies.
// Rules are independent: a single sample may trip several of them, and no
// rule suppresses another.
type Classifier struct {
	thresholds Thresholds
}

func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Classify evaluates the full rule set against in. Every emitted anomaly is
// stamped with the sample timestamp and the baseline score computed once for
// this sample. Classification is deterministic for identical inputs.
func (c *Classifier) Classify(in Input) []models.Anomaly {
	t := c.thresholds
	s := in.Sample
	var out []models.Anomaly

	emit := func(sensor string, value float64, kind models.AnomalyKind, desc string, severity int, location string) {
		a := models.NewAnomaly(s.Timestamp, s.VehicleID, sensor, value, kind, desc, severity)
		a.Location = location
		a.MLScore = in.MLScore
		out = append(out, a)
	}

	if s.Speed > t.SpeedMax || s.Speed < t.SpeedMin {
		emit("speed", s.Speed, models.SpeedRange, "Speed outside safe range", 4, "")
	}

	if s.RPM > t.RPMMax || (s.RPM < t.RPMStallBelow && s.EngineOn && s.Speed > t.RPMStallMinSpeed) {
		emit("rpm", s.RPM, models.RPMRange, "RPM outside normal range", 3, "")
	}

	if s.EngineTemp > t.TempMax {
		emit("temperature", s.EngineTemp, models.TempRange, "Engine overheating detected", 5, "")
	}

	if s.Acceleration > t.HarshAccel {
		emit("acceleration", s.Acceleration, models.HarshAccel, "Harsh acceleration detected", 3, "")
	}

	if s.Acceleration < -t.HarshAccel {
		emit("acceleration", s.Acceleration, models.HarshBrake, "Harsh braking detected", 3, "")
	}

	if s.OilPressure < t.OilPressureMin && s.EngineOn {
		emit("oil_pressure", s.OilPressure, models.SensorFail, "Critically low oil pressure", 5, "")
	}

	if s.BatteryVoltage < t.BatteryMin || s.BatteryVoltage > t.BatteryMax {
		emit("battery", s.BatteryVoltage, models.SensorFail, "Battery voltage abnormal", 3, "")
	}

	if len(in.Window) >= t.FuelDropWindow {
		if rate := FuelDropRate(in.Window, t.FuelDropWindow); rate > t.FuelDropRateMax {
			emit("fuel", rate, models.FuelLeak, "Potential fuel leak detected", 4, "")
		}
	}

	if in.MLScore > t.BaselineScoreMax {
		emit("ml_pattern", in.MLScore, models.Erratic, "Unusual driving pattern detected", 3, "")
	}

	for _, fence := range in.Geofences {
		if fence.Restricted && fence.Contains(s.Latitude, s.Longitude) {
			emit("location", 0.0, models.Geofence,
				fmt.Sprintf("Vehicle entered restricted area: %s", fence.Name), 4, fence.Name)
		}
	}

	if p := in.Profile; p != nil {
		overdueKM := p.TotalDistanceKM > p.MaintenanceKM
		overdueAge := s.Timestamp.Sub(p.LastMaintenance) > t.MaintenanceMaxAge
		if overdueKM || overdueAge {
			emit("maintenance", p.TotalDistanceKM, models.Maintenance, "Scheduled maintenance due", 2, "")
		}
	}

	return out
}

// FuelDropRate measures the fuel-level drop in percent per minute between the
// n-th most recent sample and the newest one. Non-positive elapsed time
// yields 0.
func FuelDropRate(window []models.Sample, n int) float64 {
	if len(window) < n || n < 2 {
		return 0
	}
	oldest := window[len(window)-n]
	newest := window[len(window)-1]

	minutes := newest.Timestamp.Sub(oldest.Timestamp).Minutes()
	if minutes <= 0 {
		return 0
	}
	return (oldest.FuelLevel - newest.FuelLevel) / minutes
}

// harsh event threshold shared with the profile update path
const profileHarshAccel = 4.0

// IsHarshEvent reports whether the sample counts toward the profile's harsh
// events counter. The bar is lower than the classifier's harsh rules.
func IsHarshEvent(s models.Sample) bool {
	return math.Abs(s.Acceleration) > profileHarshAccel
}
