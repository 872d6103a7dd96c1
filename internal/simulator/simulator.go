package simulator

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"telematics-monitor/internal/config"
	"telematics-monitor/internal/engine"
	"telematics-monitor/internal/models"
)

// Scenario identifiers for injected faults. Zero means a clean sample.
const (
	ScenarioNone = iota
	ScenarioExtremeSpeed
	ScenarioOverrev
	ScenarioOverheat
	ScenarioNegativeSpeed
	ScenarioStall
	ScenarioHarshAccel
	ScenarioHarshBrake
	ScenarioLowOilPressure
	ScenarioBatteryFault
	ScenarioFuelLeak
	scenarioCount
)

// Simulator produces synthetic telemetry with per-vehicle continuity and
// occasional injected fault scenarios. It is an external producer: the
// engine accepts its samples like any other source.
type Simulator struct {
	cfg  config.Config
	log  *zap.Logger
	rng  *rand.Rand
	last map[int]models.Sample
}

func New(cfg config.Config, log *zap.Logger, seed int64) *Simulator {
	return &Simulator{
		cfg:  cfg,
		log:  log,
		rng:  rand.New(rand.NewSource(seed)),
		last: make(map[int]models.Sample),
	}
}

// Run feeds the monitor at the configured rate until the monitor stops
// running. While paused it sleeps briefly and retries.
func (s *Simulator) Run(m *engine.Monitor) {
	s.log.Info("producer started",
		zap.Duration("interval", s.cfg.ProducerInterval),
		zap.Int("vehicles", s.cfg.ProducerVehicles))

	for m.Running() {
		if m.Paused() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		vehicleID := 1 + s.rng.Intn(s.cfg.ProducerVehicles)
		scenario := ScenarioNone
		if s.rng.Float64() < s.cfg.AnomalyChance {
			scenario = 1 + s.rng.Intn(scenarioCount-1)
		}

		m.Process(s.Next(vehicleID, scenario))
		time.Sleep(s.cfg.ProducerInterval)
	}

	s.log.Info("producer stopped")
}

// Next generates the next sample for a vehicle, random-walking from the
// previous one when it exists, then applying the fault scenario.
func (s *Simulator) Next(vehicleID, scenario int) models.Sample {
	sample := models.Sample{
		Timestamp:      time.Now(),
		VehicleID:      vehicleID,
		Speed:          20 + s.rng.Float64()*100,
		RPM:            800 + s.rng.Float64()*5200,
		EngineTemp:     80 + s.rng.Float64()*15,
		FuelLevel:      5 + s.rng.Float64()*90,
		Throttle:       s.rng.Float64() * 100,
		EngineOn:       true,
		Latitude:       40.70 + s.rng.Float64()*0.08,
		Longitude:      -74.02 + s.rng.Float64()*0.06,
		Acceleration:   s.rng.NormFloat64() * 2,
		BrakePressure:  s.rng.Float64() * 10,
		OilPressure:    2 + s.rng.Float64()*4,
		BatteryVoltage: 11.5 + s.rng.Float64()*3,
	}

	if prev, ok := s.last[vehicleID]; ok {
		sample.Speed = math.Max(0, prev.Speed+s.rng.NormFloat64()*3)
		sample.RPM = math.Max(0, prev.RPM+s.rng.NormFloat64()*150)
		sample.EngineTemp = math.Max(0, prev.EngineTemp+s.rng.NormFloat64()*0.5)
		sample.FuelLevel = math.Max(0, math.Min(100, prev.FuelLevel-0.05))

		dt := sample.Timestamp.Sub(prev.Timestamp).Seconds()
		if dt <= 0 {
			dt = 1
		}
		sample.Acceleration = (sample.Speed - prev.Speed) / 3.6 / dt
		sample.OdometerKM = prev.OdometerKM + sample.Speed*dt/3600.0

		bearing := s.rng.Float64() * 360
		distKM := sample.Speed * dt / 3600.0
		sample.Latitude = prev.Latitude + (distKM/111.0)*math.Cos(bearing*math.Pi/180)
		sample.Longitude = prev.Longitude + (distKM/(111.0*math.Cos(prev.Latitude*math.Pi/180)))*math.Sin(bearing*math.Pi/180)

		if math.Abs(sample.Acceleration) > 3.0 {
			sample.ABSActive = s.rng.Float64() < 0.3
			sample.TractionControl = s.rng.Float64() < 0.2
		}
	}

	s.applyScenario(&sample, scenario)
	s.last[vehicleID] = sample
	return sample
}

func (s *Simulator) applyScenario(sample *models.Sample, scenario int) {
	switch scenario {
	case ScenarioExtremeSpeed:
		sample.Speed = 250 + s.rng.Float64()*50
	case ScenarioOverrev:
		sample.RPM = 9000 + s.rng.Float64()*2000
	case ScenarioOverheat:
		sample.EngineTemp = 120 + s.rng.Float64()*20
	case ScenarioNegativeSpeed:
		sample.Speed = -10
	case ScenarioStall:
		sample.EngineOn = false
		sample.RPM = 0
		sample.Speed = 0
	case ScenarioHarshAccel:
		sample.Acceleration = 8 + s.rng.Float64()*4
		sample.ABSActive = true
		sample.TractionControl = true
	case ScenarioHarshBrake:
		sample.Acceleration = -8 - s.rng.Float64()*4
		sample.BrakePressure = 15 + s.rng.Float64()*5
		sample.ABSActive = true
	case ScenarioLowOilPressure:
		sample.OilPressure = 0.5 + s.rng.Float64()*0.3
	case ScenarioBatteryFault:
		sample.BatteryVoltage = 9 + s.rng.Float64()
	case ScenarioFuelLeak:
		if prev, ok := s.last[sample.VehicleID]; ok {
			sample.FuelLevel = math.Max(0, prev.FuelLevel-5)
		}
	}
}
