package models

import "time"

// VehicleState is the lifecycle state derived from recent anomalies and
// liveness.
type VehicleState int

const (
	StateNormal VehicleState = iota
	StateWarning
	StateCritical
	StateOffline
	StateMaintenance
)

func (s VehicleState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateOffline:
		return "OFFLINE"
	case StateMaintenance:
		return "MAINTENANCE"
	default:
		return "UNKNOWN"
	}
}

// RoutePoint is one (lat, lon) pair of the bounded route history.
type RoutePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VehicleProfile holds per-vehicle metadata and cumulative aggregates.
// Profiles are created at startup from the catalog and live for the process
// lifetime.
type VehicleProfile struct {
	VehicleID          int                `json:"vehicle_id"`
	MakeModel          string             `json:"make_model"`
	LicensePlate       string             `json:"license_plate"`
	CurrentState       VehicleState       `json:"current_state"`
	LastSeen           time.Time          `json:"last_seen"`
	TotalDistanceKM    float64            `json:"total_distance_km"`
	TotalAnomalies     int                `json:"total_anomalies"`
	AvgFuelEfficiency  float64            `json:"avg_fuel_efficiency"`
	RouteHistory       []RoutePoint       `json:"-"`
	LastMaintenance    time.Time          `json:"last_maintenance"`
	MaintenanceKM      float64            `json:"maintenance_interval_km"`
	MaxSpeedRecorded   float64            `json:"max_speed_recorded"`
	AvgSpeed           float64            `json:"avg_speed"`
	HarshEventsCount   int                `json:"harsh_events_count"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics"`
}

// NewVehicleProfile seeds a profile for a catalog vehicle. Last maintenance
// defaults to 30 days ago, matching a fleet that is mid-interval at startup.
func NewVehicleProfile(id int, makeModel, plate string) *VehicleProfile {
	if makeModel == "" {
		makeModel = "Unknown Vehicle"
	}
	return &VehicleProfile{
		VehicleID:          id,
		MakeModel:          makeModel,
		LicensePlate:       plate,
		CurrentState:       StateNormal,
		LastSeen:           time.Now(),
		LastMaintenance:    time.Now().Add(-30 * 24 * time.Hour),
		MaintenanceKM:      10000,
		PerformanceMetrics: make(map[string]float64),
	}
}

// RecordPosition appends a route point, accumulating haversine distance from
// the previous point, and evicts the oldest entry beyond the route cap.
func (p *VehicleProfile) RecordPosition(lat, lon float64, routeCap int) {
	if len(p.RouteHistory) > 0 {
		last := p.RouteHistory[len(p.RouteHistory)-1]
		p.TotalDistanceKM += Haversine(last.Latitude, last.Longitude, lat, lon)
	}
	p.RouteHistory = append(p.RouteHistory, RoutePoint{Latitude: lat, Longitude: lon})
	if routeCap > 0 && len(p.RouteHistory) > routeCap {
		p.RouteHistory = p.RouteHistory[len(p.RouteHistory)-routeCap:]
	}
}

// RecordSpeed folds a speed observation into max and running average.
func (p *VehicleProfile) RecordSpeed(speed float64) {
	if speed > p.MaxSpeedRecorded {
		p.MaxSpeedRecorded = speed
	}
	p.PerformanceMetrics["total_speed_sum"] += speed
	p.PerformanceMetrics["speed_count"]++
	p.AvgSpeed = p.PerformanceMetrics["total_speed_sum"] / p.PerformanceMetrics["speed_count"]
}

// Snapshot returns a copy safe to hand to readers outside the store lock.
// The route history is cloned; the metrics map is copied shallowly.
func (p *VehicleProfile) Snapshot() VehicleProfile {
	cp := *p
	cp.RouteHistory = append([]RoutePoint(nil), p.RouteHistory...)
	cp.PerformanceMetrics = make(map[string]float64, len(p.PerformanceMetrics))
	for k, v := range p.PerformanceMetrics {
		cp.PerformanceMetrics[k] = v
	}
	return cp
}
