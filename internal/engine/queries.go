package engine

import (
	"fmt"
	"os"
	"sort"
	"time"

	"telematics-monitor/internal/models"
	"telematics-monitor/internal/stats"
)

// VehicleAnalytics is the full read snapshot for one vehicle.
type VehicleAnalytics struct {
	Profile           models.VehicleProfile       `json:"profile"`
	State             models.VehicleState         `json:"state"`
	WindowLength      int                         `json:"window_length"`
	Fields            map[string]stats.Statistics `json:"fields"`
	SeverityHistogram map[int]int                 `json:"severity_histogram"`
	KindHistogram     map[string]int              `json:"kind_histogram"`
	PredictiveHints   []string                    `json:"predictive_hints"`
	BaselineTrained   bool                        `json:"baseline_trained"`
}

// VehicleSummary is the listing row for one vehicle.
type VehicleSummary struct {
	VehicleID    int                 `json:"vehicle_id"`
	MakeModel    string              `json:"make_model"`
	LicensePlate string              `json:"license_plate"`
	State        models.VehicleState `json:"state"`
	Anomalies    int                 `json:"anomalies"`
}

// CriticalAlert is one row of the critical-alert view, ordered by priority.
type CriticalAlert struct {
	VehicleID int                 `json:"vehicle_id"`
	Severity  int                 `json:"severity"`
	Timestamp time.Time           `json:"timestamp"`
	State     models.VehicleState `json:"state"`
}

// SystemStatus is the counters-and-bounds snapshot.
type SystemStatus struct {
	Running           bool    `json:"running"`
	Paused            bool    `json:"paused"`
	TotalReadings     int64   `json:"total_readings"`
	TotalAnomalies    int64   `json:"total_anomalies"`
	DroppedSamples    int64   `json:"dropped_samples"`
	ActiveVehicles    int     `json:"active_vehicles"`
	Geofences         int     `json:"geofences"`
	PendingAlerts     int     `json:"pending_alerts"`
	EstimatedMemoryMB float64 `json:"estimated_memory_mb"`
}

// VehicleIDs returns the catalog vehicle ids in ascending order.
func (m *Monitor) VehicleIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// VehicleSummaries returns one listing row per catalog vehicle.
func (m *Monitor) VehicleSummaries() []VehicleSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	out := make([]VehicleSummary, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, VehicleSummary{
			VehicleID:    p.VehicleID,
			MakeModel:    p.MakeModel,
			LicensePlate: p.LicensePlate,
			State:        m.effectiveState(p, now),
			Anomalies:    p.TotalAnomalies,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// Analytics assembles the per-field statistics, profile snapshot, anomaly
// histograms, and predictive hints for one vehicle. The second return is
// false when the vehicle has no data at all.
func (m *Monitor) Analytics(vehicleID int) (VehicleAnalytics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile := m.profiles[vehicleID]
	window := m.windows[vehicleID]
	if profile == nil && len(window) == 0 {
		return VehicleAnalytics{}, false
	}

	va := VehicleAnalytics{
		WindowLength:      len(window),
		Fields:            make(map[string]stats.Statistics, 5),
		SeverityHistogram: make(map[int]int),
		KindHistogram:     make(map[string]int),
		BaselineTrained:   m.detector.Trained(vehicleID),
	}

	if trend := m.trends[vehicleID]; trend != nil {
		va.Fields["speed"] = stats.Compute(trend.speed)
		va.Fields["rpm"] = stats.Compute(trend.rpm)
		va.Fields["temperature"] = stats.Compute(trend.temperature)
		va.Fields["fuel"] = stats.Compute(trend.fuel)
		va.Fields["acceleration"] = stats.Compute(trend.acceleration)
	}

	for _, a := range m.anomalies[vehicleID] {
		va.SeverityHistogram[a.Severity]++
		va.KindHistogram[a.Kind.String()]++
	}

	if profile != nil {
		va.Profile = profile.Snapshot()
		va.State = m.effectiveState(profile, time.Now())
		va.PredictiveHints = m.predictiveHints(va.Fields, profile)
	}

	return va, true
}

// predictiveHints derives the trend warnings shown in the analytics view.
func (m *Monitor) predictiveHints(fields map[string]stats.Statistics, p *models.VehicleProfile) []string {
	var hints []string

	if speed, ok := fields["speed"]; ok {
		if speed.TrendSlope > 0.1 {
			hints = append(hints, fmt.Sprintf("Speed trend increasing (+%.2f km/h per reading)", speed.TrendSlope))
		} else if speed.TrendSlope < -0.1 {
			hints = append(hints, fmt.Sprintf("Speed trend decreasing (%.2f km/h per reading)", speed.TrendSlope))
		}
	}

	if temp, ok := fields["temperature"]; ok && temp.TrendSlope > 0.05 {
		hints = append(hints, fmt.Sprintf("Temperature rising trend (+%.2f C per reading)", temp.TrendSlope))
	}

	if p.TotalDistanceKM > p.MaintenanceKM*0.9 {
		hints = append(hints, fmt.Sprintf("Maintenance due soon (%.2f km remaining)", p.MaintenanceKM-p.TotalDistanceKM))
	}

	return hints
}

// Anomalies returns the most recent limit anomalies for a vehicle, newest
// last. limit <= 0 returns the whole index.
func (m *Monitor) Anomalies(vehicleID, limit int) []models.Anomaly {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.anomalies[vehicleID]
	if limit > 0 && len(idx) > limit {
		idx = idx[len(idx)-limit:]
	}
	return append([]models.Anomaly(nil), idx...)
}

// Critical returns the pending high-severity alerts in priority order,
// trimmed to those within the recent-anomaly window, with each vehicle's
// current state attached.
func (m *Monitor) Critical() []CriticalAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var out []CriticalAlert
	for _, al := range m.alerts.ordered() {
		if now.Sub(al.Timestamp) > m.cfg.RecentAnomalyAge {
			continue
		}
		ca := CriticalAlert{
			VehicleID: al.VehicleID,
			Severity:  al.Severity,
			Timestamp: al.Timestamp,
		}
		if p := m.profiles[al.VehicleID]; p != nil {
			ca.State = m.effectiveState(p, now)
		}
		out = append(out, ca)
	}
	return out
}

// Status returns the engine counters and resource estimate.
func (m *Monitor) Status() SystemStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return SystemStatus{
		Running:           m.running.Load(),
		Paused:            m.paused.Load(),
		TotalReadings:     m.totalReadings.Load(),
		TotalAnomalies:    m.totalAnomalies.Load(),
		DroppedSamples:    m.droppedSamples.Load(),
		ActiveVehicles:    len(m.profiles),
		Geofences:         len(m.geofences),
		PendingAlerts:     m.alerts.Len(),
		EstimatedMemoryMB: m.estimatedMemoryMB(),
	}
}

// Geofences returns a copy of the zone table.
func (m *Monitor) Geofences() []models.GeofenceZone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.GeofenceZone(nil), m.geofences...)
}

// ExportReport writes the system overview and per-vehicle summary to path.
func (m *Monitor) ExportReport(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	now := time.Now()
	fmt.Fprintf(f, "=== VEHICLE TELEMATICS SYSTEM REPORT ===\n")
	fmt.Fprintf(f, "Generated: %s\n\n", models.FormatTimestamp(now))

	fmt.Fprintf(f, "SYSTEM OVERVIEW:\n")
	fmt.Fprintf(f, "Total Readings Processed: %d\n", m.totalReadings.Load())
	fmt.Fprintf(f, "Total Anomalies Detected: %d\n", m.totalAnomalies.Load())
	fmt.Fprintf(f, "Active Vehicles: %d\n\n", len(m.profiles))

	ids := make([]int, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fmt.Fprintf(f, "VEHICLE SUMMARY:\n")
	for _, id := range ids {
		p := m.profiles[id]
		fmt.Fprintf(f, "Vehicle %d (%s):\n", id, p.MakeModel)
		fmt.Fprintf(f, "  State: %s\n", m.effectiveState(p, now))
		fmt.Fprintf(f, "  Distance: %.2f km\n", p.TotalDistanceKM)
		fmt.Fprintf(f, "  Anomalies: %d\n", p.TotalAnomalies)
		fmt.Fprintf(f, "  Harsh Events: %d\n\n", p.HarshEventsCount)
	}

	return nil
}
