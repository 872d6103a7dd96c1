package engine

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"telematics-monitor/internal/baseline"
	"telematics-monitor/internal/config"
	"telematics-monitor/internal/models"
	"telematics-monitor/internal/rules"
	"telematics-monitor/internal/sinks"
)

// Monitor is the streaming ingest and detection engine. One exclusive-writer
// lock guards the whole store: windows, trend buffers, anomaly indices,
// profiles, geofences, and the alert queue. Process serializes writes;
// queries take the read side and hand out copies.
type Monitor struct {
	cfg config.Config
	log *zap.Logger

	mu        sync.RWMutex
	windows   map[int][]models.Sample
	trends    map[int]*trendSet
	anomalies map[int][]models.Anomaly
	profiles  map[int]*models.VehicleProfile
	geofences []models.GeofenceZone
	alerts    alertQueue

	detector   *baseline.Detector
	classifier *rules.Classifier

	totalReadings  atomic.Int64
	totalAnomalies atomic.Int64
	droppedSamples atomic.Int64

	running atomic.Bool
	paused  atomic.Bool

	sink       sinks.Sink
	sinkFailed atomic.Bool

	metrics *Metrics
}

// Option adjusts a Monitor at construction.
type Option func(*Monitor)

// WithSink attaches an append-only observer to the ingest stream.
func WithSink(s sinks.Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithMetrics attaches Prometheus mirrors of the engine counters.
func WithMetrics(mx *Metrics) Option {
	return func(m *Monitor) { m.metrics = mx }
}

// WithGeofences replaces the default zone list.
func WithGeofences(zones []models.GeofenceZone) Option {
	return func(m *Monitor) { m.geofences = zones }
}

// WithCatalog replaces the default vehicle catalog.
func WithCatalog(entries []CatalogEntry) Option {
	return func(m *Monitor) {
		m.profiles = make(map[int]*models.VehicleProfile, len(entries))
		for _, e := range entries {
			m.profiles[e.VehicleID] = models.NewVehicleProfile(e.VehicleID, e.MakeModel, e.LicensePlate)
		}
	}
}

// New builds a Monitor with the default catalog and geofences, then applies
// options. The monitor starts running and unpaused.
func New(cfg config.Config, log *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:        cfg,
		log:        log,
		windows:    make(map[int][]models.Sample),
		trends:     make(map[int]*trendSet),
		anomalies:  make(map[int][]models.Anomaly),
		geofences:  DefaultGeofences(),
		detector:   baseline.NewDetector(cfg.BaselineMinSamples),
		classifier: rules.NewClassifier(rules.DefaultThresholds()),
	}
	WithCatalog(DefaultCatalog())(m)
	for _, opt := range opts {
		opt(m)
	}
	m.running.Store(true)
	return m
}

// Running reports whether producers should keep feeding samples.
func (m *Monitor) Running() bool { return m.running.Load() }

// Paused reports whether producers should hold off and retry.
func (m *Monitor) Paused() bool { return m.paused.Load() }

// Pause stops producers without discarding any state.
func (m *Monitor) Pause() { m.paused.Store(true) }

// Resume lets paused producers continue.
func (m *Monitor) Resume() { m.paused.Store(false) }

// Shutdown tells producers to exit their loops. In-flight Process calls
// complete normally; the caller waits on the producers, then closes sinks.
func (m *Monitor) Shutdown() { m.running.Store(false) }

// TotalReadings returns the count of samples processed so far.
func (m *Monitor) TotalReadings() int64 { return m.totalReadings.Load() }

// TotalAnomalies returns the count of anomalies detected so far.
func (m *Monitor) TotalAnomalies() int64 { return m.totalAnomalies.Load() }

// DroppedSamples returns the count of samples rejected before processing.
func (m *Monitor) DroppedSamples() int64 { return m.droppedSamples.Load() }

// Process ingests one sample: profile update, window append, trend update,
// periodic baseline retrain, classification, state recompute, and sink
// emission, all under the write lock. Invalid samples are dropped and
// counted; Process never fails.
func (m *Monitor) Process(sample models.Sample) {
	if !sample.Valid() {
		m.droppedSamples.Add(1)
		if m.metrics != nil {
			m.metrics.DroppedTotal.Inc()
		}
		return
	}

	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	vehicleID := sample.VehicleID
	total := m.totalReadings.Add(1)

	profile := m.profiles[vehicleID]
	if profile != nil {
		m.updateProfile(profile, sample)
	}

	window := append(m.windows[vehicleID], sample)
	if len(window) > m.cfg.WindowSize {
		window = window[len(window)-m.cfg.WindowSize:]
	}
	m.windows[vehicleID] = window

	trend := m.trends[vehicleID]
	if trend == nil {
		trend = &trendSet{}
		m.trends[vehicleID] = trend
	}
	trend.update(sample, m.cfg.TrendBufferCap)

	if len(window) >= m.cfg.RetrainMinWindow && total%int64(m.cfg.RetrainEveryTicks) == 0 {
		m.detector.Train(vehicleID, window)
	}

	score := m.detector.Score(vehicleID, sample)

	detected := m.classifier.Classify(rules.Input{
		Sample:    sample,
		Window:    window,
		MLScore:   score,
		Geofences: m.geofences,
		Profile:   profile,
	})

	for _, a := range detected {
		m.indexAnomaly(a, profile)
	}

	if profile != nil {
		m.refreshState(profile, sample.Timestamp)
	}

	m.emit(sample, detected, total, start)

	if m.metrics != nil {
		m.metrics.ReadingsTotal.Inc()
		m.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
	}
}

// updateProfile applies the per-sample profile mutations: liveness, route and
// distance, speed aggregates, harsh events.
func (m *Monitor) updateProfile(p *models.VehicleProfile, s models.Sample) {
	p.LastSeen = s.Timestamp
	p.RecordPosition(s.Latitude, s.Longitude, m.cfg.RouteHistoryCap)
	p.RecordSpeed(s.Speed)
	if rules.IsHarshEvent(s) {
		p.HarshEventsCount++
	}
}

// indexAnomaly appends to the per-vehicle index, bumps counters, feeds the
// alert queue, and applies the maintenance transition.
func (m *Monitor) indexAnomaly(a models.Anomaly, profile *models.VehicleProfile) {
	idx := append(m.anomalies[a.VehicleID], a)
	if m.cfg.AnomalyIndexCap > 0 && len(idx) > m.cfg.AnomalyIndexCap {
		idx = idx[len(idx)-m.cfg.AnomalyIndexCap:]
	}
	m.anomalies[a.VehicleID] = idx

	m.totalAnomalies.Add(1)
	if m.metrics != nil {
		m.metrics.AnomaliesTotal.WithLabelValues(a.Kind.String()).Inc()
	}

	if a.Severity >= 4 {
		heap.Push(&m.alerts, alert{Severity: a.Severity, VehicleID: a.VehicleID, Timestamp: a.Timestamp})
	}

	if profile != nil {
		profile.TotalAnomalies++
		if a.Kind == models.Maintenance {
			profile.CurrentState = models.StateMaintenance
		}
	}

	m.log.Warn("anomaly detected",
		zap.Int("vehicle_id", a.VehicleID),
		zap.String("kind", a.Kind.String()),
		zap.String("sensor", a.Sensor),
		zap.Float64("value", a.Value),
		zap.Int("severity", a.Severity),
		zap.Float64("ml_score", a.MLScore),
	)
}

// refreshState recomputes the vehicle state from anomalies within the recent
// window. MAINTENANCE persists until an explicit reset.
func (m *Monitor) refreshState(p *models.VehicleProfile, now time.Time) {
	var critical, high int
	for _, a := range m.anomalies[p.VehicleID] {
		if now.Sub(a.Timestamp) > m.cfg.RecentAnomalyAge {
			continue
		}
		switch a.Severity {
		case 5:
			critical++
		case 4:
			high++
		}
	}

	switch {
	case critical > 0:
		p.CurrentState = models.StateCritical
	case high > 2:
		p.CurrentState = models.StateWarning
	case p.CurrentState != models.StateMaintenance:
		p.CurrentState = models.StateNormal
	}

	if now.Sub(p.LastSeen) > m.cfg.OfflineTimeout {
		p.CurrentState = models.StateOffline
	}
}

// effectiveState folds liveness into the stored state at read time, so a
// vehicle that went silent shows OFFLINE even with no sample to trigger the
// recompute.
func (m *Monitor) effectiveState(p *models.VehicleProfile, now time.Time) models.VehicleState {
	if now.Sub(p.LastSeen) > m.cfg.OfflineTimeout {
		return models.StateOffline
	}
	return p.CurrentState
}

// emit pushes the sample, its anomalies, and the periodic performance row to
// the attached sink. Sink failures are logged once; the sink stays attached
// so a recovering sink resumes receiving writes.
func (m *Monitor) emit(sample models.Sample, detected []models.Anomaly, total int64, start time.Time) {
	if m.sink == nil {
		return
	}

	var err error
	if e := m.sink.WriteSample(sample); e != nil {
		err = e
	}
	for _, a := range detected {
		if e := m.sink.WriteAnomaly(a); e != nil && err == nil {
			err = e
		}
	}

	if m.cfg.PerformanceEvery > 0 && total%int64(m.cfg.PerformanceEvery) == 0 {
		rec := sinks.PerformanceRecord{
			Timestamp:      time.Now(),
			TotalReadings:  total,
			TotalAnomalies: m.totalAnomalies.Load(),
			ProcessingMs:   float64(time.Since(start).Microseconds()) / 1000.0,
			MemoryMB:       m.estimatedMemoryMB(),
		}
		if e := m.sink.WritePerformance(rec); e != nil && err == nil {
			err = e
		}
	}

	if err != nil {
		if m.sinkFailed.CompareAndSwap(false, true) {
			m.log.Error("sink write failed, continuing without confirmation", zap.Error(err))
		}
	} else {
		m.sinkFailed.Store(false)
	}
}

// estimatedMemoryMB approximates store residency from window and index sizes.
// Callers must hold at least the read lock.
func (m *Monitor) estimatedMemoryMB() float64 {
	var bytes uintptr
	sampleSize := unsafe.Sizeof(models.Sample{})
	anomalySize := unsafe.Sizeof(models.Anomaly{})
	for _, w := range m.windows {
		bytes += uintptr(len(w)) * sampleSize
	}
	for _, idx := range m.anomalies {
		bytes += uintptr(len(idx)) * anomalySize
	}
	return float64(bytes) / (1024 * 1024)
}
