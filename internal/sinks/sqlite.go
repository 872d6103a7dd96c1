package sinks

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"telematics-monitor/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteBatchSize    = 256
	sqliteFlushTimeout = 2 * time.Second
)

// SQLiteSink persists samples and anomalies to a local SQLite database as an
// append-only observer. Rows are buffered and committed in transactions,
// flushed when a buffer fills or on a timer. The engine never reads this
// database back; it exists for offline analysis.
type SQLiteSink struct {
	conn *sql.DB

	mu       sync.Mutex
	samples  []models.Sample
	events   []models.Anomaly
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSQLiteSink opens (or creates) the database at path with WAL mode and a
// single-writer pool, creates the schema, and starts the flush loop.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000", path)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &SQLiteSink{
		conn:   conn,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if err := s.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	go s.flushLoop()
	return s, nil
}

func (s *SQLiteSink) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		speed REAL NOT NULL,
		rpm REAL NOT NULL,
		engine_temp REAL NOT NULL,
		fuel_level REAL NOT NULL,
		throttle REAL NOT NULL,
		engine_on INTEGER NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		acceleration REAL NOT NULL,
		brake_pressure REAL NOT NULL,
		oil_pressure REAL NOT NULL,
		battery_voltage REAL NOT NULL,
		odometer_km REAL NOT NULL,
		abs_active INTEGER NOT NULL,
		traction_control INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS anomalies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		sensor TEXT NOT NULL,
		value REAL NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL,
		severity INTEGER NOT NULL,
		priority INTEGER NOT NULL,
		location TEXT,
		ml_score REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_vehicle_time ON samples(vehicle_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_anomalies_vehicle_time ON anomalies(vehicle_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_anomalies_severity ON anomalies(severity);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteSink) WriteSample(sample models.Sample) error {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	full := len(s.samples) >= sqliteBatchSize
	s.mu.Unlock()

	if full {
		return s.flush()
	}
	return nil
}

func (s *SQLiteSink) WriteAnomaly(a models.Anomaly) error {
	s.mu.Lock()
	s.events = append(s.events, a)
	full := len(s.events) >= sqliteBatchSize
	s.mu.Unlock()

	if full {
		return s.flush()
	}
	return nil
}

// WritePerformance is a no-op: performance rows belong to the CSV sink only.
func (s *SQLiteSink) WritePerformance(PerformanceRecord) error {
	return nil
}

func (s *SQLiteSink) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(sqliteFlushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush commits all buffered samples and anomalies in a single transaction.
// The buffers are cleared before the commit, so rows of a failed batch are
// not retried.
func (s *SQLiteSink) flush() error {
	s.mu.Lock()
	samples := s.samples
	events := s.events
	s.samples = nil
	s.events = nil
	s.mu.Unlock()

	if len(samples) == 0 && len(events) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(samples) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO samples
			(vehicle_id, timestamp, speed, rpm, engine_temp, fuel_level, throttle,
			 engine_on, latitude, longitude, acceleration, brake_pressure,
			 oil_pressure, battery_voltage, odometer_km, abs_active, traction_control)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		for _, sm := range samples {
			if _, err := stmt.Exec(
				sm.VehicleID, sm.Timestamp, sm.Speed, sm.RPM, sm.EngineTemp,
				sm.FuelLevel, sm.Throttle, sm.EngineOn, sm.Latitude, sm.Longitude,
				sm.Acceleration, sm.BrakePressure, sm.OilPressure, sm.BatteryVoltage,
				sm.OdometerKM, sm.ABSActive, sm.TractionControl,
			); err != nil {
				stmt.Close()
				return err
			}
		}
		stmt.Close()
	}

	if len(events) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO anomalies
			(vehicle_id, timestamp, sensor, value, kind, description, severity,
			 priority, location, ml_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		for _, a := range events {
			if _, err := stmt.Exec(
				a.VehicleID, a.Timestamp, a.Sensor, a.Value, a.Kind.String(),
				a.Description, a.Severity, a.Priority, a.Location, a.MLScore,
			); err != nil {
				stmt.Close()
				return err
			}
		}
		stmt.Close()
	}

	return tx.Commit()
}

// Close flushes remaining rows and closes the database.
func (s *SQLiteSink) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
	flushErr := s.flush()
	if err := s.conn.Close(); err != nil {
		return err
	}
	return flushErr
}
