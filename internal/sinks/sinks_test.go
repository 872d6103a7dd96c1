package sinks

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telematics-monitor/internal/models"
)

func testSample() models.Sample {
	return models.Sample{
		Timestamp:      time.Now(),
		VehicleID:      3,
		Speed:          72.5,
		RPM:            3000,
		EngineTemp:     91,
		FuelLevel:      64,
		EngineOn:       true,
		OilPressure:    3.1,
		BatteryVoltage: 12.8,
	}
}

func testAnomaly() models.Anomaly {
	a := models.NewAnomaly(time.Now(), 3, "temperature", 115, models.TempRange, "Engine overheating detected", 5)
	a.MLScore = 2.5
	return a
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkWritesHeadersAndRows(t *testing.T) {
	dir := t.TempDir()
	samplePath := filepath.Join(dir, "samples.csv")
	anomalyPath := filepath.Join(dir, "anomalies.csv")
	perfPath := filepath.Join(dir, "perf.csv")

	sink, err := NewCSVSink(samplePath, anomalyPath, perfPath)
	require.NoError(t, err)

	require.NoError(t, sink.WriteSample(testSample()))
	require.NoError(t, sink.WriteSample(testSample()))
	require.NoError(t, sink.WriteAnomaly(testAnomaly()))
	require.NoError(t, sink.WritePerformance(PerformanceRecord{
		Timestamp:      time.Now(),
		TotalReadings:  100,
		TotalAnomalies: 3,
		ProcessingMs:   0.42,
		MemoryMB:       1.5,
	}))
	require.NoError(t, sink.Close())

	samples := readCSV(t, samplePath)
	require.Len(t, samples, 3)
	assert.Equal(t, models.SampleCSVHeader, samples[0])
	assert.Equal(t, "3", samples[1][1])
	assert.Equal(t, "72.50", samples[1][2])

	anomalies := readCSV(t, anomalyPath)
	require.Len(t, anomalies, 2)
	assert.Equal(t, models.AnomalyCSVHeader, anomalies[0])
	assert.Equal(t, "TEMP_RANGE", anomalies[1][4])
	assert.Equal(t, "2.50", anomalies[1][9])

	perf := readCSV(t, perfPath)
	require.Len(t, perf, 2)
	assert.Equal(t, "100", perf[1][1])
	assert.Equal(t, "3", perf[1][2])
}

func TestSQLiteSinkPersistsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telematics.db")

	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.WriteSample(testSample()))
	}
	require.NoError(t, sink.WriteAnomaly(testAnomaly()))
	require.NoError(t, sink.Close())

	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM samples").Scan(&count))
	assert.Equal(t, 5, count)

	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM anomalies").Scan(&count))
	assert.Equal(t, 1, count)

	var kind string
	require.NoError(t, conn.QueryRow("SELECT kind FROM anomalies").Scan(&kind))
	assert.Equal(t, "TEMP_RANGE", kind)
}

func TestMultiSinkFansOut(t *testing.T) {
	dir := t.TempDir()
	first, err := NewCSVSink(
		filepath.Join(dir, "s1.csv"), filepath.Join(dir, "a1.csv"), filepath.Join(dir, "p1.csv"))
	require.NoError(t, err)
	second, err := NewCSVSink(
		filepath.Join(dir, "s2.csv"), filepath.Join(dir, "a2.csv"), filepath.Join(dir, "p2.csv"))
	require.NoError(t, err)

	m := Multi{first, second}
	require.NoError(t, m.WriteSample(testSample()))
	require.NoError(t, m.Close())

	assert.Len(t, readCSV(t, filepath.Join(dir, "s1.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, "s2.csv")), 2)
}
