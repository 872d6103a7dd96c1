package sinks

import (
	"encoding/csv"
	"fmt"
	"os"

	"telematics-monitor/internal/models"
)

// CSVSink appends samples, anomalies, and performance rows to three local CSV
// files, one header row each. Writes are flushed immediately so a crashed run
// still leaves complete logs behind.
type CSVSink struct {
	sampleFile  *os.File
	anomalyFile *os.File
	perfFile    *os.File

	samples   *csv.Writer
	anomalies *csv.Writer
	perf      *csv.Writer
}

var performanceCSVHeader = []string{
	"Timestamp", "TotalReadings", "TotalAnomalies", "ProcessingTimeMs", "MemoryUsageMB",
}

// NewCSVSink creates (truncating) the three log files and writes headers.
func NewCSVSink(samplePath, anomalyPath, perfPath string) (*CSVSink, error) {
	s := &CSVSink{}

	var err error
	if s.sampleFile, s.samples, err = openCSV(samplePath, models.SampleCSVHeader); err != nil {
		return nil, err
	}
	if s.anomalyFile, s.anomalies, err = openCSV(anomalyPath, models.AnomalyCSVHeader); err != nil {
		s.sampleFile.Close()
		return nil, err
	}
	if s.perfFile, s.perf, err = openCSV(perfPath, performanceCSVHeader); err != nil {
		s.sampleFile.Close()
		s.anomalyFile.Close()
		return nil, err
	}
	return s, nil
}

func openCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	w.Flush()
	return f, w, w.Error()
}

func (s *CSVSink) WriteSample(sample models.Sample) error {
	if err := s.samples.Write(sample.CSVRecord()); err != nil {
		return err
	}
	s.samples.Flush()
	return s.samples.Error()
}

func (s *CSVSink) WriteAnomaly(a models.Anomaly) error {
	if err := s.anomalies.Write(a.CSVRecord()); err != nil {
		return err
	}
	s.anomalies.Flush()
	return s.anomalies.Error()
}

func (s *CSVSink) WritePerformance(r PerformanceRecord) error {
	record := []string{
		models.FormatTimestamp(r.Timestamp),
		fmt.Sprintf("%d", r.TotalReadings),
		fmt.Sprintf("%d", r.TotalAnomalies),
		fmt.Sprintf("%.2f", r.ProcessingMs),
		fmt.Sprintf("%.2f", r.MemoryMB),
	}
	if err := s.perf.Write(record); err != nil {
		return err
	}
	s.perf.Flush()
	return s.perf.Error()
}

func (s *CSVSink) Close() error {
	s.samples.Flush()
	s.anomalies.Flush()
	s.perf.Flush()

	var first error
	for _, f := range []*os.File{s.sampleFile, s.anomalyFile, s.perfFile} {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
