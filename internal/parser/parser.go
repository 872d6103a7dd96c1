package parser

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"telematics-monitor/internal/models"
)

// Parser reads telemetry files for replay through the engine. Bad lines are
// logged and skipped; parsing never aborts on a single record.
type Parser struct {
	format string
	log    *zap.Logger
}

// NewParser creates a parser for the given format (csv, json, log).
func NewParser(format string, log *zap.Logger) *Parser {
	return &Parser{format: format, log: log}
}

// ParseFile parses a telemetry data file into samples.
func (p *Parser) ParseFile(filename string) ([]models.Sample, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(p.format) {
	case "csv":
		return p.parseCSV(file)
	case "json":
		return p.parseJSON(file)
	case "log":
		return p.parseLog(file)
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.format)
	}
}

// parseCSV parses header-keyed CSV telemetry. Both the sink header names and
// snake_case names are accepted.
func (p *Parser) parseCSV(r io.Reader) ([]models.Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	indices := make(map[string]int)
	for i, h := range header {
		indices[normalizeColumn(h)] = i
	}

	var results []models.Sample
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if pe, ok := err.(*csv.ParseError); ok {
				lineNum++
				p.log.Warn("skipping malformed record", zap.Int("line", pe.Line), zap.Error(err))
				continue
			}
			return results, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		lineNum++

		sample, err := p.recordToSample(record, indices)
		if err != nil {
			p.log.Warn("skipping bad record", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		results = append(results, sample)
	}

	return results, nil
}

// normalizeColumn maps both sink header names and snake_case aliases onto
// one key space.
func normalizeColumn(h string) string {
	key := strings.ToLower(strings.TrimSpace(h))
	aliases := map[string]string{
		"vehicleid":             "vehicle_id",
		"fuellevel":             "fuel_level",
		"temperature":           "engine_temp",
		"engineon":              "engine_on",
		"brakepressure":         "brake_pressure",
		"oilpressure":           "oil_pressure",
		"batteryvoltage":        "battery_voltage",
		"odometer":              "odometer_km",
		"absactive":             "abs_active",
		"tractioncontrolactive": "traction_control",
	}
	if mapped, ok := aliases[key]; ok {
		return mapped
	}
	return key
}

// recordToSample converts a CSV record to a Sample.
func (p *Parser) recordToSample(record []string, indices map[string]int) (models.Sample, error) {
	var s models.Sample
	var err error

	getValue := func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	s.VehicleID, err = strconv.Atoi(getValue("vehicle_id"))
	if err != nil || s.VehicleID == 0 {
		return s, fmt.Errorf("missing or invalid vehicle_id")
	}

	tsStr := getValue("timestamp")
	if tsStr != "" {
		s.Timestamp, err = parseTimestamp(tsStr)
		if err != nil {
			return s, fmt.Errorf("invalid timestamp: %w", err)
		}
	} else {
		s.Timestamp = time.Now()
	}

	s.Speed, _ = strconv.ParseFloat(getValue("speed"), 64)
	s.RPM, _ = strconv.ParseFloat(getValue("rpm"), 64)
	s.EngineTemp, _ = strconv.ParseFloat(getValue("engine_temp"), 64)
	s.FuelLevel, _ = strconv.ParseFloat(getValue("fuel_level"), 64)
	s.Throttle, _ = strconv.ParseFloat(getValue("throttle"), 64)
	s.EngineOn = parseFlag(getValue("engine_on"))
	s.Latitude, _ = strconv.ParseFloat(getValue("latitude"), 64)
	s.Longitude, _ = strconv.ParseFloat(getValue("longitude"), 64)
	s.Acceleration, _ = strconv.ParseFloat(getValue("acceleration"), 64)
	s.BrakePressure, _ = strconv.ParseFloat(getValue("brake_pressure"), 64)
	s.OilPressure, _ = strconv.ParseFloat(getValue("oil_pressure"), 64)
	s.BatteryVoltage, _ = strconv.ParseFloat(getValue("battery_voltage"), 64)
	s.OdometerKM, _ = strconv.ParseFloat(getValue("odometer_km"), 64)
	s.ABSActive = parseFlag(getValue("abs_active"))
	s.TractionControl = parseFlag(getValue("traction_control"))

	return s, nil
}

func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// parseJSON parses JSON telemetry, either one array or newline-delimited
// objects.
func (p *Parser) parseJSON(r io.Reader) ([]models.Sample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var results []models.Sample
	if err := json.Unmarshal(data, &results); err == nil {
		return results, nil
	}

	return p.parseJSONLines(strings.NewReader(string(data)))
}

// parseJSONLines parses newline-delimited JSON.
func (p *Parser) parseJSONLines(r io.Reader) ([]models.Sample, error) {
	var results []models.Sample
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "[" || line == "]" {
			continue
		}
		line = strings.TrimSuffix(line, ",")

		var s models.Sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			p.log.Warn("skipping bad record", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		results = append(results, s)
	}

	return results, scanner.Err()
}

// parseLog parses the pipe-delimited format:
// timestamp|vehicle_id|lat,lon|speed|rpm|temp|fuel|oil|battery|odometer
func (p *Parser) parseLog(r io.Reader) ([]models.Sample, error) {
	var results []models.Sample
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 10 {
			p.log.Warn("skipping record with insufficient fields", zap.Int("line", lineNum))
			continue
		}

		var s models.Sample
		var err error

		s.Timestamp, err = parseTimestamp(parts[0])
		if err != nil {
			p.log.Warn("skipping record with invalid timestamp", zap.Int("line", lineNum))
			continue
		}

		s.VehicleID, _ = strconv.Atoi(parts[1])
		s.EngineOn = true

		coords := strings.Split(parts[2], ",")
		if len(coords) == 2 {
			s.Latitude, _ = strconv.ParseFloat(coords[0], 64)
			s.Longitude, _ = strconv.ParseFloat(coords[1], 64)
		}

		s.Speed, _ = strconv.ParseFloat(parts[3], 64)
		s.RPM, _ = strconv.ParseFloat(parts[4], 64)
		s.EngineTemp, _ = strconv.ParseFloat(parts[5], 64)
		s.FuelLevel, _ = strconv.ParseFloat(parts[6], 64)
		s.OilPressure, _ = strconv.ParseFloat(parts[7], 64)
		s.BatteryVoltage, _ = strconv.ParseFloat(parts[8], 64)
		s.OdometerKM, _ = strconv.ParseFloat(parts[9], 64)

		results = append(results, s)
	}

	return results, scanner.Err()
}

// parseTimestamp tries multiple timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02 15:04:05",
		"15:04:05.000",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return t, nil
		}
	}

	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(ts, 0), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}
