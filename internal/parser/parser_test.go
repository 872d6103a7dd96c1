package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCSVSinkHeader(t *testing.T) {
	content := "Timestamp,VehicleID,Speed,RPM,Temperature,FuelLevel,Throttle,EngineOn,Latitude,Longitude,Acceleration,BrakePressure,OilPressure,BatteryVoltage,Odometer,ABSActive,TractionControlActive\n" +
		"14:30:05.123,7,55.50,2500.00,90.00,80.00,20.00,1,40.71,-74.01,0.50,0.00,3.00,12.80,1000.00,0,0\n"

	p := NewParser("csv", zap.NewNop())
	samples, err := p.ParseFile(writeFile(t, "data.csv", content))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, 7, s.VehicleID)
	assert.Equal(t, 55.5, s.Speed)
	assert.Equal(t, 90.0, s.EngineTemp)
	assert.True(t, s.EngineOn)
	assert.Equal(t, 1000.0, s.OdometerKM)
	assert.Equal(t, 14, s.Timestamp.Hour())
}

func TestParseCSVSnakeCaseHeader(t *testing.T) {
	content := "timestamp,vehicle_id,speed,rpm,engine_temp,fuel_level,engine_on\n" +
		"2024-05-10 14:30:05,3,61.2,2800,88.5,70.1,true\n"

	p := NewParser("csv", zap.NewNop())
	samples, err := p.ParseFile(writeFile(t, "data.csv", content))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	assert.Equal(t, 3, samples[0].VehicleID)
	assert.Equal(t, 61.2, samples[0].Speed)
	assert.Equal(t, 88.5, samples[0].EngineTemp)
	assert.True(t, samples[0].EngineOn)
}

func TestParseCSVSkipsBadRecords(t *testing.T) {
	content := "timestamp,vehicle_id,speed\n" +
		"2024-05-10 14:30:05,1,50\n" +
		"2024-05-10 14:30:06,not-a-number,55\n" +
		"2024-05-10 14:30:07,2,60\n"

	p := NewParser("csv", zap.NewNop())
	samples, err := p.ParseFile(writeFile(t, "data.csv", content))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 1, samples[0].VehicleID)
	assert.Equal(t, 2, samples[1].VehicleID)
}

func TestParseJSONArray(t *testing.T) {
	content := `[{"vehicle_id":4,"speed":80.5,"rpm":3200,"engine_on":true}]`

	p := NewParser("json", zap.NewNop())
	samples, err := p.ParseFile(writeFile(t, "data.json", content))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 4, samples[0].VehicleID)
	assert.Equal(t, 80.5, samples[0].Speed)
}

func TestParseJSONLines(t *testing.T) {
	content := `{"vehicle_id":1,"speed":30}
{"vehicle_id":2,"speed":40}
not json at all
{"vehicle_id":3,"speed":50}
`

	p := NewParser("json", zap.NewNop())
	samples, err := p.ParseFile(writeFile(t, "data.json", content))
	require.NoError(t, err)
	require.Len(t, samples, 3)
}

func TestParseLogFormat(t *testing.T) {
	content := "# comment line\n" +
		"2024-05-10 14:30:05|5|40.71,-74.01|55.5|2500|90|80|3.0|12.8|1000\n" +
		"garbage\n"

	p := NewParser("log", zap.NewNop())
	samples, err := p.ParseFile(writeFile(t, "data.log", content))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, 5, s.VehicleID)
	assert.Equal(t, 40.71, s.Latitude)
	assert.Equal(t, 55.5, s.Speed)
	assert.Equal(t, 12.8, s.BatteryVoltage)
	assert.True(t, s.EngineOn)
}

func TestUnsupportedFormat(t *testing.T) {
	p := NewParser("xml", zap.NewNop())
	_, err := p.ParseFile(writeFile(t, "data.xml", "<xml/>"))
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	p := NewParser("csv", zap.NewNop())
	_, err := p.ParseFile("/nonexistent/telemetry.csv")
	assert.Error(t, err)
}
