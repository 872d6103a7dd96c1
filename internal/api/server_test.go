package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telematics-monitor/internal/config"
	"telematics-monitor/internal/engine"
	"telematics-monitor/internal/models"
)

func newTestServer(t *testing.T) (*engine.Monitor, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	monitor := engine.New(config.Default(), zap.NewNop(), engine.WithMetrics(engine.NewMetrics(reg)))
	server := NewServer(monitor, reg, zap.NewNop())

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return monitor, ts
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestVehiclesEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/api/v1/vehicles")
	assert.Equal(t, http.StatusOK, status)

	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 20)
}

func TestAnalyticsEndpoint(t *testing.T) {
	monitor, ts := newTestServer(t)

	monitor.Process(models.Sample{
		Timestamp: time.Now(), VehicleID: 1, Speed: 50, RPM: 2500, EngineTemp: 90,
		FuelLevel: 80, EngineOn: true, Latitude: 10, Longitude: 10,
		OilPressure: 3, BatteryVoltage: 13,
	})

	status, body := getJSON(t, ts.URL+"/api/v1/vehicles/1/analytics")
	assert.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["window_length"])

	status, _ = getJSON(t, ts.URL+"/api/v1/vehicles/abc/analytics")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAnomaliesEndpoint(t *testing.T) {
	monitor, ts := newTestServer(t)

	monitor.Process(models.Sample{
		Timestamp: time.Now(), VehicleID: 2, Speed: 50, RPM: 2500, EngineTemp: 120,
		FuelLevel: 80, EngineOn: true, Latitude: 10, Longitude: 10,
		OilPressure: 3, BatteryVoltage: 13,
	})

	status, body := getJSON(t, ts.URL+"/api/v1/vehicles/2/anomalies")
	assert.Equal(t, http.StatusOK, status)

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	anomaly := data[0].(map[string]interface{})
	assert.Equal(t, "temperature", anomaly["sensor"])
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/api/v1/status")
	assert.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["running"])
	assert.Equal(t, float64(20), data["active_vehicles"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
