package shell

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"telematics-monitor/internal/engine"
	"telematics-monitor/internal/models"
)

const helpText = `Available commands:
  analytics <id>     - Analytics for a vehicle
  anomalies <id>     - Recent anomalies for a vehicle
  critical           - Show critical alerts
  status             - System status and performance
  vehicles           - List all vehicles
  report <filename>  - Export system report
  pause/resume       - Control the producer
  help               - Show this help
  quit               - Exit application
`

// Shell is the interactive command loop over the engine's query surface and
// control flags. It owns no engine state; every command maps onto a query or
// a flag flip.
type Shell struct {
	monitor *engine.Monitor
	in      io.Reader
	out     io.Writer
}

func New(monitor *engine.Monitor, in io.Reader, out io.Writer) *Shell {
	return &Shell{monitor: monitor, in: in, out: out}
}

// Run reads commands until quit or EOF. It returns once shutdown has been
// requested; the caller drains producers afterwards.
func (sh *Shell) Run() {
	fmt.Fprint(sh.out, helpText)
	scanner := bufio.NewScanner(sh.in)

	for {
		fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			sh.monitor.Shutdown()
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "analytics":
			sh.analytics(fields[1:])
		case "anomalies":
			sh.anomalies(fields[1:])
		case "critical":
			sh.critical()
		case "status":
			sh.status()
		case "vehicles":
			sh.vehicles()
		case "report":
			sh.report(fields[1:])
		case "pause":
			sh.monitor.Pause()
			fmt.Fprintln(sh.out, "Producer paused.")
		case "resume":
			sh.monitor.Resume()
			fmt.Fprintln(sh.out, "Producer resumed.")
		case "help":
			fmt.Fprint(sh.out, helpText)
		case "quit":
			fmt.Fprintln(sh.out, "Shutting down...")
			sh.monitor.Shutdown()
			return
		default:
			fmt.Fprintf(sh.out, "Unknown command %q. Type 'help' for available commands.\n", fields[0])
		}
	}
}

func (sh *Shell) vehicleArg(args []string) (int, bool) {
	if len(args) < 1 {
		fmt.Fprintln(sh.out, "Usage: <command> <vehicle id>")
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(sh.out, "Invalid vehicle id %q.\n", args[0])
		return 0, false
	}
	return id, true
}

func (sh *Shell) analytics(args []string) {
	id, ok := sh.vehicleArg(args)
	if !ok {
		return
	}

	va, ok := sh.monitor.Analytics(id)
	if !ok {
		fmt.Fprintf(sh.out, "Vehicle %d not found or no data available.\n", id)
		return
	}

	p := va.Profile
	fmt.Fprintf(sh.out, "\n=== ANALYTICS FOR VEHICLE %d ===\n", id)
	fmt.Fprintf(sh.out, "Model: %s (%s)\n", p.MakeModel, p.LicensePlate)
	fmt.Fprintf(sh.out, "Current State: %s\n", va.State)
	fmt.Fprintf(sh.out, "Total Distance: %.2f km\n", p.TotalDistanceKM)
	fmt.Fprintf(sh.out, "Average Speed: %.2f km/h\n", p.AvgSpeed)
	fmt.Fprintf(sh.out, "Max Speed Recorded: %.2f km/h\n", p.MaxSpeedRecorded)
	fmt.Fprintf(sh.out, "Harsh Events: %d\n", p.HarshEventsCount)
	fmt.Fprintf(sh.out, "Data Points: %d\n", va.WindowLength)
	fmt.Fprintf(sh.out, "Baseline Trained: %v\n", va.BaselineTrained)

	for _, field := range []struct{ name, key, unit string }{
		{"SPEED", "speed", "km/h"},
		{"RPM", "rpm", "RPM"},
		{"TEMPERATURE", "temperature", "C"},
		{"FUEL", "fuel", "%"},
		{"ACCELERATION", "acceleration", "m/s2"},
	} {
		st, ok := va.Fields[field.key]
		if !ok {
			continue
		}
		fmt.Fprintf(sh.out, "\n--- %s ---\n", field.name)
		fmt.Fprintf(sh.out, "Mean: %.2f%s, Std Dev: %.2f%s, CV: %.2f, Outliers: %d, Trend: %.3f\n",
			st.Mean, field.unit, st.StdDeviation, field.unit, st.CoeffVariance, st.OutlierCount, st.TrendSlope)
	}

	fmt.Fprintf(sh.out, "\n--- ANOMALY SUMMARY ---\n")
	fmt.Fprintf(sh.out, "Total Anomalies: %d\n", p.TotalAnomalies)

	if len(va.SeverityHistogram) > 0 {
		severities := make([]int, 0, len(va.SeverityHistogram))
		for s := range va.SeverityHistogram {
			severities = append(severities, s)
		}
		sort.Ints(severities)
		fmt.Fprintln(sh.out, "By Severity:")
		for _, s := range severities {
			fmt.Fprintf(sh.out, "  Level %d: %d\n", s, va.SeverityHistogram[s])
		}
	}

	if len(va.KindHistogram) > 0 {
		kinds := make([]string, 0, len(va.KindHistogram))
		for k := range va.KindHistogram {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintln(sh.out, "By Type:")
		for _, k := range kinds {
			fmt.Fprintf(sh.out, "  %s: %d\n", k, va.KindHistogram[k])
		}
	}

	if len(va.PredictiveHints) > 0 {
		fmt.Fprintf(sh.out, "\n--- PREDICTIVE INSIGHTS ---\n")
		for _, h := range va.PredictiveHints {
			fmt.Fprintln(sh.out, h)
		}
	}
}

func (sh *Shell) anomalies(args []string) {
	id, ok := sh.vehicleArg(args)
	if !ok {
		return
	}

	list := sh.monitor.Anomalies(id, 20)
	if len(list) == 0 {
		fmt.Fprintf(sh.out, "No anomalies recorded for vehicle %d.\n", id)
		return
	}

	fmt.Fprintf(sh.out, "\n=== RECENT ANOMALIES FOR VEHICLE %d ===\n", id)
	for _, a := range list {
		fmt.Fprintf(sh.out, "[%s] %-12s sev=%d (%s) %s\n",
			models.FormatTimestamp(a.Timestamp), a.Kind, a.Severity, a.SeverityString(), a.Description)
	}
}

func (sh *Shell) critical() {
	alerts := sh.monitor.Critical()
	if len(alerts) == 0 {
		fmt.Fprintln(sh.out, "No critical alerts.")
		return
	}

	fmt.Fprintf(sh.out, "\n=== CRITICAL ALERTS ===\n")
	for _, a := range alerts {
		fmt.Fprintf(sh.out, "[%s] Vehicle %d severity %d state %s\n",
			models.FormatTimestamp(a.Timestamp), a.VehicleID, a.Severity, a.State)
	}
}

func (sh *Shell) status() {
	st := sh.monitor.Status()
	fmt.Fprintf(sh.out, "\n=== SYSTEM STATUS ===\n")
	fmt.Fprintf(sh.out, "Running: %v\n", st.Running)
	fmt.Fprintf(sh.out, "Paused: %v\n", st.Paused)
	fmt.Fprintf(sh.out, "Total Readings: %d\n", st.TotalReadings)
	fmt.Fprintf(sh.out, "Total Anomalies: %d\n", st.TotalAnomalies)
	fmt.Fprintf(sh.out, "Dropped Samples: %d\n", st.DroppedSamples)
	fmt.Fprintf(sh.out, "Active Vehicles: %d\n", st.ActiveVehicles)
	fmt.Fprintf(sh.out, "Geofences: %d\n", st.Geofences)
	fmt.Fprintf(sh.out, "Pending Alerts: %d\n", st.PendingAlerts)
	fmt.Fprintf(sh.out, "Estimated Memory Usage: %.2f MB\n", st.EstimatedMemoryMB)
}

func (sh *Shell) vehicles() {
	summaries := sh.monitor.VehicleSummaries()
	fmt.Fprintf(sh.out, "\n%-6s %-22s %-10s %-12s %s\n", "ID", "Model", "Plate", "State", "Anomalies")
	for _, v := range summaries {
		fmt.Fprintf(sh.out, "%-6d %-22s %-10s %-12s %d\n",
			v.VehicleID, v.MakeModel, v.LicensePlate, v.State, v.Anomalies)
	}
}

func (sh *Shell) report(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(sh.out, "Usage: report <filename>")
		return
	}
	if err := sh.monitor.ExportReport(args[0]); err != nil {
		fmt.Fprintf(sh.out, "Error exporting report: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "System report exported to %s\n", args[0])
}
