package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"telematics-monitor/internal/api"
	"telematics-monitor/internal/config"
	"telematics-monitor/internal/engine"
	"telematics-monitor/internal/logging"
	"telematics-monitor/internal/models"
	"telematics-monitor/internal/parser"
	"telematics-monitor/internal/shell"
	"telematics-monitor/internal/simulator"
	"telematics-monitor/internal/sinks"
)

var (
	configPath string
	production bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telematics-monitor",
		Short: "Vehicle Telematics Monitor - streaming anomaly detection for fleet telemetry",
		Long: `An online anomaly detection engine for vehicle telemetry streams.
Combines rule thresholds, windowed pattern detection, geofencing, and a
per-vehicle statistical baseline, with CSV/SQLite logging and a query API.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&production, "production", false, "JSON logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup builds the shared stack: config, logger, sinks, metrics, monitor.
func setup(withSinks bool) (config.Config, *zap.Logger, *engine.Monitor, *prometheus.Registry, sinks.Sink, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, nil, nil, err
	}

	log, err := logging.New(production)
	if err != nil {
		return config.Config{}, nil, nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	opts := []engine.Option{engine.WithMetrics(metrics)}

	var sink sinks.Sink
	if withSinks {
		csvSink, err := sinks.NewCSVSink(cfg.SampleLogPath, cfg.AnomalyLogPath, cfg.PerformanceLogPath)
		if err != nil {
			return config.Config{}, nil, nil, nil, nil, err
		}
		dbSink, err := sinks.NewSQLiteSink(cfg.DatabasePath)
		if err != nil {
			csvSink.Close()
			return config.Config{}, nil, nil, nil, nil, err
		}
		sink = sinks.Multi{csvSink, dbSink}
		opts = append(opts, engine.WithSink(sink))
	}

	monitor := engine.New(cfg, log, opts...)
	return cfg, log, monitor, reg, sink, nil
}

// runCmd starts the engine with the synthetic producer and interactive shell.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the engine with a synthetic producer and interactive shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, monitor, _, sink, err := setup(true)
			if err != nil {
				return err
			}
			defer log.Sync()

			sim := simulator.New(cfg, log, time.Now().UnixNano())

			var producers sync.WaitGroup
			producers.Add(1)
			go func() {
				defer producers.Done()
				sim.Run(monitor)
			}()

			shell.New(monitor, os.Stdin, os.Stdout).Run()

			producers.Wait()
			if sink != nil {
				if err := sink.Close(); err != nil {
					log.Error("failed to close sinks", zap.Error(err))
				}
			}

			fmt.Printf("Final Statistics:\n")
			fmt.Printf("  Total Readings: %d\n", monitor.TotalReadings())
			fmt.Printf("  Total Anomalies: %d\n", monitor.TotalAnomalies())
			return nil
		},
	}
}

// serveCmd starts the engine with the producer and the REST API.
func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with a synthetic producer and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, monitor, reg, sink, err := setup(true)
			if err != nil {
				return err
			}
			defer log.Sync()

			if port == 0 {
				port = cfg.APIPort
			}

			sim := simulator.New(cfg, log, time.Now().UnixNano())

			var producers sync.WaitGroup
			producers.Add(1)
			go func() {
				defer producers.Done()
				sim.Run(monitor)
			}()

			server := api.NewServer(monitor, reg, log)
			addr := fmt.Sprintf(":%d", port)
			httpServer := &http.Server{Addr: addr, Handler: server.Router()}

			go func() {
				log.Info("API server listening", zap.String("addr", addr))
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("API server failed", zap.Error(err))
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			log.Info("shutting down")
			monitor.Shutdown()
			producers.Wait()
			httpServer.Close()
			if sink != nil {
				sink.Close()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "API port (defaults to config)")
	return cmd
}

// replayCmd feeds a telemetry file through the engine and reports what was
// detected.
func replayCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "replay [file...]",
		Short: "Replay telemetry files through the detection engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, monitor, _, sink, err := setup(true)
			if err != nil {
				return err
			}
			defer log.Sync()

			p := parser.NewParser(format, log)
			totalRecords := 0

			for _, file := range args {
				fmt.Printf("Processing %s...\n", file)
				start := time.Now()

				records, err := p.ParseFile(file)
				if err != nil {
					fmt.Printf("  Error: %v\n", err)
					continue
				}

				for _, r := range records {
					monitor.Process(r)
				}

				elapsed := time.Since(start)
				fmt.Printf("  Processed %d records in %v (%.0f records/sec)\n",
					len(records), elapsed, float64(len(records))/elapsed.Seconds())
				totalRecords += len(records)
			}

			monitor.Shutdown()
			if sink != nil {
				sink.Close()
			}

			fmt.Printf("\nTotal: %d records, %d anomalies detected, %d dropped\n",
				totalRecords, monitor.TotalAnomalies(), monitor.DroppedSamples())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "File format (csv, json, log)")
	return cmd
}

// generateCmd writes a synthetic telemetry file for later replay.
func generateCmd() *cobra.Command {
	var count int
	var vehicleCount int
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic telemetry CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.ProducerVehicles = vehicleCount

			log, err := logging.New(production)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer log.Sync()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()

			w := csv.NewWriter(f)
			if err := w.Write(models.SampleCSVHeader); err != nil {
				return err
			}

			sim := simulator.New(cfg, log, time.Now().UnixNano())
			for i := 0; i < count; i++ {
				vehicleID := 1 + i%vehicleCount
				scenario := simulator.ScenarioNone
				if i%33 == 0 {
					scenario = 1 + i%10
				}
				if err := w.Write(sim.Next(vehicleID, scenario).CSVRecord()); err != nil {
					return err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			fmt.Printf("Generated %d records for %d vehicles in %s\n", count, vehicleCount, output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 10000, "Number of records to generate")
	cmd.Flags().IntVarP(&vehicleCount, "vehicles", "n", 20, "Number of vehicles")
	cmd.Flags().StringVarP(&output, "output", "o", "telemetry.csv", "Output CSV file")
	return cmd
}
