package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config collects every tunable of the monitor. Defaults match the shipped
// engine constants; any value can be overridden through a TELEMATICS_* env
// var or an optional YAML file.
type Config struct {
	WindowSize         int           `mapstructure:"window_size"`
	TrendBufferCap     int           `mapstructure:"trend_buffer_cap"`
	RouteHistoryCap    int           `mapstructure:"route_history_cap"`
	BaselineMinSamples int           `mapstructure:"baseline_min_samples"`
	RetrainMinWindow   int           `mapstructure:"retrain_min_window"`
	RetrainEveryTicks  int           `mapstructure:"retrain_every_ticks"`
	AnomalyIndexCap    int           `mapstructure:"anomaly_index_cap"`
	PerformanceEvery   int           `mapstructure:"performance_every"`
	OfflineTimeout     time.Duration `mapstructure:"offline_timeout"`
	RecentAnomalyAge   time.Duration `mapstructure:"recent_anomaly_age"`

	ProducerInterval time.Duration `mapstructure:"producer_interval"`
	ProducerVehicles int           `mapstructure:"producer_vehicles"`
	AnomalyChance    float64       `mapstructure:"anomaly_chance"`

	SampleLogPath      string `mapstructure:"sample_log_path"`
	AnomalyLogPath     string `mapstructure:"anomaly_log_path"`
	PerformanceLogPath string `mapstructure:"performance_log_path"`
	DatabasePath       string `mapstructure:"database_path"`

	APIPort int `mapstructure:"api_port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window_size", 200)
	v.SetDefault("trend_buffer_cap", 200)
	v.SetDefault("route_history_cap", 1000)
	v.SetDefault("baseline_min_samples", 50)
	v.SetDefault("retrain_min_window", 100)
	v.SetDefault("retrain_every_ticks", 100)
	v.SetDefault("anomaly_index_cap", 10000)
	v.SetDefault("performance_every", 100)
	v.SetDefault("offline_timeout", 30*time.Second)
	v.SetDefault("recent_anomaly_age", 5*time.Minute)

	v.SetDefault("producer_interval", 50*time.Millisecond)
	v.SetDefault("producer_vehicles", 20)
	v.SetDefault("anomaly_chance", 0.03)

	v.SetDefault("sample_log_path", "sensor_data.csv")
	v.SetDefault("anomaly_log_path", "anomalies.csv")
	v.SetDefault("performance_log_path", "system_performance.csv")
	v.SetDefault("database_path", "telematics.db")

	v.SetDefault("api_port", 8080)
}

// Load builds the configuration from defaults, an optional config file, and
// the environment. An empty path skips the file layer.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TELEMATICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without touching files or env.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
