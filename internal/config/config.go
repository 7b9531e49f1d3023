package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "floormap.cfg.json"

// AssetsConfig selects where floor documents and assets are read from
type AssetsConfig struct {
	Type    string        `json:"type" mapstructure:"type"`
	Dir     string        `json:"dir" mapstructure:"dir"`
	BaseURL string        `json:"baseUrl" mapstructure:"baseUrl"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OTelConfig holds OpenTelemetry log export settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// BridgeConfig holds kiosk bridge connection settings
type BridgeConfig struct {
	URL            string        `json:"url" mapstructure:"url"`
	Secret         string        `json:"secret" mapstructure:"secret"`
	StatusInterval time.Duration `json:"statusInterval" mapstructure:"statusInterval"`
}

// EngineConfig holds frame loop and data table settings
type EngineConfig struct {
	FrameInterval  time.Duration
	Width, Height  int
	NavigationFile string
	FloorsFile     string
	InitialFloor   string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Watch calls onChange each time the loaded config file is written. It
// reports false, and watches nothing, when no file was loaded.
func Watch(onChange func()) bool {
	if viper.ConfigFileUsed() == "" {
		return false
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
			onChange()
		}
	})
	viper.WatchConfig()
	return true
}

// SetDefaults registers every default value. Load calls it; commands that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./floormaplogs")
	viper.SetDefault("logsKeep", 20)

	viper.SetDefault("assets.type", "file")
	viper.SetDefault("assets.dir", "./public")
	viper.SetDefault("assets.baseUrl", "http://localhost:5173")
	viper.SetDefault("assets.timeout", "10s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "floormap")
	viper.SetDefault("db.sqlitePath", "./floormap.db")
	viper.SetDefault("db.slowQuery", "200ms")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "floormap")
	viper.SetDefault("influx.bucket", "engine")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "floormap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.instanceId", "")

	viper.SetDefault("bridge.url", "")
	viper.SetDefault("bridge.secret", "")
	viper.SetDefault("bridge.statusInterval", "5s")

	viper.SetDefault("monitor.listen", ":8089")
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("engine.frameInterval", "16ms")
	viper.SetDefault("engine.width", 1280)
	viper.SetDefault("engine.height", 720)
	viper.SetDefault("engine.initialFloor", "ground-floor")
	viper.SetDefault("navigation.file", "")
	viper.SetDefault("floors.file", "")
}

// GetAssetsConfig returns the storage source settings.
func GetAssetsConfig() AssetsConfig {
	return AssetsConfig{
		Type:    viper.GetString("assets.type"),
		Dir:     viper.GetString("assets.dir"),
		BaseURL: viper.GetString("assets.baseUrl"),
		Timeout: viper.GetDuration("assets.timeout"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetBridgeConfig returns the kiosk bridge settings.
func GetBridgeConfig() BridgeConfig {
	return BridgeConfig{
		URL:            viper.GetString("bridge.url"),
		Secret:         viper.GetString("bridge.secret"),
		StatusInterval: viper.GetDuration("bridge.statusInterval"),
	}
}

// GetEngineConfig returns the engine settings.
func GetEngineConfig() EngineConfig {
	return EngineConfig{
		FrameInterval:  viper.GetDuration("engine.frameInterval"),
		Width:          viper.GetInt("engine.width"),
		Height:         viper.GetInt("engine.height"),
		NavigationFile: viper.GetString("navigation.file"),
		FloorsFile:     viper.GetString("floors.file"),
		InitialFloor:   viper.GetString("engine.initialFloor"),
	}
}
