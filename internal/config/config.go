package config

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the mod folder.
const FileName = "fpcam.cfg.json"

// Camera modes.
const (
	ModeFree    = "free"
	ModeClassic = "classic"
)

// MouseConfig holds mouse-look settings
type MouseConfig struct {
	Enabled      bool    `json:"enabled" mapstructure:"enabled"`
	SensitivityX float32 `json:"sensitivityX" mapstructure:"sensitivityX"`
	SensitivityY float32 `json:"sensitivityY" mapstructure:"sensitivityY"`
	InvertY      bool    `json:"invertY" mapstructure:"invertY"`
}

// CameraConfig holds first-person camera tuning
type CameraConfig struct {
	Mode                string  `json:"mode" mapstructure:"mode"`
	HeadTracking        bool    `json:"headTracking" mapstructure:"headTracking"`
	FOV                 float32 `json:"fov" mapstructure:"fov"`
	LookSpeed           float32 `json:"lookSpeed" mapstructure:"lookSpeed"`
	ModelPitchThreshold float32 `json:"modelPitchThreshold" mapstructure:"modelPitchThreshold"`
	BodyPitchRange      float32 `json:"bodyPitchRange" mapstructure:"bodyPitchRange"`
	BodyRollRange       float32 `json:"bodyRollRange" mapstructure:"bodyRollRange"`
	RollSmoothSpeed     float32 `json:"rollSmoothSpeed" mapstructure:"rollSmoothSpeed"`
	FlightRollScale     float32 `json:"flightRollScale" mapstructure:"flightRollScale"`
	FlightRollMax       float32 `json:"flightRollMax" mapstructure:"flightRollMax"`
}

// Classic reports whether yaw follows the player's facing.
func (c CameraConfig) Classic() bool {
	return c.Mode == ModeClassic
}

// BobConfig holds synthetic motion tuning shared by all forms
type BobConfig struct {
	RampSpeed     float32 `json:"rampSpeed" mapstructure:"rampSpeed"`
	MoveThreshold float32 `json:"moveThreshold" mapstructure:"moveThreshold"`
}

// FormOverride replaces individual profile values of one form. Nil fields
// keep the table value.
type FormOverride struct {
	Height       *float32 `json:"height,omitempty"`
	Forward      *float32 `json:"forward,omitempty"`
	StaticHeight *float32 `json:"staticHeight,omitempty"`
	SmoothSpeed  *float32 `json:"smoothSpeed,omitempty"`
}

// FormsConfig holds the form table source and per-form overrides
type FormsConfig struct {
	File      string                  `json:"file"`
	Overrides map[string]FormOverride `json:"overrides"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the SQLite telemetry database settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig holds telemetry storage settings
type StorageConfig struct {
	Type        string       `json:"type" mapstructure:"type"`
	SampleEvery int          `json:"sampleEvery" mapstructure:"sampleEvery"`
	QueueSize   int          `json:"queueSize" mapstructure:"queueSize"`
	Memory      MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite      SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"-" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// WebsocketConfig holds live telemetry streaming settings
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"-" mapstructure:"secret"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// TelemetryConfig holds OpenTelemetry log and metric export settings
type TelemetryConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	Interval     time.Duration `json:"interval" mapstructure:"interval"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
}

// StatusConfig holds status file monitor settings
type StatusConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	File     string        `json:"file" mapstructure:"file"`
}

// Settings is a typed snapshot of the whole configuration.
type Settings struct {
	LogLevel  string          `json:"logLevel"`
	LogsDir   string          `json:"logsDir"`
	Mouse     MouseConfig     `json:"mouse"`
	Camera    CameraConfig    `json:"camera"`
	Bob       BobConfig       `json:"bob"`
	Forms     FormsConfig     `json:"forms"`
	Storage   StorageConfig   `json:"storage"`
	DB        DBConfig        `json:"db"`
	Influx    InfluxConfig    `json:"influx"`
	Websocket WebsocketConfig `json:"websocket"`
	Graylog   GraylogConfig   `json:"graylog"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Status    StatusConfig    `json:"status"`
}

var (
	current      atomic.Pointer[Settings]
	defaultsOnce sync.Once
	mu           sync.Mutex
)

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fpcam_logs")

	viper.SetDefault("mouse.enabled", true)
	viper.SetDefault("mouse.sensitivityX", 0.15)
	viper.SetDefault("mouse.sensitivityY", 0.15)
	viper.SetDefault("mouse.invertY", false)

	viper.SetDefault("camera.mode", ModeFree)
	viper.SetDefault("camera.headTracking", false)
	viper.SetDefault("camera.fov", 0)
	viper.SetDefault("camera.lookSpeed", 120)
	viper.SetDefault("camera.modelPitchThreshold", 10)
	viper.SetDefault("camera.bodyPitchRange", 30)
	viper.SetDefault("camera.bodyRollRange", 20)
	viper.SetDefault("camera.rollSmoothSpeed", 8)
	viper.SetDefault("camera.flightRollScale", 0.25)
	viper.SetDefault("camera.flightRollMax", 30)

	viper.SetDefault("bob.rampSpeed", 2)
	viper.SetDefault("bob.moveThreshold", 1)

	viper.SetDefault("forms.file", "")

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.sampleEvery", 4)
	viper.SetDefault("storage.queueSize", 1024)
	viper.SetDefault("storage.memory.outputDir", "./fpcam_telemetry")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "fpcam_telemetry.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fpcam")

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fpcam")
	viper.SetDefault("influx.bucket", "camera")

	viper.SetDefault("websocket.url", "ws://localhost:8765/telemetry")
	viper.SetDefault("websocket.secret", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.serviceName", "fpcam")
	viper.SetDefault("telemetry.interval", "30s")
	viper.SetDefault("telemetry.batchTimeout", "5s")

	viper.SetDefault("status.enabled", false)
	viper.SetDefault("status.interval", "1s")
	viper.SetDefault("status.file", "status.txt")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. The snapshot
// returned by Current is rebuilt even when the file is missing, so callers
// can log the error and carry on with defaults.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	rebuild()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// Current returns the latest settings snapshot. It is safe to call from the
// frame thread; the snapshot is replaced, never mutated.
func Current() Settings {
	if s := current.Load(); s != nil {
		return *s
	}
	defaultsOnce.Do(SetDefaults)
	return *rebuild()
}

// Set overrides one key, as pushed by the host, and refreshes the snapshot.
func Set(key string, value any) {
	viper.Set(key, value)
	rebuild()
}

// Watch reloads the configuration file when it changes on disk and calls
// onChange with the new snapshot.
func Watch(onChange func(Settings, fsnotify.Event)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		s := rebuild()
		if onChange != nil {
			onChange(*s, e)
		}
	})
	viper.WatchConfig()
}

func rebuild() *Settings {
	mu.Lock()
	defer mu.Unlock()

	s := &Settings{
		LogLevel:  viper.GetString("logLevel"),
		LogsDir:   viper.GetString("logsDir"),
		Mouse:     GetMouseConfig(),
		Camera:    GetCameraConfig(),
		Bob:       GetBobConfig(),
		Forms:     GetFormsConfig(),
		Storage:   GetStorageConfig(),
		DB:        GetDBConfig(),
		Influx:    GetInfluxConfig(),
		Websocket: GetWebsocketConfig(),
		Graylog:   GetGraylogConfig(),
		Telemetry: GetTelemetryConfig(),
		Status:    GetStatusConfig(),
	}
	current.Store(s)
	return s
}

func getFloat32(key string) float32 {
	return float32(viper.GetFloat64(key))
}

// GetMouseConfig returns mouse-look settings.
func GetMouseConfig() MouseConfig {
	return MouseConfig{
		Enabled:      viper.GetBool("mouse.enabled"),
		SensitivityX: getFloat32("mouse.sensitivityX"),
		SensitivityY: getFloat32("mouse.sensitivityY"),
		InvertY:      viper.GetBool("mouse.invertY"),
	}
}

// GetCameraConfig returns camera tuning.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		Mode:                strings.ToLower(viper.GetString("camera.mode")),
		HeadTracking:        viper.GetBool("camera.headTracking"),
		FOV:                 getFloat32("camera.fov"),
		LookSpeed:           getFloat32("camera.lookSpeed"),
		ModelPitchThreshold: getFloat32("camera.modelPitchThreshold"),
		BodyPitchRange:      getFloat32("camera.bodyPitchRange"),
		BodyRollRange:       getFloat32("camera.bodyRollRange"),
		RollSmoothSpeed:     getFloat32("camera.rollSmoothSpeed"),
		FlightRollScale:     getFloat32("camera.flightRollScale"),
		FlightRollMax:       getFloat32("camera.flightRollMax"),
	}
}

// GetBobConfig returns synthetic motion tuning.
func GetBobConfig() BobConfig {
	return BobConfig{
		RampSpeed:     getFloat32("bob.rampSpeed"),
		MoveThreshold: getFloat32("bob.moveThreshold"),
	}
}

// GetFormsConfig returns the form table path and every forms.<name>.<field>
// override present in the file or set by the host.
func GetFormsConfig() FormsConfig {
	fc := FormsConfig{
		File:      viper.GetString("forms.file"),
		Overrides: map[string]FormOverride{},
	}

	for _, key := range viper.AllKeys() {
		parts := strings.Split(key, ".")
		if len(parts) != 3 || parts[0] != "forms" {
			continue
		}
		name := parts[1]
		if _, seen := fc.Overrides[name]; seen {
			continue
		}
		prefix := "forms." + name + "."
		fc.Overrides[name] = FormOverride{
			Height:       optFloat32(prefix + "height"),
			Forward:      optFloat32(prefix + "forward"),
			StaticHeight: optFloat32(prefix + "staticHeight"),
			SmoothSpeed:  optFloat32(prefix + "smoothSpeed"),
		}
	}
	return fc
}

func optFloat32(key string) *float32 {
	if !viper.IsSet(key) {
		return nil
	}
	v := getFloat32(key)
	return &v
}

// GetStorageConfig returns telemetry storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:        strings.ToLower(viper.GetString("storage.type")),
		SampleEvery: viper.GetInt("storage.sampleEvery"),
		QueueSize:   viper.GetInt("storage.queueSize"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetDBConfig returns PostgreSQL connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns InfluxDB connection settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetWebsocketConfig returns live streaming settings.
func GetWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{
		URL:    viper.GetString("websocket.url"),
		Secret: viper.GetString("websocket.secret"),
	}
}

// GetGraylogConfig returns GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetTelemetryConfig returns metric export settings.
func GetTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      viper.GetBool("telemetry.enabled"),
		ServiceName:  viper.GetString("telemetry.serviceName"),
		Interval:     viper.GetDuration("telemetry.interval"),
		BatchTimeout: viper.GetDuration("telemetry.batchTimeout"),
	}
}

// GetStatusConfig returns status monitor settings.
func GetStatusConfig() StatusConfig {
	return StatusConfig{
		Enabled:  viper.GetBool("status.enabled"),
		Interval: viper.GetDuration("status.interval"),
		File:     viper.GetString("status.file"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
