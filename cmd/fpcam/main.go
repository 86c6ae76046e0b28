package main

import "C" // required for c-shared builds

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/dispatcher"
	"github.com/bkfirstperson/extension/internal/logging"
	"github.com/bkfirstperson/extension/internal/monitor"
	"github.com/bkfirstperson/extension/internal/mouse"
	intOtel "github.com/bkfirstperson/extension/internal/otel"
	"github.com/bkfirstperson/extension/internal/session"
	"github.com/bkfirstperson/extension/internal/storage"
	"github.com/bkfirstperson/extension/pkg/recompabi"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	ExtensionName string = "fpcam"
)

// file paths
var (
	// ModuleFolder is the directory holding this library. Config, logs and
	// the status file are resolved against it.
	ModuleFolder string

	InitLogFilePath string
	InitLogFile     *os.File
	LogFilePath     string
	LogFile         *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// Services
	eventDispatcher *dispatcher.Dispatcher
	mouseEngine     *mouse.Engine
	formTable       *camera.Table
	sessions        = session.NewContext()
	recorder        *storage.Recorder
	monitorService  *monitor.Service

	// controller is set once the game registers its function table
	controller atomic.Pointer[camera.Controller]

	shutdownOnce sync.Once
)

// init is run automatically when the library is loaded
func init() {
	ModuleFolder = recompabi.ModuleFolder()

	InitLogFilePath = filepath.Join(ModuleFolder, ExtensionName+"_init.log")
	var err error
	InitLogFile, err = os.Create(InitLogFilePath)
	if err != nil {
		// Log to stderr since logging isn't set up yet
		fmt.Fprintf(os.Stderr, "Failed to create init log file: %v\n", err)
		InitLogFile = nil
	}

	SlogManager = logging.NewSlogManager()
	_ = SlogManager.Setup(writerOrNil(InitLogFile), "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(ModuleFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", ModuleFolder)
	}
	settings := config.Current()

	LogFile, err = logging.OpenLogFile(ModuleFolder, settings.LogsDir, ExtensionName, SessionStartTime)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err)
		LogFile = nil
	} else {
		LogFilePath = LogFile.Name()
		Logger.Info("Begin logging in logs directory", "path", LogFilePath)
	}

	setupTelemetry(settings)
	setupLogging(settings)

	if err := setupServices(settings); err != nil {
		Logger.Error("Failed to set up services!", "error", err)
		panic(err)
	}

	config.Watch(func(s config.Settings, e fsnotify.Event) {
		Logger.Info("Config reloaded", "file", e.Name, "op", e.Op.String(), "mode", s.Camera.Mode)
	})

	Logger.Info("Extension ready", "version", CurrentExtensionVersion, "build", BuildDate)
}

// writerOrNil keeps a nil *os.File from becoming a non-nil io.Writer.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func setupTelemetry(s config.Settings) {
	if !s.Telemetry.Enabled {
		return
	}
	var err error
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:        true,
		ServiceName:    s.Telemetry.ServiceName,
		ServiceVersion: CurrentExtensionVersion,
		BatchTimeout:   s.Telemetry.BatchTimeout,
		MetricInterval: s.Telemetry.Interval,
		LogWriter:      writerOrNil(LogFile),
	})
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider = nil
		return
	}
	Logger.Info("OTel provider initialized", "file", LogFilePath, "interval", s.Telemetry.Interval)
}

// setupLogging moves logging from the init log to the session log, adding
// the OTel bridge, Graylog and session attributes as configured.
func setupLogging(s config.Settings) {
	provider := OTelProvider.LoggerProvider()

	opts := []logging.Option{logging.WithContext(sessions.LogAttrs)}
	if s.Graylog.Enabled {
		opts = append(opts, logging.WithGraylog(s.Graylog.Address))
	}

	out := writerOrNil(LogFile)
	if out == nil {
		out = writerOrNil(InitLogFile)
	}
	if err := SlogManager.Setup(out, s.LogLevel, provider, opts...); err != nil {
		SlogManager.Logger().Warn("Graylog disabled", "error", err)
	}
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	Logger.Info("Logging to file", "path", LogFilePath)
}

func setupServices(s config.Settings) error {
	recompabi.SetVersion(CurrentExtensionVersion)

	zlogOut := writerOrNil(LogFile)
	if zlogOut == nil {
		zlogOut = os.Stderr
	}
	zlog := logging.NewZerolog(zlogOut, s.LogLevel)

	d, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	eventDispatcher = d

	backend, err := mouse.OpenPlatform(Logger)
	if err != nil {
		Logger.Warn("Mouse backend unavailable", "error", err)
		backend = nil
	}
	mouseEngine = mouse.New(backend, mouse.WithLogger(Logger.With("component", "mouse")))

	formTable = loadForms(s.Forms)

	sess := sessions.Start(CurrentExtensionVersion, mouseEngine.BackendName(), s.Camera.Mode, map[string]any{
		"mouse":  s.Mouse,
		"camera": s.Camera,
		"bob":    s.Bob,
	})
	Logger.Info("Session started", "uuid", sess.UUID)

	setupStorage(d, s, zlog, sess)
	setupMonitor(s)

	registerMouseHandlers(d)
	registerCameraHandlers(d)
	registerLifecycleHandlers(d)

	recompabi.OnHostRegistered(onHostRegistered)
	recompabi.SetDispatcher(d)
	Logger.Info("Dispatcher initialized")
	return nil
}

func loadForms(fc config.FormsConfig) *camera.Table {
	path := fc.File
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(ModuleFolder, path)
	}
	t, err := camera.LoadTable(path)
	if err == nil {
		if path != "" {
			Logger.Info("Loaded form table", "path", path)
		}
		return t
	}
	Logger.Error("Failed to load form table, using built-in table", "path", path, "error", err)
	t, err = camera.DefaultTable()
	if err != nil {
		panic(fmt.Errorf("built-in form table is invalid: %w", err))
	}
	return t
}

// onHostRegistered builds the camera controller over the game's function
// table. A second registration replaces the controller.
func onHostRegistered(h camera.Host) {
	opts := []camera.Option{camera.WithLogger(Logger.With("component", "camera"))}
	if recorder != nil {
		opts = append(opts, camera.WithObserver(recorder))
	}
	if prev := controller.Load(); prev != nil {
		prev.Exit(camera.ReasonShutdown)
	}
	controller.Store(camera.New(h, mouseEngine, formTable, config.Current, opts...))
	Logger.Info("Host registered, camera ready")
}

func main() {}
