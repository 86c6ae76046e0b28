package main

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/dispatcher"
	"github.com/bkfirstperson/extension/internal/monitor"
	"github.com/bkfirstperson/extension/internal/storage"
	"github.com/bkfirstperson/extension/pkg/core"
)

// setupStorage starts telemetry recording when a storage type is
// configured. Failures leave the camera running without telemetry.
func setupStorage(d *dispatcher.Dispatcher, s config.Settings, zlog zerolog.Logger, sess *core.Session) {
	backend, err := storage.NewBackend(storage.Dependencies{
		Storage: s.Storage,
		DB:      s.DB,
		Influx:  s.Influx,
		Stream:  s.Websocket,
		BaseDir: ModuleFolder,
		Logger:  Logger.With("component", "storage"),
		ZLogger: zlog.With().Str("component", "storage").Logger(),
	})
	if err != nil {
		Logger.Error("Failed to create storage backend", "type", s.Storage.Type, "error", err)
		return
	}
	if backend == nil {
		Logger.Info("Telemetry storage disabled")
		return
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "type", s.Storage.Type, "error", err)
		return
	}

	recorder = storage.NewRecorder(d, backend, sessions, storage.RecorderConfig{
		SampleEvery: s.Storage.SampleEvery,
		QueueSize:   s.Storage.QueueSize,
		Captured:    mouseEngine.IsCaptured,
		Logger:      Logger.With("component", "telemetry"),
	})
	if err := recorder.Begin(sess); err != nil {
		Logger.Error("Failed to start telemetry session", "error", err)
	}
	Logger.Info("Telemetry storage initialized", "type", s.Storage.Type, "sampleEvery", s.Storage.SampleEvery)
}

func setupMonitor(s config.Settings) {
	if !s.Status.Enabled {
		return
	}
	path := s.Status.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(ModuleFolder, path)
	}
	monitorService = monitor.NewService(monitor.Dependencies{
		Mouse:    mouseEngine,
		Camera:   cameraStatus,
		Sessions: sessions,
		Logger:   Logger.With("component", "monitor"),
		Path:     path,
		Interval: s.Status.Interval,
	})
	if err := monitorService.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
		monitorService = nil
	}
}

// cameraStatus is safe from the monitor goroutine.
func cameraStatus() camera.Status {
	if c := controller.Load(); c != nil {
		return c.Status()
	}
	return camera.Status{}
}
