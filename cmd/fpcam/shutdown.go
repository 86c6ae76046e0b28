package main

import "C"

import (
	"time"

	"github.com/bkfirstperson/extension/pkg/recompabi"
)

// shutdown tears everything down in dependency order: first person is left
// while the host table is still valid, queued telemetry drains before the
// backend closes, and the cursor is restored before logs are flushed.
// Safe to call more than once.
func shutdown() {
	shutdownOnce.Do(func() {
		Logger.Info("Shutting down...")

		exitFirstPerson()
		recompabi.SetDispatcher(nil)
		if eventDispatcher != nil {
			eventDispatcher.Close()
		}

		if recorder != nil {
			if err := recorder.Finish(); err != nil {
				Logger.Error("Failed to finish telemetry session", "error", err)
			}
		} else {
			sessions.End()
		}

		if mouseEngine != nil {
			if err := mouseEngine.Close(); err != nil {
				Logger.Warn("Failed to close mouse backend", "error", err)
			}
		}

		if monitorService != nil {
			monitorService.Stop()
		}

		flushTelemetry(5 * time.Second)
		Logger.Info("Shutdown complete")

		if LogFile != nil {
			_ = LogFile.Sync()
		}
		if InitLogFile != nil {
			_ = InitLogFile.Close()
		}
	})
}

// fpcamUnload runs from the library destructor when the host unloads us
// without calling fp_shutdown.
//
//export fpcamUnload
func fpcamUnload() {
	shutdown()
}
