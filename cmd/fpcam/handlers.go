package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/dispatcher"
	"github.com/bkfirstperson/extension/pkg/recompabi"
)

// frameBudget is the time a frame hook may take before it is reported.
const frameBudget = 2 * time.Millisecond

// registerMouseHandlers exposes the capture engine to the game. All of
// these run on the frame thread.
func registerMouseHandlers(d *dispatcher.Dispatcher) {
	d.Register(recompabi.CommandMousePoll, func(e dispatcher.Event) (any, error) {
		// the camera polls from its own hook while first person is on
		if c := controller.Load(); c != nil && c.PollsMouse() {
			return nil, nil
		}
		mouseEngine.Poll()
		return nil, nil
	}, dispatcher.Budget(frameBudget))

	d.Register(recompabi.CommandMouseDeltaX, func(e dispatcher.Event) (any, error) {
		return mouseEngine.DeltaX(), nil
	})

	d.Register(recompabi.CommandMouseDeltaY, func(e dispatcher.Event) (any, error) {
		return mouseEngine.DeltaY(), nil
	})

	d.Register(recompabi.CommandMouseSetEnabled, func(e dispatcher.Event) (any, error) {
		enabled, ok := e.Payload.(bool)
		if !ok {
			return nil, fmt.Errorf("%s: want bool payload, got %T", e.Command, e.Payload)
		}
		mouseEngine.SetEnabled(enabled)
		return nil, nil
	}, dispatcher.Logged())

	d.Register(recompabi.CommandMouseIsEnabled, func(e dispatcher.Event) (any, error) {
		return mouseEngine.IsEnabled(), nil
	})

	d.Register(recompabi.CommandMouseIsCaptured, func(e dispatcher.Event) (any, error) {
		return mouseEngine.IsCaptured(), nil
	})

	d.Register(recompabi.CommandMouseForceShow, func(e dispatcher.Event) (any, error) {
		mouseEngine.ForceShowCursor()
		return nil, nil
	})
}

// registerCameraHandlers routes the camera hooks to the controller. Before
// the game registers its function table the hooks are no-ops and the
// vanilla first-person check is left alone.
func registerCameraHandlers(d *dispatcher.Dispatcher) {
	d.Register(recompabi.CommandShouldLook, func(e dispatcher.Event) (any, error) {
		c := controller.Load()
		if c == nil {
			return false, nil
		}
		return c.ShouldLookFirstPerson(), nil
	})

	d.Register(recompabi.CommandCameraBefore, func(e dispatcher.Event) (any, error) {
		if c := controller.Load(); c != nil {
			c.BeforeUpdate()
		}
		return nil, nil
	}, dispatcher.Budget(frameBudget))

	d.Register(recompabi.CommandCameraAfter, func(e dispatcher.Event) (any, error) {
		if c := controller.Load(); c != nil {
			c.AfterUpdate()
		}
		return nil, nil
	}, dispatcher.Budget(frameBudget))
}

// registerLifecycleHandlers registers configuration, logging and shutdown
// commands
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(recompabi.CommandConfigSet, func(e dispatcher.Event) (any, error) {
		v, ok := e.Payload.(recompabi.ConfigValue)
		if !ok {
			return nil, fmt.Errorf("%s: want config value, got %T", e.Command, e.Payload)
		}
		config.Set(v.Key, v.Value)
		Logger.Debug("Config override from host", "key", v.Key, "value", v.Value)
		return nil, nil
	}, dispatcher.Logged())

	d.Register(recompabi.CommandLog, func(e dispatcher.Event) (any, error) {
		line, ok := e.Payload.(recompabi.LogLine)
		if !ok {
			return nil, fmt.Errorf("%s: want log line, got %T", e.Command, e.Payload)
		}
		SlogManager.WriteLog("host", line.Message, recompabi.LevelName(line.Level))
		return nil, nil
	})

	d.Register(recompabi.CommandShutdown, func(e dispatcher.Event) (any, error) {
		shutdown()
		return nil, nil
	})
}

// exitFirstPerson leaves first person before the library goes away so the
// model and field of view are restored.
func exitFirstPerson() {
	if c := controller.Load(); c != nil {
		c.Exit(camera.ReasonShutdown)
	}
}

func flushTelemetry(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush OTel logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
}
