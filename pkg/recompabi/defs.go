// Package recompabi exposes the extension to the recompiled game runtime.
// Every exported symbol uses the runtime's native calling convention and is
// routed through a dispatcher by command name.
package recompabi

import (
	"sync"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/dispatcher"
)

// Commands dispatched by the exported symbols.
const (
	CommandMousePoll       = ":MOUSE:POLL:"
	CommandMouseDeltaX     = ":MOUSE:DELTA_X:"
	CommandMouseDeltaY     = ":MOUSE:DELTA_Y:"
	CommandMouseSetEnabled = ":MOUSE:SET_ENABLED:"
	CommandMouseIsEnabled  = ":MOUSE:IS_ENABLED:"
	CommandMouseIsCaptured = ":MOUSE:IS_CAPTURED:"
	CommandMouseForceShow  = ":MOUSE:FORCE_SHOW:"

	CommandShouldLook   = ":CAMERA:SHOULD_LOOK:"
	CommandCameraBefore = ":CAMERA:BEFORE:"
	CommandCameraAfter  = ":CAMERA:AFTER:"

	CommandConfigSet = ":CONFIG:SET:"
	CommandLog       = ":LOG:"
	CommandShutdown  = ":SHUTDOWN:"
)

// configStruct is the central configuration used by this library
type configStruct struct {
	mu sync.RWMutex

	// version is returned by fp_version
	version string

	// dispatcher handles event routing
	dispatcher *dispatcher.Dispatcher

	// onHost is called once the game registers its function table
	onHost func(camera.Host)
}

// Config defines how calls to this library will be handled
var Config = &configStruct{version: "No version set"}

// SetVersion sets the string returned by fp_version.
func SetVersion(version string) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.version = version
}

// Version returns the configured version string.
func Version() string {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	return Config.version
}

// SetDispatcher sets the event dispatcher for handling hooks
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	return Config.dispatcher
}

// OnHostRegistered sets the callback receiving the game's function table.
func OnHostRegistered(fn func(camera.Host)) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.onHost = fn
}

func hostRegistered(h camera.Host) {
	Config.mu.RLock()
	fn := Config.onHost
	Config.mu.RUnlock()
	if fn != nil {
		fn(h)
	}
}
