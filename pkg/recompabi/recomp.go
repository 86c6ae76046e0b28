package recompabi

/*
#include <stdlib.h>
#include "recomp.h"
*/
import "C"

import "sync"

// Functions called from recompiled code take the runtime's memory and
// register file. Arguments are read from r4 and results stored in r2.

func setReturn(ctx *C.recomp_context, v int32) {
	ctx.r2 = C.gpr(signExtend(v))
}

// mouse_poll samples the pointer for glue code that reads the deltas
// itself. It does nothing while first person is on, since
// fp_after_camera_update already polls once that frame.
//
//export mouse_poll
func mouse_poll(rdram *C.uint8_t, ctx *C.recomp_context) {
	call(CommandMousePoll, nil)
}

//export mouse_get_delta_x
func mouse_get_delta_x(rdram *C.uint8_t, ctx *C.recomp_context) {
	setReturn(ctx, callInt(CommandMouseDeltaX, nil))
}

//export mouse_get_delta_y
func mouse_get_delta_y(rdram *C.uint8_t, ctx *C.recomp_context) {
	setReturn(ctx, callInt(CommandMouseDeltaY, nil))
}

//export mouse_set_enabled
func mouse_set_enabled(rdram *C.uint8_t, ctx *C.recomp_context) {
	enabled := argBool(uint64(ctx.r4))
	call(CommandMouseSetEnabled, enabled)
}

//export mouse_is_enabled
func mouse_is_enabled(rdram *C.uint8_t, ctx *C.recomp_context) {
	setReturn(ctx, callInt(CommandMouseIsEnabled, nil))
}

//export mouse_is_captured
func mouse_is_captured(rdram *C.uint8_t, ctx *C.recomp_context) {
	setReturn(ctx, callInt(CommandMouseIsCaptured, nil))
}

//export mouse_force_show_cursor
func mouse_force_show_cursor(rdram *C.uint8_t, ctx *C.recomp_context) {
	call(CommandMouseForceShow, nil)
}

// fp_should_look_first_person replaces the game's first-person look check.
//
//export fp_should_look_first_person
func fp_should_look_first_person(rdram *C.uint8_t, ctx *C.recomp_context) {
	setReturn(ctx, callInt(CommandShouldLook, nil))
}

//export fp_before_camera_update
func fp_before_camera_update(rdram *C.uint8_t, ctx *C.recomp_context) {
	call(CommandCameraBefore, nil)
}

//export fp_after_camera_update
func fp_after_camera_update(rdram *C.uint8_t, ctx *C.recomp_context) {
	call(CommandCameraAfter, nil)
}

// The remaining exports use the plain C calling convention and are called
// by the mod's native glue.

// fp_register_host hands over the game's function table. The table must
// stay valid until fp_shutdown.
//
//export fp_register_host
func fp_register_host(api *C.fp_host_api) {
	if api == nil {
		return
	}
	hostRegistered(&cHost{api: api})
}

//export fp_config_set_double
func fp_config_set_double(key *C.char, value C.double) {
	k := C.GoString(key)
	v := float64(value)
	call(CommandConfigSet, ConfigValue{Key: k, Value: v})
}

//export fp_log
func fp_log(level C.int, msg *C.char) {
	line := LogLine{Level: int(level), Message: C.GoString(msg)}
	call(CommandLog, line)
}

//export fp_shutdown
func fp_shutdown() {
	call(CommandShutdown, nil)
}

var (
	versionOnce sync.Once
	versionC    *C.char
)

// fp_version returns a string owned by the library.
//
//export fp_version
func fp_version() *C.char {
	versionOnce.Do(func() {
		versionC = C.CString(Version())
	})
	return versionC
}
