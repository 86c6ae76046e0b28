package recompabi

/*
#include "recomp.h"

// cgo cannot call function pointers; these trampolines do it.
static inline int fp_button_held(const fp_host_api* a, int b) { return a->button_held(b); }
static inline int fp_button_pressed(const fp_host_api* a, int b) { return a->button_pressed(b); }
static inline int fp_can_view_first_person(const fp_host_api* a) { return a->can_view_first_person(); }
static inline fp_vec3 fp_player_position(const fp_host_api* a) { return a->player_position(); }
static inline float fp_player_yaw(const fp_host_api* a) { return a->player_yaw(); }
static inline void fp_set_player_yaw(const fp_host_api* a, float d) { a->set_player_yaw(d); }
static inline float fp_player_model_pitch(const fp_host_api* a) { return a->player_model_pitch(); }
static inline int fp_transformation(const fp_host_api* a) { return a->transformation(); }
static inline int fp_water_state(const fp_host_api* a) { return a->water_state(); }
static inline int fp_is_dead(const fp_host_api* a) { return a->is_dead(); }
static inline int fp_behavior_state(const fp_host_api* a) { return a->behavior_state(); }
static inline float fp_movement_speed(const fp_host_api* a) { return a->movement_speed(); }
static inline void fp_set_model_visible(const fp_host_api* a, int v) { a->set_model_visible(v); }
static inline fp_vec3 fp_head_position(const fp_host_api* a) { return a->head_position(); }
static inline fp_vec3 fp_bone_position(const fp_host_api* a, int b) { return a->bone_position(b); }
static inline fp_vec3 fp_view_rotation(const fp_host_api* a) { return a->view_rotation(); }
static inline void fp_set_view_position(const fp_host_api* a, fp_vec3 p) { a->set_view_position(p); }
static inline void fp_set_view_rotation(const fp_host_api* a, fp_vec3 r) { a->set_view_rotation(r); }
static inline float fp_view_fov(const fp_host_api* a) { return a->view_fov(); }
static inline void fp_set_view_fov(const fp_host_api* a, float f) { a->set_view_fov(f); }
static inline int fp_map_id(const fp_host_api* a) { return a->map_id(); }
static inline float fp_time_delta(const fp_host_api* a) { return a->time_delta(); }

*/
import "C"

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/bkfirstperson/extension/internal/camera"
)

// cHost implements camera.Host over the game's function table. Calls are
// only valid on the game thread.
type cHost struct {
	api *C.fp_host_api
}

var _ camera.Host = (*cHost)(nil)

func toVec(v C.fp_vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.x), float32(v.y), float32(v.z)}
}

func fromVec(v mgl32.Vec3) C.fp_vec3 {
	return C.fp_vec3{x: C.float(v[0]), y: C.float(v[1]), z: C.float(v[2])}
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (h *cHost) ButtonHeld(b camera.Button) bool {
	return C.fp_button_held(h.api, C.int(b)) != 0
}

func (h *cHost) ButtonPressed(b camera.Button) bool {
	return C.fp_button_pressed(h.api, C.int(b)) != 0
}

func (h *cHost) CanViewFirstPerson() bool { return C.fp_can_view_first_person(h.api) != 0 }
func (h *cHost) Position() mgl32.Vec3     { return toVec(C.fp_player_position(h.api)) }
func (h *cHost) Yaw() float32             { return float32(C.fp_player_yaw(h.api)) }
func (h *cHost) SetYaw(deg float32)       { C.fp_set_player_yaw(h.api, C.float(deg)) }
func (h *cHost) ModelPitch() float32      { return float32(C.fp_player_model_pitch(h.api)) }
func (h *cHost) Transformation() int      { return int(C.fp_transformation(h.api)) }
func (h *cHost) WaterState() int          { return int(C.fp_water_state(h.api)) }
func (h *cHost) IsDead() bool             { return C.fp_is_dead(h.api) != 0 }
func (h *cHost) BehaviorState() int       { return int(C.fp_behavior_state(h.api)) }
func (h *cHost) MovementSpeed() float32   { return float32(C.fp_movement_speed(h.api)) }

func (h *cHost) SetModelVisible(visible bool) {
	C.fp_set_model_visible(h.api, cBool(visible))
}

func (h *cHost) HeadPosition() mgl32.Vec3 { return toVec(C.fp_head_position(h.api)) }

func (h *cHost) BonePosition(bone int) mgl32.Vec3 {
	return toVec(C.fp_bone_position(h.api, C.int(bone)))
}

func (h *cHost) Rotation() mgl32.Vec3       { return toVec(C.fp_view_rotation(h.api)) }
func (h *cHost) SetPosition(pos mgl32.Vec3) { C.fp_set_view_position(h.api, fromVec(pos)) }
func (h *cHost) SetRotation(rot mgl32.Vec3) { C.fp_set_view_rotation(h.api, fromVec(rot)) }
func (h *cHost) FOV() float32               { return float32(C.fp_view_fov(h.api)) }
func (h *cHost) SetFOV(fov float32)         { C.fp_set_view_fov(h.api, C.float(fov)) }
func (h *cHost) MapID() int                 { return int(C.fp_map_id(h.api)) }
func (h *cHost) TimeDelta() float32         { return float32(C.fp_time_delta(h.api)) }
