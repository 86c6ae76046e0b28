package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/pkg/core"
)

func testSession() *core.Session {
	return &core.Session{
		UUID:             "0f8fad5b-d9cb-469f-a165-70867728950e",
		StartTime:        time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		ExtensionVersion: "1.0.0",
		MouseBackend:     "x11",
		CameraMode:       "free",
	}
}

func record(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.RecordTransition(&core.Transition{Frame: 0, Entered: true, Reason: "toggle", MapID: 12, Transformation: 1}))
	require.NoError(t, b.RecordPose(&core.PoseSample{
		Frame: 4, Form: "banjo", Class: "idle",
		Eye:      core.Vec3{X: 100, Y: 60, Z: 200},
		Rotation: core.Vec3{X: -5, Y: 180, Z: 0},
		FOV:      60, MouseCaptured: true,
	}))
	require.NoError(t, b.RecordPose(&core.PoseSample{Frame: 8, Form: "banjo", Class: "move", FOV: 60}))
	require.NoError(t, b.RecordTransition(&core.Transition{Frame: 9, Entered: false, Reason: "water", MapID: 12, Transformation: 1}))
}

func TestStartSession_AssignsIDsAndResets(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	s := testSession()
	require.NoError(t, b.StartSession(s))
	assert.Equal(t, uint(1), s.ID)
	record(t, b)

	poses, transitions := b.Counts()
	assert.Equal(t, 2, poses)
	assert.Equal(t, 2, transitions)

	s2 := testSession()
	require.NoError(t, b.StartSession(s2))
	assert.Equal(t, uint(2), s2.ID)
	poses, transitions = b.Counts()
	assert.Zero(t, poses)
	assert.Zero(t, transitions)
}

func TestRecord_WithoutSession(t *testing.T) {
	b := New(config.MemoryConfig{})

	assert.ErrorIs(t, b.RecordPose(&core.PoseSample{}), errNoSession)
	assert.ErrorIs(t, b.RecordTransition(&core.Transition{}), errNoSession)
	assert.ErrorIs(t, b.EndSession(nil), errNoSession)
}

func TestBuildExport(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartSession(testSession()))
	record(t, b)

	export := b.buildExport()

	assert.Equal(t, "x11", export.MouseBackend)
	assert.Equal(t, uint(9), export.EndFrame)
	require.Len(t, export.Poses, 2)
	assert.Equal(t, []any{
		uint(4),
		[]float32{100, 60, 200},
		[]float32{-5, 180, 0},
		float32(60),
		"banjo",
		"idle",
		1,
	}, export.Poses[0])

	require.Len(t, export.Transitions, 2)
	assert.Equal(t, "enter", export.Transitions[0][1])
	assert.Equal(t, "exit", export.Transitions[1][1])
	assert.Equal(t, "water", export.Transitions[1][2])
}

func TestEndSession_WritesGzipJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	s := testSession()
	require.NoError(t, b.StartSession(s))
	record(t, b)

	s.EndTime = s.StartTime.Add(90 * time.Second)
	require.NoError(t, b.EndSession(s))

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "fpcam_20260115_103000_0f8fad5b.json.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var got SessionExport
	require.NoError(t, json.NewDecoder(gz).Decode(&got))
	assert.Equal(t, s.UUID, got.SessionUUID)
	assert.Equal(t, s.EndTime, got.EndTime)
	assert.Len(t, got.Poses, 2)
	assert.Len(t, got.Transitions, 2)
}

func TestEndSession_WritesPlainJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession(nil))

	path := b.ExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []any{}, got["poses"])
	assert.Equal(t, float64(0), got["endFrame"])
}
