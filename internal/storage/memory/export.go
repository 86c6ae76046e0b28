package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	ExtensionVersion string         `json:"extensionVersion"`
	SessionUUID      string         `json:"sessionUuid"`
	MouseBackend     string         `json:"mouseBackend"`
	CameraMode       string         `json:"cameraMode"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          time.Time      `json:"endTime"`
	EndFrame         uint           `json:"endFrame"`
	Settings         map[string]any `json:"settings,omitempty"`
	// Format: [frame, [eyeX, eyeY, eyeZ], [pitch, yaw, roll], fov, form, class, captured]
	Poses [][]any `json:"poses"`
	// Format: [frame, "enter"|"exit", reason, mapId, transformation, yaw, pitch]
	Transitions [][]any `json:"transitions"`
}

// exportJSON writes the session data to a JSON file, gzipped if configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	short := b.session.UUID
	if len(short) > 8 {
		short = short[:8]
	}
	timestamp := b.session.StartTime.UTC().Format("20060102_150405")

	filename := fmt.Sprintf("fpcam_%s_%s.json", timestamp, short)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	s := b.session
	export := SessionExport{
		ExtensionVersion: s.ExtensionVersion,
		SessionUUID:      s.UUID,
		MouseBackend:     s.MouseBackend,
		CameraMode:       s.CameraMode,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		Settings:         s.Settings,
		Poses:            make([][]any, 0, len(b.poses)),
		Transitions:      make([][]any, 0, len(b.transitions)),
	}

	var maxFrame uint
	for _, p := range b.poses {
		export.Poses = append(export.Poses, []any{
			p.Frame,
			[]float32{p.Eye.X, p.Eye.Y, p.Eye.Z},
			[]float32{p.Rotation.X, p.Rotation.Y, p.Rotation.Z},
			p.FOV,
			p.Form,
			p.Class,
			boolToInt(p.MouseCaptured),
		})
		maxFrame = max(maxFrame, p.Frame)
	}

	for _, t := range b.transitions {
		kind := "exit"
		if t.Entered {
			kind = "enter"
		}
		export.Transitions = append(export.Transitions, []any{
			t.Frame,
			kind,
			t.Reason,
			t.MapID,
			t.Transformation,
			t.Yaw,
			t.Pitch,
		})
		maxFrame = max(maxFrame, t.Frame)
	}

	export.EndFrame = maxFrame
	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
