// Package influxstorage writes camera telemetry to InfluxDB as time-series
// points, falling back to a gzipped line-protocol file when the server is
// unreachable.
package influxstorage

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/pkg/core"
)

// Measurement names
const (
	MeasurementSession    = "camera_session"
	MeasurementPose       = "camera_pose"
	MeasurementTransition = "camera_transition"
)

const pingTimeout = 2 * time.Second

// Dependencies holds all dependencies for the InfluxDB backend
type Dependencies struct {
	Config     config.InfluxConfig
	BackupPath string
	Logger     zerolog.Logger
}

// Backend handles InfluxDB connections and writes.
type Backend struct {
	deps   Dependencies
	logger zerolog.Logger

	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	IsValid    bool
	backupFile *os.File
	backup     *gzip.Writer

	mu          sync.Mutex
	idCounter   uint
	sessionUUID string
}

// New creates a new InfluxDB backend. Connect happens in Init.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps:   deps,
		logger: deps.Logger,
	}
}

// Init connects to InfluxDB, creating the org and bucket if needed. When
// the server does not answer, points go to the backup file instead.
func (b *Backend) Init() error {
	c := b.deps.Config
	b.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port),
		c.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	running, err := b.client.Ping(ctx)

	if err != nil || !running {
		b.IsValid = false
		b.logger.Info().Err(err).Str("backupPath", b.deps.BackupPath).
			Msg("Failed to reach InfluxDB, writing to backup file")
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(); err != nil {
		return err
	}
	b.writer = b.client.WriteAPI(c.Org, c.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			b.logger.Error().Err(writeErr).Str("bucket", c.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())

	b.IsValid = true
	b.logger.Info().Str("bucket", c.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.deps.BackupPath == "" {
		return errors.New("influxDB unreachable and no backup path configured")
	}
	file, err := os.OpenFile(b.deps.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backup = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket() error {
	ctx := context.Background()
	orgName := b.deps.Config.Org
	bucket := b.deps.Config.Bucket

	org, err := b.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		b.logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = b.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", orgName, err)
		}
	}

	if _, err = b.client.BucketsAPI().FindBucketByName(ctx, bucket); err != nil {
		b.logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil {
		b.writer.Flush()
		b.writer = nil
	}
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}

	var errs []error
	if b.backup != nil {
		errs = append(errs, b.backup.Close())
		errs = append(errs, b.backupFile.Close())
		b.backup = nil
		b.backupFile = nil
	}
	return errors.Join(errs...)
}

// StartSession assigns the session ID and writes a start marker point.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	b.idCounter++
	s.ID = b.idCounter
	b.sessionUUID = s.UUID
	b.mu.Unlock()

	return b.write(sessionPoint(s, false))
}

// EndSession writes an end marker point and flushes.
func (b *Backend) EndSession(s *core.Session) error {
	if s == nil {
		return nil
	}
	if err := b.write(sessionPoint(s, true)); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.backup != nil {
		return b.backup.Flush()
	}
	return nil
}

// RecordPose writes a camera_pose point
func (b *Backend) RecordPose(p *core.PoseSample) error {
	return b.write(posePoint(b.currentUUID(), p))
}

// RecordTransition writes a camera_transition point
func (b *Backend) RecordTransition(t *core.Transition) error {
	return b.write(transitionPoint(b.currentUUID(), t))
}

func (b *Backend) currentUUID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionUUID
}

// write sends a point to InfluxDB or the backup file.
func (b *Backend) write(point *influxdb2_write.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := b.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

func sessionPoint(s *core.Session, ended bool) *influxdb2_write.Point {
	ts := s.StartTime
	fields := map[string]any{"started": true}
	if ended {
		ts = s.EndTime
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		fields = map[string]any{
			"ended":      true,
			"duration_s": ts.Sub(s.StartTime).Seconds(),
		}
	}
	return influxdb2_write.NewPoint(MeasurementSession,
		tags("session", s.UUID, "backend", s.MouseBackend, "mode", s.CameraMode, "version", s.ExtensionVersion),
		fields, ts)
}

func posePoint(session string, p *core.PoseSample) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementPose,
		tags("session", session, "form", p.Form, "class", p.Class),
		map[string]any{
			"frame":          int64(p.Frame),
			"map":            p.MapID,
			"transformation": p.Transformation,
			"eye_x":          p.Eye.X,
			"eye_y":          p.Eye.Y,
			"eye_z":          p.Eye.Z,
			"pitch":          p.Rotation.X,
			"yaw":            p.Rotation.Y,
			"roll":           p.Rotation.Z,
			"fov":            p.FOV,
			"captured":       p.MouseCaptured,
		},
		p.Time)
}

func transitionPoint(session string, t *core.Transition) *influxdb2_write.Point {
	kind := "exit"
	if t.Entered {
		kind = "enter"
	}
	return influxdb2_write.NewPoint(MeasurementTransition,
		tags("session", session, "kind", kind, "reason", t.Reason),
		map[string]any{
			"frame":          int64(t.Frame),
			"map":            t.MapID,
			"transformation": t.Transformation,
			"yaw":            t.Yaw,
			"pitch":          t.Pitch,
		},
		t.Time)
}

// tags builds a tag set from key/value pairs, skipping empty values which
// line protocol cannot carry.
func tags(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			m[kv[i]] = kv[i+1]
		}
	}
	return m
}
