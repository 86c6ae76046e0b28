// Package gormstorage implements the storage.Backend interface on a GORM
// database (SQLite or Postgres). Records are queued and written in batches
// by a background flush loop.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bkfirstperson/extension/internal/database"
	"github.com/bkfirstperson/extension/internal/model"
	"github.com/bkfirstperson/extension/internal/queue"
	"github.com/bkfirstperson/extension/pkg/core"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM backend
type Dependencies struct {
	Manager       *database.Manager
	Logger        *slog.Logger
	QueueLimit    int
	FlushInterval time.Duration
}

// Backend writes camera telemetry through GORM.
type Backend struct {
	deps Dependencies
	db   *gorm.DB
	log  *slog.Logger

	poses       *queue.Queue[model.PoseSample]
	transitions *queue.Queue[model.Transition]

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM backend. The manager must already be connected.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	var db *gorm.DB
	if deps.Manager != nil {
		db = deps.Manager.DB
	}
	return &Backend{
		deps:        deps,
		db:          db,
		log:         log,
		poses:       queue.New[model.PoseSample](deps.QueueLimit),
		transitions: queue.New[model.Transition](0),
	}
}

// Init migrates the schema and starts the flush loop.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("database not connected")
	}
	if err := b.deps.Manager.Setup(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.flushLoop()
	return nil
}

// Close stops the flush loop, writes what is queued and closes the database.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	flushErr := b.flush()
	if b.deps.Manager != nil {
		if err := b.deps.Manager.Close(); err != nil {
			return errors.Join(flushErr, err)
		}
	}
	return flushErr
}

// StartSession inserts the session row and assigns its ID.
func (b *Backend) StartSession(s *core.Session) error {
	row := model.FromCoreSession(*s)
	if err := b.db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	s.ID = row.ID
	return nil
}

// EndSession writes queued records and stamps the session end time.
func (b *Backend) EndSession(s *core.Session) error {
	if err := b.flush(); err != nil {
		return err
	}
	if s == nil || s.ID == 0 {
		return nil
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return b.db.Model(&model.Session{}).Where("id = ?", s.ID).Update("end_time", end).Error
}

// RecordPose queues a pose sample
func (b *Backend) RecordPose(p *core.PoseSample) error {
	if n := b.poses.Push(model.FromCorePose(*p)); n > 0 {
		b.log.Debug("Pose queue over limit", "dropped", n)
	}
	return nil
}

// RecordTransition queues a transition
func (b *Backend) RecordTransition(t *core.Transition) error {
	b.transitions.Push(model.FromCoreTransition(*t))
	return nil
}

// Pending returns the number of queued, unwritten records.
func (b *Backend) Pending() int {
	return b.poses.Len() + b.transitions.Len()
}

func (b *Backend) flushLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			n := b.Pending()
			if n == 0 {
				continue
			}
			if err := b.flush(); err != nil {
				b.log.Error("Error writing telemetry", "error", err)
			} else {
				b.log.Debug("Wrote telemetry", "records", n, "duration", time.Since(start))
			}
		}
	}
}

func (b *Backend) flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	if b.db == nil {
		return nil
	}

	var errs []error
	if rows := b.transitions.Drain(); len(rows) > 0 {
		if err := b.db.Omit(clause.Associations).CreateInBatches(rows, 100).Error; err != nil {
			errs = append(errs, fmt.Errorf("writing %d transitions: %w", len(rows), err))
		}
	}
	if rows := b.poses.Drain(); len(rows) > 0 {
		if err := b.db.Omit(clause.Associations).CreateInBatches(rows, 500).Error; err != nil {
			errs = append(errs, fmt.Errorf("writing %d pose samples: %w", len(rows), err))
		}
	}
	return errors.Join(errs...)
}
