package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/atinylittleshell/resmon/internal/system"
	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TimestampLayout is the layout of the persisted timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

var ErrAlreadyRecording = errors.New("recording already in progress")

// StorageError indicates the store could not be opened or written to.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ResourceStat is one persisted sample.
type ResourceStat struct {
	ID        uint    `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp string  `gorm:"column:timestamp;type:text"`
	CPU       float64 `gorm:"column:cpu;type:real"`
	RAM       float64 `gorm:"column:ram;type:real"`
	Disk      float64 `gorm:"column:disk;type:real"`
}

func (ResourceStat) TableName() string {
	return "resource_stats"
}

// Recorder owns the sample store and the recording session.
type Recorder struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger

	recording bool
	startTime time.Time
}

type Option func(*Recorder)

// WithClock overrides the clock used by Elapsed and for untimestamped samples.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Open opens the store at dbFilePath, creating it if necessary, and ensures
// the schema exists.
func Open(dbFilePath string, opts ...Option) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	r := &Recorder{
		db:     db,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.EnsureSchema(); err != nil {
		_ = r.Close()
		return nil, err
	}

	r.logger.Debug("opened sample store", zap.String("path", dbFilePath))
	return r, nil
}

// EnsureSchema creates the resource_stats table if it does not exist.
// Calling it more than once is harmless.
func (r *Recorder) EnsureSchema() error {
	if err := r.db.AutoMigrate(&ResourceStat{}); err != nil {
		return &StorageError{Op: "ensure schema", Err: err}
	}
	return nil
}

// Close closes the database connection. This should be called when the
// Recorder is no longer needed, especially in tests to allow cleanup of
// temporary database files on Windows.
func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start begins a recording session at now.
func (r *Recorder) Start(now time.Time) error {
	if r.recording {
		return ErrAlreadyRecording
	}
	r.recording = true
	r.startTime = now
	r.logger.Info("recording started", zap.Time("start", now))
	return nil
}

// Stop ends the current session. It does nothing when not recording.
func (r *Recorder) Stop() {
	if !r.recording {
		return
	}
	r.logger.Info("recording stopped", zap.Duration("elapsed", r.Elapsed()))
	r.recording = false
	r.startTime = time.Time{}
}

func (r *Recorder) Recording() bool {
	return r.recording
}

// StartTime returns the session start, or the zero time when idle.
func (r *Recorder) StartTime() time.Time {
	return r.startTime
}

// Record appends sample to the store and commits before returning. While
// idle it is a no-op.
func (r *Recorder) Record(sample system.Sample) error {
	if !r.recording {
		return nil
	}

	ts := sample.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	stat := ResourceStat{
		Timestamp: ts.Local().Format(TimestampLayout),
		CPU:       sample.CPUPercent,
		RAM:       sample.RAMUsedGB,
		Disk:      sample.DiskUsedGB,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&stat).Error
	})
	if err != nil {
		return &StorageError{Op: "record", Err: err}
	}
	return nil
}

// Elapsed returns the wall-clock time since Start, or zero when idle.
func (r *Recorder) Elapsed() time.Duration {
	if !r.recording {
		return 0
	}
	return r.now().Sub(r.startTime)
}

// FormatElapsed renders d as minutes:seconds. Seconds are not zero padded,
// so 125s renders as "2:5".
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%d", total/60, total%60)
}

// RecentRecords returns up to limit of the newest records, oldest first.
func (r *Recorder) RecentRecords(limit int) ([]ResourceStat, error) {
	var stats []ResourceStat
	result := r.db.Order("id desc").Limit(limit).Find(&stats)
	if result.Error != nil {
		return nil, &StorageError{Op: "query", Err: result.Error}
	}

	return lo.Reverse(stats), nil
}

// AllRecords returns every record in insertion order.
func (r *Recorder) AllRecords() ([]ResourceStat, error) {
	var stats []ResourceStat
	result := r.db.Order("id asc").Find(&stats)
	if result.Error != nil {
		return nil, &StorageError{Op: "query", Err: result.Error}
	}
	return stats, nil
}

func (r *Recorder) Count() (int64, error) {
	var count int64
	result := r.db.Model(&ResourceStat{}).Count(&count)
	if result.Error != nil {
		return 0, &StorageError{Op: "count", Err: result.Error}
	}
	return count, nil
}
