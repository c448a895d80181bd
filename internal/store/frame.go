package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/session"
)

// FrameRecord is a recorded frame tagged with its session.
type FrameRecord struct {
	SessionID string
	session.RecordedFrame
}

// FrameRepository stores raw landmark frames for review and replay.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// AppendBatch inserts frames in a single transaction.
func (r *FrameRepository) AppendBatch(frames []FrameRecord) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO session_frames (session_id, at, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		data, err := json.Marshal(f.Landmarks)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		if _, err := stmt.Exec(f.SessionID, f.At, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession returns the frames of a session in capture order.
func (r *FrameRepository) ListBySession(sessionID string) ([]session.RecordedFrame, error) {
	rows, err := r.db.Query(
		`SELECT at, data FROM session_frames WHERE session_id = ? ORDER BY at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []session.RecordedFrame
	for rows.Next() {
		var f session.RecordedFrame
		var data string
		if err := rows.Scan(&f.At, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &f.Landmarks); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// FrameWriterConfig holds FrameWriter options.
type FrameWriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

// DefaultFrameWriterConfig returns a FrameWriterConfig with sensible default values.
func DefaultFrameWriterConfig() FrameWriterConfig {
	return FrameWriterConfig{
		BatchSize:     50,
		FlushInterval: time.Second,
		QueueSize:     512,
	}
}

// FrameWriter batches recorded frames off the frame-processing path.
// It implements session.FrameRecorder.
type FrameWriter struct {
	repo   *FrameRepository
	config FrameWriterConfig
	frames chan FrameRecord
}

// NewFrameWriter creates a FrameWriter. Call Run to start persisting.
func (s *Store) NewFrameWriter(config FrameWriterConfig) *FrameWriter {
	def := DefaultFrameWriterConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	return &FrameWriter{
		repo:   s.Frames(),
		config: config,
		frames: make(chan FrameRecord, config.QueueSize),
	}
}

// RecordFrame queues a frame. Frames are dropped when the queue is full.
func (w *FrameWriter) RecordFrame(sessionID string, at time.Time, points []pose.Landmark) {
	landmarks := make([]pose.Landmark, len(points))
	copy(landmarks, points)

	select {
	case w.frames <- FrameRecord{SessionID: sessionID, RecordedFrame: session.RecordedFrame{At: at, Landmarks: landmarks}}:
	default:
		log.Printf("store: frame queue full, dropping frame for %s", sessionID)
	}
}

// Run writes queued frames in batches until ctx is cancelled, then flushes
// what is left.
func (w *FrameWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]FrameRecord, 0, w.config.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.repo.AppendBatch(batch); err != nil {
			log.Printf("store: write %d frames: %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case f := <-w.frames:
					batch = append(batch, f)
				default:
					flush()
					return
				}
			}
		case f := <-w.frames:
			batch = append(batch, f)
			if len(batch) >= w.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
