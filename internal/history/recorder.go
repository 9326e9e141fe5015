package history

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/database"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// recordedAtLayout is the timestamp format stored in state_history.
// RFC 3339 in UTC sorts lexically, which the retention pruner and the
// entity index rely on.
const recordedAtLayout = time.RFC3339Nano

// Recorder persists entity state changes.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines. SQLite serialises writes through the connection pool.
type Recorder struct {
	db     *database.DB
	influx *influxdb.Client
	log    *logging.Logger
	now    func() time.Time
}

// Entry is one recorded state change.
type Entry struct {
	ID         int64     `json:"id"`
	EntityID   string    `json:"entity_id"`
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	RecordedAt time.Time `json:"recorded_at"`
}

// New creates a Recorder writing to db. influx may be nil, in which
// case only the local log is written.
func New(db *database.DB, influx *influxdb.Client, log *logging.Logger) *Recorder {
	return &Recorder{
		db:     db,
		influx: influx,
		log:    log,
		now:    time.Now,
	}
}

// RecordState logs one published state payload.
func (r *Recorder) RecordState(ctx context.Context, entityID, hassType, topic, payload string) error {
	recordedAt := r.now().UTC().Format(recordedAtLayout)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_history (entity_id, topic, payload, recorded_at)
		 VALUES (?, ?, ?, ?)`,
		entityID, topic, payload, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("recording state change: %w", err)
	}

	if r.influx != nil {
		r.influx.WriteEntityState(entityID, hassType, payload)
	}
	return nil
}

// RecordEvent logs a protocol event forwarded to Home Assistant. Events
// are transient so they only go to InfluxDB, never the local log.
func (r *Recorder) RecordEvent(event, senderID string) {
	if r.influx != nil {
		r.influx.WriteEvent(event, senderID)
	}
}

// Recent returns the newest state changes for an entity, most recent
// first. A limit of 0 or less defaults to 100.
func (r *Recorder) Recent(ctx context.Context, entityID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_id, topic, payload, recorded_at
		 FROM state_history
		 WHERE entity_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt string
		if err := rows.Scan(&e.ID, &e.EntityID, &e.Topic, &e.Payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning state history row: %w", err)
		}
		if e.RecordedAt, err = time.Parse(recordedAtLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at %q: %w", recordedAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the retention window and returns
// how many rows were removed. A retention of 0 or less keeps
// everything.
func (r *Recorder) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := r.now().UTC().AddDate(0, 0, -retentionDays).Format(recordedAtLayout)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM state_history WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning state history: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 && r.log != nil {
		r.log.Debug("pruned state history", "removed", removed, "retention_days", retentionDays)
	}
	return removed, nil
}
