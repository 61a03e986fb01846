package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/budairport-bi/transit-etl/internal/realtime/arrivals"
)

// CreateSnapshot creates a new snapshot record and returns its ID
func (db *DB) CreateSnapshot(ctx context.Context, polledAt time.Time) (string, error) {
	snapshotID := uuid.New().String()
	polledAtStr := polledAt.UTC().Format(time.RFC3339)

	db.LockWrite()
	defer db.UnlockWrite()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO rt_snapshots (snapshot_id, polled_at_utc) VALUES (?, ?)",
		snapshotID, polledAtStr,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}

	return snapshotID, nil
}

// AppendArrivals appends one snapshot's normalized arrival records
func (db *DB) AppendArrivals(ctx context.Context, snapshotID string, polledAt time.Time, rawFile string, records []arrivals.Arrival) error {
	polledAtStr := polledAt.UTC().Format(time.RFC3339)

	return db.insertBatch(ctx, `INSERT INTO rt_stop_arrivals
		(snapshot_id, polled_at_utc, stop_id, route_id, trip_id,
		 scheduled_utc, predicted_utc, delay_seconds, raw_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(records), func(i int) []interface{} {
			r := records[i]
			return []interface{}{
				snapshotID, polledAtStr, r.StopID, r.RouteID, r.TripID,
				timePtr(r.Scheduled), timePtr(r.Predicted), r.DelaySeconds, rawFile,
			}
		})
}

// AppendHeadways appends one snapshot's derived headway records
func (db *DB) AppendHeadways(ctx context.Context, snapshotID string, polledAt time.Time, rawFile, stopID, routeID string, headways []int) error {
	polledAtStr := polledAt.UTC().Format(time.RFC3339)

	return db.insertBatch(ctx, `INSERT INTO rt_stop_headways
		(snapshot_id, polled_at_utc, stop_id, route_id, headway_seconds, raw_file)
		VALUES (?, ?, ?, ?, ?, ?)`,
		len(headways), func(i int) []interface{} {
			return []interface{}{snapshotID, polledAtStr, stopID, routeID, headways[i], rawFile}
		})
}

// Cleanup deletes realtime data older than the retention duration. A zero
// retention keeps everything.
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	hours := int(retention.Hours())
	if hours < 1 {
		hours = 1
	}

	db.LockWrite()
	defer db.UnlockWrite()

	queries := []struct {
		name  string
		query string
	}{
		{
			name:  "stop_arrivals",
			query: fmt.Sprintf("DELETE FROM rt_stop_arrivals WHERE datetime(polled_at_utc) < datetime('now', '-%d hours')", hours),
		},
		{
			name:  "stop_headways",
			query: fmt.Sprintf("DELETE FROM rt_stop_headways WHERE datetime(polled_at_utc) < datetime('now', '-%d hours')", hours),
		},
		{
			name:  "snapshots",
			query: fmt.Sprintf("DELETE FROM rt_snapshots WHERE datetime(polled_at_utc) < datetime('now', '-%d hours')", hours),
		},
	}

	totalDeleted := 0
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if totalDeleted > 0 {
		log.Printf("Cleanup: deleted %d realtime records older than %d hours", totalDeleted, hours)
	}

	return nil
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
