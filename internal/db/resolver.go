package db

import (
	"context"
	"fmt"
	"strings"
)

// MatchTargetRoutes returns the distinct route IDs whose short name equals the
// target label after trimming, or whose description equals or contains it.
// Matching is case-insensitive. An empty result is not an error; the caller
// decides whether to fall back to an unfiltered load.
func (db *DB) MatchTargetRoutes(ctx context.Context, label string) ([]string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, nil
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT route_id
		FROM stg_gtfs_routes
		WHERE route_id IS NOT NULL AND TRIM(route_id) <> ''
		  AND (
		       UPPER(TRIM(COALESCE(route_short_name, ''))) = UPPER(?)
		    OR UPPER(TRIM(COALESCE(route_desc, ''))) = UPPER(?)
		    OR UPPER(COALESCE(route_desc, '')) LIKE '%' || UPPER(?) || '%'
		  )
	`, label, label, label)
	if err != nil {
		return nil, fmt.Errorf("failed to match target routes: %w", err)
	}
	defer rows.Close()

	var routeIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan route id: %w", err)
		}
		routeIDs = append(routeIDs, strings.TrimSpace(id))
	}
	return routeIDs, rows.Err()
}

// TripIDsForRoutes resolves the descendant trip IDs of the given routes into a
// membership set. An empty set means the filter cannot be applied.
func (db *DB) TripIDsForRoutes(ctx context.Context, routeIDs []string) (map[string]struct{}, error) {
	tripSet := make(map[string]struct{})
	if len(routeIDs) == 0 {
		return tripSet, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(routeIDs)), ",")
	args := make([]interface{}, len(routeIDs))
	for i, id := range routeIDs {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT DISTINCT trip_id FROM stg_gtfs_trips WHERE route_id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve trip ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		tripSet[id] = struct{}{}
	}
	return tripSet, rows.Err()
}
