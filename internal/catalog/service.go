// Package catalog indexes the statistics and waypoints of the book tracks
// in Postgres for listing and nearby search.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ExploreWilder/MainWebsite/internal/db"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// IndexTrack upserts the summary of a track and replaces its waypoints.
func (s *Service) IndexTrack(ctx context.Context, bookID int, name string, t *webtrack.Track) error {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO book_tracks (id, book_id, name, length_m, min_altitude_m, max_altitude_m, gain_m, loss_m, points, waypoint_count, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())
		ON CONFLICT (book_id, name) DO UPDATE
		SET length_m=EXCLUDED.length_m, min_altitude_m=EXCLUDED.min_altitude_m,
		    max_altitude_m=EXCLUDED.max_altitude_m, gain_m=EXCLUDED.gain_m, loss_m=EXCLUDED.loss_m,
		    points=EXCLUDED.points, waypoint_count=EXCLUDED.waypoint_count, updated_at=NOW()
		RETURNING id
	`, uuid.NewString(), bookID, name, t.Info.Length, t.Info.MinAltitude, t.Info.MaxAltitude,
		t.Info.Gain, t.Info.Loss, len(t.Samples()), len(t.Waypoints)).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM track_waypoints WHERE track_id=$1`, id); err != nil {
		return fmt.Errorf("clear waypoints: %w", err)
	}
	for _, w := range t.Waypoints {
		_, err := s.db.Exec(ctx, `
			INSERT INTO track_waypoints (id, track_id, name, symbol, category, location, elevation_m, has_elevation)
			VALUES ($1,$2,$3,$4,$5, ST_SetSRID(ST_MakePoint($6,$7), 4326)::geography, $8, $9)
		`, uuid.NewString(), id, w.Name, w.Symbol, w.Category.String(), w.Longitude, w.Latitude, w.Elevation, w.HasElevation)
		if err != nil {
			return fmt.Errorf("insert waypoint: %w", err)
		}
	}
	return nil
}

func (s *Service) Tracks(ctx context.Context, bookID int) ([]Track, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, book_id, name, length_m, min_altitude_m, max_altitude_m, gain_m, loss_m, points, waypoint_count, updated_at
		FROM book_tracks WHERE book_id=$1
		ORDER BY name
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []Track{}
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.BookID, &t.Name, &t.LengthM, &t.MinAltitudeM, &t.MaxAltitudeM, &t.GainM, &t.LossM, &t.Points, &t.WaypointCount, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (s *Service) Track(ctx context.Context, bookID int, name string) (Track, error) {
	var t Track
	err := s.db.QueryRow(ctx, `
		SELECT id, book_id, name, length_m, min_altitude_m, max_altitude_m, gain_m, loss_m, points, waypoint_count, updated_at
		FROM book_tracks WHERE book_id=$1 AND name=$2
	`, bookID, name).Scan(&t.ID, &t.BookID, &t.Name, &t.LengthM, &t.MinAltitudeM, &t.MaxAltitudeM, &t.GainM, &t.LossM, &t.Points, &t.WaypointCount, &t.UpdatedAt)
	if err != nil {
		return Track{}, err
	}
	return t, nil
}

// SearchWaypoints lists the waypoints within radiusKm of a point, closest
// first. An empty category matches all.
func (s *Service) SearchWaypoints(ctx context.Context, lat, lng, radiusKm float64, category string) ([]Waypoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.track_id, t.book_id, t.name, w.name, w.symbol, w.category,
		       ST_Y(w.location::geometry), ST_X(w.location::geometry), COALESCE(w.elevation_m,0), w.has_elevation
		FROM track_waypoints w
		JOIN book_tracks t ON t.id = w.track_id
		WHERE ST_DWithin(w.location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		  AND ($4 = '' OR w.category = $4)
		ORDER BY ST_Distance(w.location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography)
	`, lng, lat, radiusKm*1000, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Waypoint{}
	for rows.Next() {
		var w Waypoint
		if err := rows.Scan(&w.ID, &w.TrackID, &w.BookID, &w.TrackName, &w.Name, &w.Symbol, &w.Category, &w.Lat, &w.Lng, &w.ElevationM, &w.HasElevation); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}
