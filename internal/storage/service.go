// Package storage receives GPX uploads and records them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ExploreWilder/MainWebsite/internal/db"
	"github.com/ExploreWilder/MainWebsite/internal/tracks"
)

var ErrTooLarge = errors.New("file too large")

// TrackWriter stores GPX files and derives the WebTrack.
type TrackWriter interface {
	SaveGPX(bookID int, name string, b []byte) (string, error)
	WebTrack(ctx context.Context, bookID int, name string) ([]byte, error)
}

type Service struct {
	db       db.Querier
	tracks   TrackWriter
	maxBytes int
}

func NewService(db db.Querier, tw TrackWriter, maxBytes int) *Service {
	return &Service{db: db, tracks: tw, maxBytes: maxBytes}
}

// InvalidGPXError is returned for files that cannot become a WebTrack.
type InvalidGPXError struct {
	Err error
}

func (e *InvalidGPXError) Error() string { return "invalid GPX: " + e.Err.Error() }

func (e *InvalidGPXError) Unwrap() error { return e.Err }

// SaveGPX checks that b converts, replaces the book track with it and
// records the upload. The WebTrack is generated right away so the track
// shows up in the catalog.
func (s *Service) SaveGPX(ctx context.Context, adminID string, bookID int, name string, b []byte) (Upload, error) {
	if s.maxBytes > 0 && len(b) > s.maxBytes {
		return Upload{}, ErrTooLarge
	}
	if !tracks.ValidName(name) || bookID < 0 {
		return Upload{}, tracks.ErrInvalidName
	}
	if len(b) == 0 {
		return Upload{}, &InvalidGPXError{Err: tracks.ErrEmptyGPX}
	}
	t, err := tracks.FromGPX(b)
	if err != nil {
		return Upload{}, &InvalidGPXError{Err: err}
	}

	if _, err := s.tracks.SaveGPX(bookID, name, b); err != nil {
		return Upload{}, fmt.Errorf("save gpx: %w", err)
	}

	points := 0
	for _, seg := range t.Segments {
		points += len(seg.Points)
	}
	up := Upload{
		ID:         uuid.NewString(),
		AdminID:    adminID,
		BookID:     bookID,
		Name:       name,
		Size:       len(b),
		Points:     points,
		UploadedAt: time.Now().UTC(),
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO track_uploads (id, admin_id, book_id, name, size, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, up.ID, up.AdminID, up.BookID, up.Name, up.Size, up.UploadedAt)
	if err != nil {
		return Upload{}, err
	}

	if _, err := s.tracks.WebTrack(ctx, bookID, name); err != nil {
		return Upload{}, fmt.Errorf("generate webtrack: %w", err)
	}
	return up, nil
}
