// Package tracks serves the files derived from the GPX tracks of the books:
// WebTrack, simplified GeoJSON, compressed profile and static map. Derived
// files are written next to the GPX and regenerated when missing, empty,
// older than the GPX, or of an unsupported format version.
package tracks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/webtrack"
)

const defaultCacheSize = 64

// Renderer draws the static map of a path as PNG.
type Renderer interface {
	Render(ctx context.Context, p *geometry.Path, w io.Writer) error
}

// Indexer is told about every freshly converted track.
type Indexer interface {
	IndexTrack(ctx context.Context, bookID int, name string, t *webtrack.Track) error
}

type Options struct {
	Dir       string
	CacheSize int
	Renderer  Renderer
	Indexer   Indexer
	Logger    *slog.Logger
}

type decoded struct {
	modTime time.Time
	track   *webtrack.Track
	path    *geometry.Path
}

type Store struct {
	dir      string
	renderer Renderer
	indexer  Indexer
	log      *slog.Logger

	group   singleflight.Group
	decoded *lru.Cache[string, decoded]
}

func NewStore(opts Options) (*Store, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, decoded](size)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      opts.Dir,
		renderer: opts.Renderer,
		indexer:  opts.Indexer,
		log:      logger,
		decoded:  cache,
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// BookDir is the directory holding the tracks of a book.
func (s *Store) BookDir(bookID int) string {
	return filepath.Join(s.dir, strconv.Itoa(bookID))
}

// ValidName reports whether name can be used as a file name inside a book
// directory.
func ValidName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`+"\x00") &&
		filepath.Base(name) == name
}

// artifact is one kind of derived file.
type artifact struct {
	ext   string
	build func(ctx context.Context, s *Store, bookID int, name string, gpx []byte) ([]byte, error)
	// valid checks the head of an existing file
	valid func(head []byte) bool
}

var (
	webtrackArtifact = artifact{
		ext: ".webtrack",
		build: func(ctx context.Context, s *Store, bookID int, name string, gpx []byte) ([]byte, error) {
			t, err := FromGPX(gpx)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := webtrack.Encode(&buf, t); err != nil {
				return nil, err
			}
			s.index(ctx, bookID, name, t)
			return buf.Bytes(), nil
		},
		valid: func(head []byte) bool {
			_, version, err := webtrack.ReadFormat(head)
			return err == nil && webtrack.IsSupportedVersion(version)
		},
	}
	geojsonArtifact = artifact{
		ext: ".geojson",
		build: func(_ context.Context, _ *Store, _ int, _ string, gpx []byte) ([]byte, error) {
			return GeoJSON(gpx)
		},
	}
	profileArtifact = artifact{
		ext: ".profile",
		build: func(_ context.Context, _ *Store, _ int, _ string, gpx []byte) ([]byte, error) {
			t, err := FromGPX(gpx)
			if err != nil {
				return nil, err
			}
			return webtrack.EncodeProfile(t)
		},
		valid: func(head []byte) bool {
			return len(head) >= 4 && head[0] == 0x28 && head[1] == 0xB5 && head[2] == 0x2F && head[3] == 0xFD
		},
	}
	staticMapArtifact = artifact{
		ext: "_static_map.png",
		build: func(ctx context.Context, s *Store, _ int, _ string, gpx []byte) ([]byte, error) {
			if s.renderer == nil {
				return nil, errors.New("no static map renderer")
			}
			t, err := FromGPX(gpx)
			if err != nil {
				return nil, err
			}
			p, err := t.Path()
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := s.renderer.Render(ctx, p, &buf); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	}
)

// source locates the GPX of a track.
func (s *Store) source(bookID int, name string) (string, fs.FileInfo, error) {
	if !ValidName(name) || bookID < 0 {
		return "", nil, ErrInvalidName
	}
	src := filepath.Join(s.BookDir(bookID), name+".gpx")
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, err
	}
	if info.Size() == 0 {
		return "", nil, ErrEmptyGPX
	}
	return src, info, nil
}

// ensure returns the path of an up to date derived file, generating it if
// needed. Concurrent requests for the same file share one generation.
func (s *Store) ensure(ctx context.Context, bookID int, name string, a artifact) (string, error) {
	src, srcInfo, err := s.source(bookID, name)
	if err != nil {
		return "", err
	}
	dst := strings.TrimSuffix(src, ".gpx") + a.ext
	if fresh(dst, srcInfo, a) {
		return dst, nil
	}

	_, err, _ = s.group.Do(dst, func() (any, error) {
		if fresh(dst, srcInfo, a) {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		gpx, err := os.ReadFile(src)
		if err != nil {
			return nil, err
		}
		out, err := a.build(ctx, s, bookID, name, gpx)
		if err != nil {
			return nil, &ConversionError{Source: src, Target: dst, Err: err}
		}
		if err := writeAtomic(dst, out); err != nil {
			return nil, err
		}
		s.log.Info("track file generated", "file", dst, "bytes", len(out), "duration", time.Since(start))
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return dst, nil
}

func fresh(dst string, src fs.FileInfo, a artifact) bool {
	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 || info.ModTime().Before(src.ModTime()) {
		return false
	}
	if a.valid == nil {
		return true
	}
	f, err := os.Open(dst)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 64)
	n, _ := io.ReadFull(f, head)
	return a.valid(head[:n])
}

func writeAtomic(dst string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *Store) read(ctx context.Context, bookID int, name string, a artifact) ([]byte, error) {
	dst, err := s.ensure(ctx, bookID, name, a)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(dst)
}

func (s *Store) WebTrack(ctx context.Context, bookID int, name string) ([]byte, error) {
	return s.read(ctx, bookID, name, webtrackArtifact)
}

func (s *Store) GeoJSON(ctx context.Context, bookID int, name string) ([]byte, error) {
	return s.read(ctx, bookID, name, geojsonArtifact)
}

func (s *Store) Profile(ctx context.Context, bookID int, name string) ([]byte, error) {
	return s.read(ctx, bookID, name, profileArtifact)
}

func (s *Store) StaticMap(ctx context.Context, bookID int, name string) ([]byte, error) {
	return s.read(ctx, bookID, name, staticMapArtifact)
}

// Track returns the decoded WebTrack of a track and its path. Decoded
// tracks are kept in memory until the WebTrack file changes.
func (s *Store) Track(ctx context.Context, bookID int, name string) (*webtrack.Track, *geometry.Path, error) {
	dst, err := s.ensure(ctx, bookID, name, webtrackArtifact)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return nil, nil, err
	}
	if d, ok := s.decoded.Get(dst); ok && d.modTime.Equal(info.ModTime()) {
		return d.track, d.path, nil
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		return nil, nil, err
	}
	t, err := webtrack.Decode(b)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", dst, err)
	}
	p, err := t.Path()
	if err != nil {
		return nil, nil, err
	}
	s.decoded.Add(dst, decoded{modTime: info.ModTime(), track: t, path: p})
	return t, p, nil
}

// SaveGPX stores an uploaded GPX, replacing any previous version. Derived
// files become stale through their modification time.
func (s *Store) SaveGPX(bookID int, name string, b []byte) (string, error) {
	if !ValidName(name) || bookID < 0 {
		return "", ErrInvalidName
	}
	if len(b) == 0 {
		return "", ErrEmptyGPX
	}
	dir := s.BookDir(bookID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name+".gpx")
	if err := writeAtomic(dst, b); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *Store) index(ctx context.Context, bookID int, name string, t *webtrack.Track) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexTrack(ctx, bookID, name, t); err != nil {
		s.log.Warn("track index failed", "book_id", bookID, "name", name, "error", err)
	}
}
