// Package webtrack reads and writes the WebTrack binary track format and
// the older compressed JSON elevation profile.
package webtrack

import (
	"bytes"
	"encoding/binary"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

const maxVersionLen = 16

type reader struct {
	b       []byte
	off     int
	section string
}

func (r *reader) fail(kind ErrorKind, detail string) error {
	return &DecodeError{Kind: kind, Section: r.section, Offset: r.off, Detail: detail}
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.b)-r.off < n {
		return nil, r.fail(Truncated, "")
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

// until reads up to and excluding sep, consuming sep.
func (r *reader) until(sep byte) ([]byte, error) {
	i := bytes.IndexByte(r.b[r.off:], sep)
	if i < 0 {
		r.off = len(r.b)
		return nil, r.fail(Truncated, "missing separator")
	}
	out := r.b[r.off : r.off+i]
	r.off += i + 1
	return out, nil
}

// ReadFormat returns the format name and version of an encoded buffer
// without decoding the rest.
func ReadFormat(b []byte) (name, version string, err error) {
	r := &reader{b: b, section: "format information"}
	return r.header()
}

func (r *reader) header() (string, string, error) {
	magic := FormatName + ":"
	if len(r.b) < len(magic) {
		if bytes.HasPrefix([]byte(magic), r.b) {
			return "", "", r.fail(Truncated, "")
		}
		return "", "", r.fail(InvalidHeader, "unknown magic")
	}
	if !bytes.HasPrefix(r.b, []byte(magic)) {
		return "", "", r.fail(InvalidHeader, "unknown magic")
	}
	r.off = len(magic)

	rest := r.b[r.off:]
	if len(rest) > maxVersionLen {
		rest = rest[:maxVersionLen]
	}
	i := bytes.IndexByte(rest, ':')
	if i < 0 {
		if len(rest) == maxVersionLen {
			return "", "", r.fail(InvalidHeader, "version too long")
		}
		return "", "", r.fail(Truncated, "")
	}
	version := string(rest[:i])
	r.off += i + 1
	return FormatName, version, nil
}

type segmentHeader struct {
	withElevation bool
	points        uint32
}

// Decode parses a complete WebTrack buffer.
func Decode(b []byte) (*Track, error) {
	r := &reader{b: b, section: "format information"}
	name, version, err := r.header()
	if err != nil {
		return nil, err
	}
	if !IsSupportedVersion(version) {
		return nil, r.fail(UnsupportedVersion, version)
	}

	nSegments, err := r.u8()
	if err != nil {
		return nil, err
	}
	nWaypoints, err := r.u16()
	if err != nil {
		return nil, err
	}

	r.section = "segment headers"
	headers := make([]segmentHeader, nSegments)
	for i := range headers {
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		switch kind {
		case 'E':
			headers[i].withElevation = true
		case 'F':
		default:
			return nil, r.fail(InvalidHeader, "unknown segment type")
		}
		if headers[i].points, err = r.u32(); err != nil {
			return nil, err
		}
	}

	r.section = "track information"
	info, err := r.trackInfo()
	if err != nil {
		return nil, err
	}

	t := &Track{Format: name, Version: version, Info: info}

	r.section = "segments"
	t.Segments = make([]Segment, len(headers))
	for i, h := range headers {
		seg, err := r.segment(h)
		if err != nil {
			return nil, err
		}
		t.Segments[i] = seg
	}

	r.section = "waypoints"
	t.Waypoints = make([]geometry.Waypoint, 0, nWaypoints)
	for i := 0; i < int(nWaypoints); i++ {
		w, err := r.waypoint()
		if err != nil {
			return nil, err
		}
		t.Waypoints = append(t.Waypoints, w)
	}
	return t, nil
}

func (r *reader) trackInfo() (TrackInfo, error) {
	length, err := r.u32()
	if err != nil {
		return TrackInfo{}, err
	}
	minAlt, err := r.i16()
	if err != nil {
		return TrackInfo{}, err
	}
	maxAlt, err := r.i16()
	if err != nil {
		return TrackInfo{}, err
	}
	gain, err := r.u32()
	if err != nil {
		return TrackInfo{}, err
	}
	loss, err := r.u32()
	if err != nil {
		return TrackInfo{}, err
	}
	return TrackInfo{
		Length:      float64(length),
		MinAltitude: float64(minAlt),
		MaxAltitude: float64(maxAlt),
		Gain:        float64(gain),
		Loss:        float64(loss),
	}, nil
}

func (r *reader) segment(h segmentHeader) (Segment, error) {
	// each point is at least 6 bytes, reject absurd counts before allocating
	if uint64(h.points)*6 > uint64(len(r.b)-r.off) {
		return Segment{}, r.fail(Truncated, "point count exceeds buffer")
	}
	seg := Segment{WithElevation: h.withElevation, Points: make([]geometry.TrackSample, 0, h.points)}

	var x, y int64
	for i := uint32(0); i < h.points; i++ {
		if i == 0 {
			x0, err := r.i32()
			if err != nil {
				return Segment{}, err
			}
			y0, err := r.i32()
			if err != nil {
				return Segment{}, err
			}
			x, y = int64(x0), int64(y0)
		} else {
			dx, err := r.i16()
			if err != nil {
				return Segment{}, err
			}
			dy, err := r.i16()
			if err != nil {
				return Segment{}, err
			}
			x += int64(dx)
			y += int64(dy)
		}

		dist, err := r.u16()
		if err != nil {
			return Segment{}, err
		}
		var ele int16
		if h.withElevation {
			if ele, err = r.i16(); err != nil {
				return Segment{}, err
			}
		}

		lng, lat := geo.FromMercator(float64(x), float64(y))
		seg.Points = append(seg.Points, geometry.TrackSample{
			Longitude:          lng,
			Latitude:           lat,
			Elevation:          float64(ele),
			CumulativeDistance: float64(dist) * 10,
		})
	}
	return seg, nil
}

func (r *reader) waypoint() (geometry.Waypoint, error) {
	x, err := r.i32()
	if err != nil {
		return geometry.Waypoint{}, err
	}
	y, err := r.i32()
	if err != nil {
		return geometry.Waypoint{}, err
	}
	flag, err := r.u8()
	if err != nil {
		return geometry.Waypoint{}, err
	}

	var w geometry.Waypoint
	switch flag {
	case 'E':
		ele, err := r.i16()
		if err != nil {
			return geometry.Waypoint{}, err
		}
		w.Elevation, w.HasElevation = float64(ele), true
	case 'F':
	default:
		return geometry.Waypoint{}, r.fail(InvalidHeader, "unknown waypoint elevation flag")
	}

	sym, err := r.until('\n')
	if err != nil {
		return geometry.Waypoint{}, err
	}
	name, err := r.until('\n')
	if err != nil {
		return geometry.Waypoint{}, err
	}

	w.Longitude, w.Latitude = geo.FromMercator(float64(x), float64(y))
	w.Symbol = string(sym)
	w.Name = string(name)
	w.Category = geometry.CategoryFromSymbol(w.Symbol)
	return w, nil
}
