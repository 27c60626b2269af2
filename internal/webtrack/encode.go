package webtrack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) check(v float64, lo, hi float64, what string) int64 {
	r := math.Round(v)
	if w.err == nil && (r < lo || r > hi || math.IsNaN(v)) {
		w.err = fmt.Errorf("%w: %s %v", ErrOutOfRange, what, v)
	}
	return int64(r)
}

func (w *writer) u8(v int, what string) {
	w.buf.WriteByte(byte(w.check(float64(v), 0, math.MaxUint8, what)))
}

func (w *writer) u16(v float64, what string) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(w.check(v, 0, math.MaxUint16, what))))
}

func (w *writer) i16(v float64, what string) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(int16(w.check(v, math.MinInt16, math.MaxInt16, what)))))
}

func (w *writer) u32(v float64, what string) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(w.check(v, 0, math.MaxUint32, what))))
}

func (w *writer) i32(v float64, what string) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(int32(w.check(v, math.MinInt32, math.MaxInt32, what)))))
}

// Encode writes t in the current binary version. Coordinates are projected
// to EPSG:3857 and every value is range-checked; nothing is written to out
// when a value does not fit its field.
func Encode(out io.Writer, t *Track) error {
	w := &writer{}

	w.buf.WriteString(FormatName + ":" + CurrentVersion + ":")
	w.u8(len(t.Segments), "segment count")
	w.u16(float64(len(t.Waypoints)), "waypoint count")

	for _, s := range t.Segments {
		if s.WithElevation {
			w.buf.WriteByte('E')
		} else {
			w.buf.WriteByte('F')
		}
		w.u32(float64(len(s.Points)), "point count")
	}

	w.u32(t.Info.Length, "length")
	w.i16(t.Info.MinAltitude, "minimum altitude")
	w.i16(t.Info.MaxAltitude, "maximum altitude")
	w.u32(t.Info.Gain, "elevation gain")
	w.u32(t.Info.Loss, "elevation loss")

	for _, s := range t.Segments {
		var px, py float64
		for i, p := range s.Points {
			x, y := geo.ToMercator(p.Longitude, p.Latitude)
			x, y = math.Round(x), math.Round(y)
			if i == 0 {
				w.i32(x, "x")
				w.i32(y, "y")
			} else {
				w.i16(x-px, "x delta")
				w.i16(y-py, "y delta")
			}
			px, py = x, y
			w.u16(p.CumulativeDistance/10, "distance")
			if s.WithElevation {
				w.i16(p.Elevation, "elevation")
			}
		}
	}

	for _, wp := range t.Waypoints {
		x, y := geo.ToMercator(wp.Longitude, wp.Latitude)
		w.i32(x, "waypoint x")
		w.i32(y, "waypoint y")
		if wp.HasElevation {
			w.buf.WriteByte('E')
			w.i16(wp.Elevation, "waypoint elevation")
		} else {
			w.buf.WriteByte('F')
		}
		w.buf.WriteString(cleanField(wp.Symbol))
		w.buf.WriteByte('\n')
		w.buf.WriteString(cleanField(wp.Name))
		w.buf.WriteByte('\n')
	}

	if w.err != nil {
		return w.err
	}
	_, err := out.Write(w.buf.Bytes())
	return err
}

// FromPath builds a single-segment track with header statistics derived
// from the path.
func FromPath(p *geometry.Path, waypoints []geometry.Waypoint) *Track {
	st := p.Statistics()
	return &Track{
		Format:    FormatName,
		Version:   CurrentVersion,
		Segments:  []Segment{{WithElevation: true, Points: p.Samples()}},
		Waypoints: waypoints,
		Info: TrackInfo{
			Length:      st.TotalLength,
			MinAltitude: st.MinElevation,
			MaxAltitude: st.MaxElevation,
			Gain:        st.Gain,
			Loss:        st.Loss,
		},
	}
}

func cleanField(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
