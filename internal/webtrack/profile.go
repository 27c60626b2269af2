package webtrack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/ExploreWilder/MainWebsite/internal/geometry"
	"github.com/ExploreWilder/MainWebsite/internal/shared/geo"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var (
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	zstdEncoder, _ = zstd.NewWriter(nil)
)

// legacyProfile is the compressed JSON document served before the binary
// format existed. Coordinates are EPSG:3857 meters.
type legacyProfile struct {
	// [elevation, distance, x, y]
	Profile    [][4]float64     `json:"profile"`
	Waypoints  []legacyWaypoint `json:"waypoints"`
	Statistics TrackInfo        `json:"statistics"`
}

// legacyWaypoint is encoded as [name, sym, x, y].
type legacyWaypoint struct {
	Name, Sym string
	X, Y      float64
}

func (w legacyWaypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{w.Name, w.Sym, w.X, w.Y})
}

func (w *legacyWaypoint) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("waypoint: expected 4 fields, got %d", len(raw))
	}
	var ok [4]bool
	w.Name, ok[0] = raw[0].(string)
	w.Sym, ok[1] = raw[1].(string)
	w.X, ok[2] = raw[2].(float64)
	w.Y, ok[3] = raw[3].(float64)
	if raw[1] == nil {
		ok[1] = true
	}
	for _, v := range ok {
		if !v {
			return errors.New("waypoint: unexpected field type")
		}
	}
	return nil
}

// DecodeProfile parses the zstd compressed JSON profile.
func DecodeProfile(b []byte) (*Track, error) {
	if !bytes.HasPrefix(b, zstdMagic) {
		if len(b) < len(zstdMagic) && bytes.HasPrefix(zstdMagic, b) {
			return nil, &DecodeError{Kind: Truncated, Section: "profile"}
		}
		return nil, &DecodeError{Kind: InvalidHeader, Section: "profile", Detail: "not zstd compressed"}
	}
	raw, err := zstdDecoder.DecodeAll(b, nil)
	if err != nil {
		kind := InvalidHeader
		if errors.Is(err, io.ErrUnexpectedEOF) {
			kind = Truncated
		}
		return nil, &DecodeError{Kind: kind, Section: "profile", Detail: err.Error()}
	}

	var lp legacyProfile
	if err := json.Unmarshal(raw, &lp); err != nil {
		return nil, &DecodeError{Kind: InvalidHeader, Section: "profile", Detail: err.Error()}
	}

	seg := Segment{WithElevation: true, Points: make([]geometry.TrackSample, len(lp.Profile))}
	for i, p := range lp.Profile {
		lng, lat := geo.FromMercator(p[2], p[3])
		seg.Points[i] = geometry.TrackSample{Longitude: lng, Latitude: lat, Elevation: p[0], CumulativeDistance: p[1]}
	}

	t := &Track{
		Format:    "profile",
		Version:   "legacy",
		Segments:  []Segment{seg},
		Waypoints: make([]geometry.Waypoint, len(lp.Waypoints)),
		Info:      lp.Statistics,
	}
	for i, w := range lp.Waypoints {
		lng, lat := geo.FromMercator(w.X, w.Y)
		t.Waypoints[i] = geometry.Waypoint{
			Longitude: lng, Latitude: lat,
			Name: w.Name, Symbol: w.Sym,
			Category: geometry.CategoryFromSymbol(w.Sym),
		}
	}
	return t, nil
}

// EncodeProfile writes the track in the compressed JSON layout.
func EncodeProfile(t *Track) ([]byte, error) {
	var lp legacyProfile
	for _, s := range t.Samples() {
		x, y := geo.ToMercator(s.Longitude, s.Latitude)
		lp.Profile = append(lp.Profile, [4]float64{s.Elevation, s.CumulativeDistance, x, y})
	}
	for _, w := range t.Waypoints {
		x, y := geo.ToMercator(w.Longitude, w.Latitude)
		lp.Waypoints = append(lp.Waypoints, legacyWaypoint{Name: w.Name, Sym: w.Symbol, X: x, Y: y})
	}
	lp.Statistics = t.Info

	raw, err := json.Marshal(lp)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// DecodeResponse picks the decoder from the response content type, falling
// back to the leading magic bytes when the type is missing or generic.
func DecodeResponse(contentType string, b []byte) (*Track, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case ContentType:
		return Decode(b)
	case ProfileContentType:
		return DecodeProfile(b)
	}
	if bytes.HasPrefix(b, zstdMagic) {
		return DecodeProfile(b)
	}
	return Decode(b)
}
