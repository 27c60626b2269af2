package geometry

import "github.com/paulmach/orb"

// Kind is resolved once when a Feature is built so rendering never has to
// inspect the geometry type again.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindMultiLine
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "LineString"
	case KindMultiLine:
		return "MultiLineString"
	default:
		return "Point"
	}
}

type Style struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	Fill        string  `json:"fill,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	// Icon is a Font Awesome glyph; empty means a plain circle.
	Icon string `json:"icon,omitempty"`
}

const (
	markerFill   = "rgba(255, 255, 0, 0.8)"
	markerStroke = "rgba(0, 0, 255, 0.8)"
)

var pointStyles = map[Category]Style{
	Generic:    {Stroke: markerStroke, StrokeWidth: 3, Fill: markerFill, Radius: 5},
	Campground: {Stroke: markerStroke, StrokeWidth: 3, Fill: markerFill, Icon: "\uf6bb"},
	Shelter:    {Stroke: markerStroke, StrokeWidth: 3, Fill: markerFill, Icon: "\uf015"},
	Start:      {Stroke: markerStroke, StrokeWidth: 3, Fill: markerFill, Icon: "\uf3c5"},
	End:        {Stroke: markerStroke, StrokeWidth: 3, Fill: markerFill, Icon: "\uf787"},
	Hiker:      {Stroke: markerStroke, StrokeWidth: 3, Fill: markerFill, Icon: "\uf6ec"},
}

var (
	lineStyle      = Style{Stroke: "rgba(0, 0, 255, 0.7)", StrokeWidth: 3}
	multiLineStyle = Style{Stroke: "rgba(255, 0, 0, 0.7)", StrokeWidth: 3}
)

// StyleFor returns the style of a feature kind. The category only matters
// for points.
func StyleFor(kind Kind, cat Category) Style {
	switch kind {
	case KindLine:
		return lineStyle
	case KindMultiLine:
		return multiLineStyle
	}
	if s, ok := pointStyles[cat]; ok {
		return s
	}
	return pointStyles[Generic]
}

type Feature struct {
	kind     Kind
	category Category
	name     string
	geometry orb.Geometry
	style    Style
}

func NewPointFeature(w Waypoint) Feature {
	return Feature{
		kind:     KindPoint,
		category: w.Category,
		name:     w.Name,
		geometry: orb.Point{w.Longitude, w.Latitude},
		style:    StyleFor(KindPoint, w.Category),
	}
}

func NewLineFeature(p *Path) Feature {
	return Feature{kind: KindLine, geometry: p.LineString(), style: lineStyle}
}

// NewMultiLineFeature builds a multi-line feature, or a line feature when
// only one line is given.
func NewMultiLineFeature(lines []orb.LineString) Feature {
	if len(lines) == 1 {
		return Feature{kind: KindLine, geometry: lines[0], style: lineStyle}
	}
	return Feature{kind: KindMultiLine, geometry: orb.MultiLineString(lines), style: multiLineStyle}
}

func (f Feature) Kind() Kind             { return f.kind }
func (f Feature) Category() Category     { return f.category }
func (f Feature) Name() string           { return f.name }
func (f Feature) Geometry() orb.Geometry { return f.geometry }
func (f Feature) Style() Style           { return f.style }

// Markers synthesizes the Start and End waypoints of a path.
func Markers(p *Path) (start, end Waypoint) {
	first, last := p.First(), p.Last()
	start = Waypoint{
		Longitude: first.Longitude, Latitude: first.Latitude,
		Elevation: first.Elevation, HasElevation: true,
		Name: "Start", Category: Start,
	}
	end = Waypoint{
		Longitude: last.Longitude, Latitude: last.Latitude,
		Elevation: last.Elevation, HasElevation: true,
		Name: "End", Category: End,
	}
	return start, end
}

// HikerAt synthesizes the moving hiker marker at a sample.
func HikerAt(s TrackSample) Waypoint {
	return Waypoint{
		Longitude: s.Longitude, Latitude: s.Latitude,
		Elevation: s.Elevation, HasElevation: true,
		Name: FormatKilometers(s.CumulativeDistance), Category: Hiker,
	}
}
