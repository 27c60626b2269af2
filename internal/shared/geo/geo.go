package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"
)

// EarthRadius is the WGS84 semi-major axis, also the sphere radius of EPSG:3857.
const EarthRadius = 6378137.0

// HaversineKm returns the great-circle distance between two lat/lng pairs in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineM(lat1, lng1, lat2, lng2) / 1000
}

// HaversineM is HaversineKm in meters.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	return orbgeo.DistanceHaversine(orb.Point{lng1, lat1}, orb.Point{lng2, lat2})
}

// ToMercator converts WGS84 longitude/latitude to EPSG:3857 meters.
func ToMercator(lng, lat float64) (x, y float64) {
	p := project.WGS84.ToMercator(orb.Point{lng, lat})
	return p[0], p[1]
}

// FromMercator converts EPSG:3857 meters to WGS84 longitude/latitude.
func FromMercator(x, y float64) (lng, lat float64) {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1]
}
