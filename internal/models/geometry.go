package models

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SRIDWGS84 is the spatial reference of school coordinates.
const SRIDWGS84 = 4326

// Point is a school location in WGS84.
// It serializes as a GeoJSON Point with [lng, lat] coordinate order.
type Point struct {
	g *geom.Point
}

// NewPoint builds a point from optional coordinates.
// It returns nil when either coordinate is missing.
func NewPoint(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &Point{g: geom.NewPointFlat(geom.XY, []float64{*lng, *lat}).SetSRID(SRIDWGS84)}
}

// Lat returns the latitude.
func (p *Point) Lat() float64 { return p.g.Y() }

// Lng returns the longitude.
func (p *Point) Lng() float64 { return p.g.X() }

// SRID returns the spatial reference id.
func (p *Point) SRID() int { return p.g.SRID() }

// MarshalJSON implements json.Marshaler for API responses.
func (p Point) MarshalJSON() ([]byte, error) {
	if p.g == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(p.g)
}

// UnmarshalJSON implements json.Unmarshaler for GeoJSON point input.
func (p *Point) UnmarshalJSON(data []byte) error {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("failed to unmarshal point: %w", err)
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return fmt.Errorf("expected Point type, got %T", g)
	}
	p.g = pt.SetSRID(SRIDWGS84)
	return nil
}
