package webservices

import (
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/osm"
)

// XYZToBounds returns the lat/lon bounds of a slippy map tile
func XYZToBounds(x, y, zoomLevel int) osm.Bounds {
	bound := maptile.New(uint32(x), uint32(y), maptile.Zoom(zoomLevel)).Bound()

	return osm.Bounds{
		MinLat: bound.Min.Lat(),
		MaxLat: bound.Max.Lat(),
		MinLon: bound.Min.Lon(),
		MaxLon: bound.Max.Lon(),
	}
}
