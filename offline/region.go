package offline

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/osm"
)

const (
	MaxZoom         = 22
	DefaultMaxTiles = 50000
)

// web mercator can't show the poles
const maxMercatorLat = 85.0511287798

// TileRegion is an area to download for offline use: every tile of the listed tiled sources
// that touches Bounds, for each zoom level from MinZoom to MaxZoom (inclusive).
// An empty SourceIDs list means every tiled source in the style.
type TileRegion struct {
	ID        string       `json:"id"`
	Bounds    osm.Bounds   `json:"bounds"`
	MinZoom   maptile.Zoom `json:"minZoom"`
	MaxZoom   maptile.Zoom `json:"maxZoom"`
	SourceIDs []string     `json:"sourceIds,omitempty"`
}

func (r *TileRegion) Validate() errorsx.Error {
	if r.ID == "" {
		return errorsx.Errorf("region id must not be empty")
	}

	if r.MaxZoom > MaxZoom {
		return errorsx.Errorf("max zoom must be at most %d but was %d", MaxZoom, r.MaxZoom)
	}

	if r.MinZoom > r.MaxZoom {
		return errorsx.Errorf("min zoom (%d) is greater than max zoom (%d)", r.MinZoom, r.MaxZoom)
	}

	b := r.Bounds
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return errorsx.Errorf("bounds must have a positive area: %#v", b)
	}

	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return errorsx.Errorf("bounds out of range: %#v", b)
	}

	return nil
}

// Tiles covers the region's bounds at every zoom level. maxTiles of 0 means DefaultMaxTiles.
func (r *TileRegion) Tiles(maxTiles int) ([]maptile.Tile, errorsx.Error) {
	err := r.Validate()
	if err != nil {
		return nil, err
	}

	if maxTiles == 0 {
		maxTiles = DefaultMaxTiles
	}

	count := r.TileCount()
	if count > maxTiles {
		return nil, errorsx.Errorf("region %q covers %d tiles, which is more than the limit of %d", r.ID, count, maxTiles)
	}

	tiles := make([]maptile.Tile, 0, count)
	for z := r.MinZoom; z <= r.MaxZoom; z++ {
		minTile, maxTile := r.cornerTiles(z)
		for x := minTile.X; x <= maxTile.X; x++ {
			for y := minTile.Y; y <= maxTile.Y; y++ {
				tiles = append(tiles, maptile.New(x, y, z))
			}
		}
	}

	return tiles, nil
}

// TileCount is the amount of tiles (per source) in the region
func (r *TileRegion) TileCount() int {
	count := 0
	for z := r.MinZoom; z <= r.MaxZoom; z++ {
		minTile, maxTile := r.cornerTiles(z)
		count += int(maxTile.X-minTile.X+1) * int(maxTile.Y-minTile.Y+1)
	}
	return count
}

// cornerTiles returns the north-west and south-east tiles. Tile y numbers increase southwards.
func (r *TileRegion) cornerTiles(z maptile.Zoom) (maptile.Tile, maptile.Tile) {
	north := math.Min(r.Bounds.MaxLat, maxMercatorLat)
	south := math.Max(r.Bounds.MinLat, -maxMercatorLat)

	east := math.Min(r.Bounds.MaxLon, 180-1e-9)

	northWest := maptile.At(orb.Point{r.Bounds.MinLon, north}, z)
	southEast := maptile.At(orb.Point{east, south}, z)

	maxIndex := uint32(1)<<uint32(z) - 1
	if southEast.X > maxIndex {
		southEast.X = maxIndex
	}
	if southEast.Y > maxIndex {
		southEast.Y = maxIndex
	}
	// an eastern bound exactly on a tile edge doesn't reach into the next tile
	if southEast.X > northWest.X && southEast.Bound().Min.Lon() == r.Bounds.MaxLon {
		southEast.X--
	}

	return northWest, southEast
}

// TiledSource is a style source with tile URL templates
type TiledSource struct {
	ID    string
	Type  mapboxglstyle.SourceType
	Tiles []string
}

// TiledSources picks the sources in the style that can be downloaded tile by tile.
// If ids is not empty, only those sources are returned, and every one of them must be tiled.
func TiledSources(style *mapboxglstyle.Style, ids []string) ([]TiledSource, errorsx.Error) {
	var tiledSources []TiledSource
	for _, id := range style.SourceIDs() {
		source, err := style.Source(id)
		if err != nil {
			return nil, err
		}

		var params *mapboxglstyle.TileParams
		switch s := source.(type) {
		case *mapboxglstyle.VectorSource:
			params = &s.TileParams
		case *mapboxglstyle.RasterSource:
			params = &s.TileParams
		case *mapboxglstyle.RasterDEMSource:
			params = &s.TileParams
		}

		if params == nil || len(params.Tiles) == 0 {
			continue
		}

		tiledSources = append(tiledSources, TiledSource{id, source.Type(), params.Tiles})
	}

	if len(ids) == 0 {
		return tiledSources, nil
	}

	byID := make(map[string]TiledSource)
	for _, tiledSource := range tiledSources {
		byID[tiledSource.ID] = tiledSource
	}

	var wanted []TiledSource
	for _, id := range ids {
		tiledSource, ok := byID[id]
		if !ok {
			return nil, errorsx.Errorf("source %q is not a tiled source with tile URLs in this style", id)
		}
		wanted = append(wanted, tiledSource)
	}

	sort.Slice(wanted, func(a, b int) bool {
		return wanted[a].ID < wanted[b].ID
	})

	return wanted, nil
}

// TileURL fills in a tile URL template. Templates may hold several hosts' URLs; they are spread across tiles.
func (s TiledSource) TileURL(tile maptile.Tile) string {
	template := s.Tiles[int(tile.X+tile.Y)%len(s.Tiles)]

	replacer := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(tile.Z), 10),
		"{x}", strconv.FormatUint(uint64(tile.X), 10),
		"{y}", strconv.FormatUint(uint64(tile.Y), 10),
	)
	return replacer.Replace(template)
}

// ParseBounds parses "S,W,N,E", optionally in brackets, e.g. "(61.5,8.0,61.7,8.4)"
func ParseBounds(boundsString string) (osm.Bounds, errorsx.Error) {
	bounds := osm.Bounds{}

	withoutBrackets := strings.TrimPrefix(strings.TrimSuffix(boundsString, ")"), "(")
	fragments := strings.Split(withoutBrackets, ",")
	if len(fragments) != 4 {
		return bounds, errorsx.Errorf("expected 4 bounds, but got %d. Bounds should be in the format '(S,W,N,E)'", len(fragments))
	}

	for index, fragment := range fragments {
		coordinate, err := strconv.ParseFloat(strings.TrimSpace(fragment), 64)
		if err != nil {
			return bounds, errorsx.Wrap(err, "index", index)
		}

		switch index {
		case 0:
			bounds.MinLat = coordinate
		case 1:
			bounds.MinLon = coordinate
		case 2:
			bounds.MaxLat = coordinate
		case 3:
			bounds.MaxLon = coordinate
		}
	}

	return bounds, nil
}
