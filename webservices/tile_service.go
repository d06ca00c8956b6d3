package webservices

import (
	"image"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/styling"
)

const TileSize = 256

type TileService struct {
	logger   *logpkg.Logger
	styleSet *styling.StyleSet
	rasterer *rasterService
	chi.Router
}

// NewTileService serves raster tiles of a style at /raster/{z}/{x}/{y}?styleId=. Without a styleId, the default style is used.
func NewTileService(logger *logpkg.Logger, styleSet *styling.StyleSet, rasterer *rasterService) *TileService {
	ts := &TileService{logger, styleSet, rasterer, chi.NewRouter()}

	ts.Get("/raster/{z}/{x}/{y}", ts.handleGetTile)

	return ts
}

func (ts *TileService) handleGetTile(w http.ResponseWriter, r *http.Request) {
	x := chi.URLParam(r, "x")
	y := chi.URLParam(r, "y")
	zStr := chi.URLParam(r, "z")
	styleID := r.URL.Query().Get("styleId")

	ints, err := stringsToInts(x, y, zStr)
	if err != nil {
		errorsx.HTTPError(w, ts.logger, errorsx.Wrap(err), http.StatusBadRequest)
		return
	}

	z := ints[2]
	if z < 0 || z > int(offline.MaxZoom) {
		errorsx.HTTPError(w, ts.logger, errorsx.Errorf("zoom level %d out of range", z), http.StatusBadRequest)
		return
	}

	maxIndex := 1<<uint(z) - 1
	if ints[0] < 0 || ints[0] > maxIndex || ints[1] < 0 || ints[1] > maxIndex {
		errorsx.HTTPError(w, ts.logger, errorsx.Errorf("tile %d/%d/%d does not exist", z, ints[0], ints[1]), http.StatusBadRequest)
		return
	}

	session, sessionErr := ts.styleSet.GetSessionByID(styleID)
	if sessionErr != nil {
		writeError(w, ts.logger, sessionErr, http.StatusBadRequest)
		return
	}

	bounds := XYZToBounds(ints[0], ints[1], z)
	ts.logger.Debug("serving x, y, z: %s %s %s. Bounds (NW, SE): [%f %f, %f %f]", x, y, zStr, bounds.MaxLat, bounds.MinLon, bounds.MinLat, bounds.MaxLon)

	ts.rasterer.serveRaster(w, r, session, image.Rect(0, 0, TileSize, TileSize), bounds, float64(z))
}

func stringsToInts(s ...string) ([]int, error) {
	var ints []int
	for _, str := range s {
		i, err := strconv.Atoi(str)
		if err != nil {
			return nil, err
		}
		ints = append(ints, i)
	}

	return ints, nil
}
