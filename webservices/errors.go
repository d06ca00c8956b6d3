package webservices

import (
	"net/http"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/mapsession"
	"github.com/jamesrr39/ownmapstyle/stylestore"
	"github.com/jamesrr39/ownmapstyle/styling"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

// statusForError maps known error causes to a status code. Anything else gets fallbackCode.
func statusForError(err errorsx.Error, fallbackCode int) int {
	switch errorsx.Cause(err) {
	case mapboxglstyle.ErrLayerNotFound,
		mapboxglstyle.ErrSourceNotFound,
		mapboxglstyle.ErrSlotNotFound,
		styling.ErrStyleNotFound,
		stylestore.ErrStyleNotFound:
		return http.StatusNotFound
	case mapboxglstyle.ErrLayerTypeMismatch,
		mapboxglstyle.ErrDuplicateID,
		mapboxglstyle.ErrSourceInUse,
		mapsession.ErrSourceTypeMismatch,
		mapsession.ErrStyleNotLoaded:
		return http.StatusConflict
	case expression.ErrMalformed,
		mapboxglstyle.ErrUnknownLayerType,
		mapboxglstyle.ErrUnknownSourceType,
		mapboxglstyle.ErrUnknownProperty,
		mapboxglstyle.ErrPositionOutOfRange:
		return http.StatusBadRequest
	default:
		return fallbackCode
	}
}

func writeError(w http.ResponseWriter, logger *logpkg.Logger, err errorsx.Error, fallbackCode int) {
	errorsx.HTTPJSONError(w, logger, err, statusForError(err, fallbackCode))
}
