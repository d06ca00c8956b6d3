package webservices

import (
	"encoding/json"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/mapsession"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/stylestore"
	"github.com/jamesrr39/ownmapstyle/styling"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

const (
	DefaultPreviewSize = 512
	MaxPreviewSize     = 4096
	maxBodyBytes       = 32 << 20
)

// StylesService edits the live styles of the style set. Each style is addressed by its ID.
type StylesService struct {
	logger   *logpkg.Logger
	styleSet *styling.StyleSet
	store    *stylestore.Store
	rasterer *rasterService
	chi.Router
}

// NewStylesService creates the service. store may be nil, in which case styles can't be saved.
func NewStylesService(logger *logpkg.Logger, styleSet *styling.StyleSet, store *stylestore.Store, rasterer *rasterService) *StylesService {
	ss := &StylesService{logger, styleSet, store, rasterer, chi.NewRouter()}

	ss.Route("/{styleId}", func(r chi.Router) {
		r.Get("/", ss.handleGetDocument)
		r.Post("/save", ss.handleSave)
		r.Get("/preview.png", ss.handleGetPreview)

		r.Get("/layers", ss.handleGetLayerIDs)
		r.Post("/layers", ss.handlePostLayer)
		r.Get("/layers/{layerId}", ss.handleGetLayer)
		r.Patch("/layers/{layerId}", ss.handlePatchLayer)
		r.Delete("/layers/{layerId}", ss.handleDeleteLayer)

		r.Get("/sources", ss.handleGetSourceIDs)
		r.Post("/sources", ss.handlePostSource)
		r.Get("/sources/{sourceId}", ss.handleGetSource)
		r.Delete("/sources/{sourceId}", ss.handleDeleteSource)
	})

	return ss
}

func (ss *StylesService) getSession(w http.ResponseWriter, r *http.Request) (*mapsession.Session, bool) {
	session, err := ss.styleSet.GetSessionByID(chi.URLParam(r, "styleId"))
	if err != nil {
		writeError(w, ss.logger, err, http.StatusNotFound)
		return nil, false
	}

	return session, true
}

func (ss *StylesService) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	style, err := session.Document()
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, style)
}

func (ss *StylesService) handleSave(w http.ResponseWriter, r *http.Request) {
	if ss.store == nil {
		errorsx.HTTPJSONError(w, ss.logger, errorsx.Errorf("no style store is configured"), http.StatusNotImplemented)
		return
	}

	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	style, err := session.Document()
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	err = ss.store.Save(style)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type layerIDsResponse struct {
	LayerIDs []string `json:"layerIds"`
}

func (ss *StylesService) handleGetLayerIDs(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	layerIDs, err := session.LayerIDs()
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, layerIDsResponse{layerIDs})
}

func (ss *StylesService) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	layer, err := session.Layer(chi.URLParam(r, "layerId"))
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, layer)
}

func (ss *StylesService) handlePostLayer(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	position, err := parseLayerPosition(r)
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	body, err := readBody(r)
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	layer, err := mapboxglstyle.UnmarshalLayer(body)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	err = session.AddLayer(layer, position)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	added, err := session.Layer(layer.Base().ID)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, added)
}

// layerPropertiesPatch is the body of a layer PATCH. A null value clears the property.
type layerPropertiesPatch struct {
	Paint  map[string]*mapboxglstyle.Value `json:"paint"`
	Layout map[string]*mapboxglstyle.Value `json:"layout"`
}

func (ss *StylesService) handlePatchLayer(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	layerID := chi.URLParam(r, "layerId")
	expectedType := mapboxglstyle.LayerType(r.URL.Query().Get("type"))

	body, err := readBody(r)
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	patch := new(layerPropertiesPatch)
	unmarshalErr := json.Unmarshal(body, patch)
	if unmarshalErr != nil {
		writeError(w, ss.logger, errorsx.Wrap(unmarshalErr), http.StatusBadRequest)
		return
	}

	layer, err := session.Layer(layerID)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	if expectedType != "" && layer.Type() != expectedType {
		writeError(w, ss.logger, errorsx.Wrap(mapsession.ErrLayerTypeMismatch, "id", layerID, "liveType", layer.Type(), "type", expectedType), http.StatusBadRequest)
		return
	}

	properties := make(map[string]*mapboxglstyle.Value)
	for group, values := range map[string]map[string]*mapboxglstyle.Value{"paint": patch.Paint, "layout": patch.Layout} {
		for name, value := range values {
			actualGroup, err := mapboxglstyle.PropertyGroup(layer, name)
			if err != nil {
				writeError(w, ss.logger, err, http.StatusBadRequest)
				return
			}

			if actualGroup != group {
				errorsx.HTTPJSONError(w, ss.logger, errorsx.Errorf("%q is a %s property, not a %s property", name, actualGroup, group), http.StatusBadRequest)
				return
			}

			properties[name] = value
		}
	}

	err = session.SetLayerProperties(layerID, expectedType, properties)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	updated, err := session.Layer(layerID)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, updated)
}

func (ss *StylesService) handleDeleteLayer(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	err := session.RemoveLayer(chi.URLParam(r, "layerId"))
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sourceIDsResponse struct {
	SourceIDs []string `json:"sourceIds"`
}

func (ss *StylesService) handleGetSourceIDs(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	sourceIDs, err := session.SourceIDs()
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, sourceIDsResponse{sourceIDs})
}

func (ss *StylesService) handleGetSource(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	source, err := session.Source(chi.URLParam(r, "sourceId"))
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, source)
}

// postSourceRequest carries the id alongside the source, since the source object itself has no id
type postSourceRequest struct {
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
}

func (ss *StylesService) handlePostSource(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	req := new(postSourceRequest)
	unmarshalErr := json.Unmarshal(body, req)
	if unmarshalErr != nil {
		errorsx.HTTPJSONError(w, ss.logger, errorsx.Wrap(unmarshalErr), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		errorsx.HTTPJSONError(w, ss.logger, errorsx.Errorf("source id must not be empty"), http.StatusBadRequest)
		return
	}

	source, err := mapboxglstyle.UnmarshalSource(req.ID, req.Source)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	err = session.AddSource(source)
	if err != nil {
		writeError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, source)
}

func (ss *StylesService) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	err := session.RemoveSource(chi.URLParam(r, "sourceId"))
	if err != nil {
		writeError(w, ss.logger, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetPreview renders the current style. Query params: zoom, bounds=(S,W,N,E), width, height.
func (ss *StylesService) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	session, ok := ss.getSession(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	zoomLevel, parseErr := strconv.ParseFloat(query.Get("zoom"), 64)
	if parseErr != nil {
		errorsx.HTTPJSONError(w, ss.logger, errorsx.Wrap(parseErr, "param", "zoom"), http.StatusBadRequest)
		return
	}

	bounds, err := offline.ParseBounds(query.Get("bounds"))
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, err, http.StatusBadRequest)
		return
	}

	width, err := parseSize(query.Get("width"))
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, errorsx.Wrap(err, "param", "width"), http.StatusBadRequest)
		return
	}

	height, err := parseSize(query.Get("height"))
	if err != nil {
		errorsx.HTTPJSONError(w, ss.logger, errorsx.Wrap(err, "param", "height"), http.StatusBadRequest)
		return
	}

	ss.rasterer.serveRaster(w, r, session, image.Rect(0, 0, width, height), bounds, zoomLevel)
}

func parseSize(str string) (int, errorsx.Error) {
	if str == "" {
		return DefaultPreviewSize, nil
	}

	size, err := strconv.Atoi(str)
	if err != nil {
		return 0, errorsx.Wrap(err)
	}

	if size < 1 || size > MaxPreviewSize {
		return 0, errorsx.Errorf("size must be between 1 and %d but was %d", MaxPreviewSize, size)
	}

	return size, nil
}

// parseLayerPosition reads at most one of the above, below, at or slot query params
func parseLayerPosition(r *http.Request) (mapboxglstyle.LayerPosition, errorsx.Error) {
	query := r.URL.Query()

	var positions []mapboxglstyle.LayerPosition
	if query.Has("above") {
		positions = append(positions, mapboxglstyle.Above(query.Get("above")))
	}
	if query.Has("below") {
		positions = append(positions, mapboxglstyle.Below(query.Get("below")))
	}
	if query.Has("slot") {
		positions = append(positions, mapboxglstyle.InSlot(query.Get("slot")))
	}
	if query.Has("at") {
		index, err := strconv.Atoi(query.Get("at"))
		if err != nil {
			return mapboxglstyle.LayerPosition{}, errorsx.Wrap(err, "param", "at")
		}
		positions = append(positions, mapboxglstyle.AtIndex(index))
	}

	switch len(positions) {
	case 0:
		return mapboxglstyle.Default(), nil
	case 1:
		return positions[0], nil
	default:
		return mapboxglstyle.LayerPosition{}, errorsx.Errorf("only one of above, below, at and slot can be given")
	}
}

func readBody(r *http.Request) ([]byte, errorsx.Error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return body, nil
}
