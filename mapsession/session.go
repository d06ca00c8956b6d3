package mapsession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrLayerNotFound      = mapboxglstyle.ErrLayerNotFound
	ErrLayerTypeMismatch  = mapboxglstyle.ErrLayerTypeMismatch
	ErrSourceNotFound     = mapboxglstyle.ErrSourceNotFound
	ErrSlotNotFound       = mapboxglstyle.ErrSlotNotFound
	ErrSourceTypeMismatch = errors.New("source type mismatch")
	ErrStyleNotLoaded     = errors.New("style not loaded")
)

// SourceDataLoader turns GeoJSON source data, inline or by URL, into features
type SourceDataLoader interface {
	Load(ctx context.Context, data *mapboxglstyle.GeoJSONData) (*geojson.FeatureCollection, errorsx.Error)
}

// Session owns the live copy of a style. Callers only ever see copies of its layers and sources;
// changes go back in through the session, which validates them before they become live.
type Session struct {
	id     string
	logger *logpkg.Logger
	loader SourceDataLoader
	events *EventStream

	mu    sync.Mutex
	style *mapboxglstyle.Style
}

// NewSession creates a session with no style loaded. loader may be nil, in which case only inline
// GeoJSON data can be resolved.
func NewSession(logger *logpkg.Logger, loader SourceDataLoader) *Session {
	return &Session{
		id:     uuid.New().String(),
		logger: logger,
		loader: loader,
		events: NewEventStream(64),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Events() *EventStream {
	return s.events
}

// LoadStyle submits a whole document. The session keeps its own copy, so later changes to doc have no effect.
// Loading again replaces the document.
func (s *Session) LoadStyle(ctx context.Context, doc *mapboxglstyle.Style) errorsx.Error {
	live, err := copyStyle(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	reload := s.style != nil
	s.style = live
	if reload {
		s.events.emit(EventStyleDataChanged, live.ID, "")
	} else {
		s.events.emit(EventStyleLoaded, live.ID, "")
	}
	s.mu.Unlock()

	s.logger.Info("session %s: loaded style %q (%d sources, %d layers)", s.id, live.ID, len(live.Sources), len(live.Layers))

	if reload {
		return nil
	}

	for _, sourceID := range live.SourceIDs() {
		if live.Sources[sourceID].Type() != mapboxglstyle.SourceTypeGeoJSON {
			continue
		}

		_, err := s.SourceFeatures(ctx, sourceID)
		if err != nil {
			s.logger.Warn("session %s: couldn't load data for source %q. Error: %s", s.id, sourceID, err)
			s.events.emit(EventMapLoadingError, sourceID, err.Error())
		}
	}

	s.events.emit(EventMapLoaded, live.ID, "")
	return nil
}

func (s *Session) IsStyleLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.style != nil
}

// Document exports a copy of the current style
func (s *Session) Document() (*mapboxglstyle.Style, errorsx.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.style == nil {
		return nil, errorsx.Wrap(ErrStyleNotLoaded, "session", s.id)
	}

	return copyStyle(s.style)
}

func (s *Session) AddSource(source mapboxglstyle.Source) errorsx.Error {
	return s.mutateStyle(EventSourceAdded, source.SourceID(), "", func(style *mapboxglstyle.Style) errorsx.Error {
		copied, err := mapboxglstyle.CloneSource(source)
		if err != nil {
			return err
		}
		return style.AddSource(copied)
	})
}

func (s *Session) Source(id string) (mapboxglstyle.Source, errorsx.Error) {
	var source mapboxglstyle.Source
	err := s.withStyle(func(style *mapboxglstyle.Style) errorsx.Error {
		live, err := style.Source(id)
		if err != nil {
			return err
		}

		source, err = mapboxglstyle.CloneSource(live)
		return err
	})
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *Session) SourceIDs() ([]string, errorsx.Error) {
	var ids []string
	err := s.withStyle(func(style *mapboxglstyle.Style) errorsx.Error {
		ids = style.SourceIDs()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveSource fails with mapboxglstyle.ErrSourceInUse while a layer references the source
func (s *Session) RemoveSource(id string) errorsx.Error {
	return s.mutateStyle(EventSourceRemoved, id, "", func(style *mapboxglstyle.Style) errorsx.Error {
		return style.RemoveSource(id)
	})
}

// UpdateGeoJSONSourceData swaps the data of a GeoJSON source
func (s *Session) UpdateGeoJSONSourceData(id string, data *mapboxglstyle.GeoJSONData) errorsx.Error {
	dataJSON, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		return errorsx.Wrap(marshalErr)
	}

	return s.mutateStyle(EventSourceDataChanged, id, "", func(style *mapboxglstyle.Style) errorsx.Error {
		live, err := style.Source(id)
		if err != nil {
			return err
		}

		geojsonSource, ok := live.(*mapboxglstyle.GeoJSONSource)
		if !ok {
			return errorsx.Wrap(ErrSourceTypeMismatch, "id", id, "liveType", live.Type(), "type", mapboxglstyle.SourceTypeGeoJSON)
		}

		copied := new(mapboxglstyle.GeoJSONData)
		unmarshalErr := json.Unmarshal(dataJSON, copied)
		if unmarshalErr != nil {
			return errorsx.Wrap(unmarshalErr)
		}

		geojsonSource.Data = copied
		return nil
	})
}

// SourceFeatures resolves the data of a GeoJSON source into features
func (s *Session) SourceFeatures(ctx context.Context, id string) (*geojson.FeatureCollection, errorsx.Error) {
	source, err := s.Source(id)
	if err != nil {
		return nil, err
	}

	geojsonSource, ok := source.(*mapboxglstyle.GeoJSONSource)
	if !ok {
		return nil, errorsx.Wrap(ErrSourceTypeMismatch, "id", id, "liveType", source.Type(), "type", mapboxglstyle.SourceTypeGeoJSON)
	}

	if geojsonSource.Data == nil {
		return geojson.NewFeatureCollection(), nil
	}

	if geojsonSource.Data.URL == "" {
		return geojsonSource.Data.Features(), nil
	}

	if s.loader == nil {
		return nil, errorsx.Errorf("source %q has remote data but the session has no data loader", id)
	}

	return s.loader.Load(ctx, geojsonSource.Data)
}

// AddLayer validates a copy of the layer and makes it live at position
func (s *Session) AddLayer(layer mapboxglstyle.Layer, position mapboxglstyle.LayerPosition) errorsx.Error {
	err := s.mutateStyle(EventLayerAdded, layer.Base().ID, "", func(style *mapboxglstyle.Style) errorsx.Error {
		copied, err := mapboxglstyle.CloneLayer(layer)
		if err != nil {
			return err
		}
		return style.AddLayer(copied, position)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("session %s: added layer %q (%s)", s.id, layer.Base().ID, position)
	return nil
}

// Layer returns a copy of the live layer
func (s *Session) Layer(id string) (mapboxglstyle.Layer, errorsx.Error) {
	var layer mapboxglstyle.Layer
	err := s.withStyle(func(style *mapboxglstyle.Style) errorsx.Error {
		live, err := style.Layer(id)
		if err != nil {
			return err
		}

		layer, err = mapboxglstyle.CloneLayer(live)
		return err
	})
	if err != nil {
		return nil, err
	}
	return layer, nil
}

// LayerIDs returns the live layer ids in draw order, bottom first
func (s *Session) LayerIDs() ([]string, errorsx.Error) {
	var ids []string
	err := s.withStyle(func(style *mapboxglstyle.Style) errorsx.Error {
		ids = style.LayerIDs()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Session) RemoveLayer(id string) errorsx.Error {
	return s.mutateStyle(EventLayerRemoved, id, "", func(style *mapboxglstyle.Style) errorsx.Error {
		return style.RemoveLayer(id)
	})
}

func (s *Session) MoveLayer(id string, position mapboxglstyle.LayerPosition) errorsx.Error {
	return s.mutateStyle(EventLayerUpdated, id, "moved "+position.String(), func(style *mapboxglstyle.Style) errorsx.Error {
		return style.MoveLayer(id, position)
	})
}

// SetLayerProperty sets one paint or layout property of a live layer. A nil value clears it.
func (s *Session) SetLayerProperty(id, name string, value *mapboxglstyle.Value) errorsx.Error {
	return s.SetLayerProperties(id, "", map[string]*mapboxglstyle.Value{name: value})
}

// SetLayerProperties sets several properties in one update. If expectedType is not empty, the live layer
// must be of that type. Either every property is applied or none is.
func (s *Session) SetLayerProperties(id string, expectedType mapboxglstyle.LayerType, properties map[string]*mapboxglstyle.Value) errorsx.Error {
	return s.updateLayer(id, func(layer mapboxglstyle.Layer) errorsx.Error {
		if expectedType != "" && layer.Type() != expectedType {
			return errorsx.Wrap(ErrLayerTypeMismatch, "id", id, "liveType", layer.Type(), "type", expectedType)
		}

		for name, value := range properties {
			err := mapboxglstyle.SetProperty(layer, name, value)
			if err != nil {
				return errorsx.Wrap(err, "id", id)
			}
		}
		return nil
	})
}

// updateLayer holds the lock across fetch, mutate and resubmit
func (s *Session) updateLayer(id string, mutate func(layer mapboxglstyle.Layer) errorsx.Error) errorsx.Error {
	return s.mutateStyle(EventLayerUpdated, id, "", func(style *mapboxglstyle.Style) errorsx.Error {
		live, err := style.Layer(id)
		if err != nil {
			return err
		}

		copied, err := mapboxglstyle.CloneLayer(live)
		if err != nil {
			return err
		}

		err = mutate(copied)
		if err != nil {
			return err
		}

		if copied.Base().ID != id {
			return errorsx.Errorf("a layer update cannot change the layer id (from %q to %q)", id, copied.Base().ID)
		}

		// resubmit the wire form, as a freshly added layer would be
		resubmitted, err := mapboxglstyle.CloneLayer(copied)
		if err != nil {
			return err
		}

		return style.ReplaceLayer(resubmitted)
	})
}

func (s *Session) withStyle(fn func(style *mapboxglstyle.Style) errorsx.Error) errorsx.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.style == nil {
		return errorsx.Wrap(ErrStyleNotLoaded, "session", s.id)
	}

	return fn(s.style)
}

// mutateStyle is withStyle for changes: when fn succeeds, the event is emitted before the lock is released,
// so the event stream has the same order as the changes
func (s *Session) mutateStyle(kind EventKind, id, message string, fn func(style *mapboxglstyle.Style) errorsx.Error) errorsx.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.style == nil {
		return errorsx.Wrap(ErrStyleNotLoaded, "session", s.id)
	}

	err := fn(s.style)
	if err != nil {
		return err
	}

	s.events.emit(kind, id, message)
	return nil
}

func copyStyle(style *mapboxglstyle.Style) (*mapboxglstyle.Style, errorsx.Error) {
	data, err := json.Marshal(style)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return mapboxglstyle.Parse(bytes.NewReader(data))
}
