package mapboxglstyle

import (
	"bytes"
	"encoding/json"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type SourceType string

const (
	SourceTypeGeoJSON   SourceType = "geojson"
	SourceTypeVector    SourceType = "vector"
	SourceTypeRaster    SourceType = "raster"
	SourceTypeRasterDEM SourceType = "raster-dem"
	SourceTypeImage     SourceType = "image"
	SourceTypeModel     SourceType = "model"
)

// Source is implemented by *GeoJSONSource, *VectorSource, *RasterSource, *RasterDEMSource,
// *ImageSource and *ModelSource.
type Source interface {
	Type() SourceType
	SourceID() string
	source()
}

// SourceBase holds the id. The id is the key in the style's "sources" object, so it is not part of the source JSON.
type SourceBase struct {
	ID string `json:"-"`
}

func (b *SourceBase) SourceID() string {
	return b.ID
}

func (b *SourceBase) source() {}

// TileParams are shared by tiled sources
type TileParams struct {
	URL         string    `json:"url,omitempty"`
	Tiles       []string  `json:"tiles,omitempty"`
	Bounds      []float64 `json:"bounds,omitempty"`
	Scheme      string    `json:"scheme,omitempty"`
	MinZoom     *float64  `json:"minzoom,omitempty"`
	MaxZoom     *float64  `json:"maxzoom,omitempty"`
	Attribution string    `json:"attribution,omitempty"`
	Volatile    bool      `json:"volatile,omitempty"`
}

type GeoJSONSource struct {
	SourceBase
	Data              *GeoJSONData           `json:"data,omitempty"`
	MaxZoom           *float64               `json:"maxzoom,omitempty"`
	Attribution       string                 `json:"attribution,omitempty"`
	Buffer            *int                   `json:"buffer,omitempty"`
	Tolerance         *float64               `json:"tolerance,omitempty"`
	Cluster           bool                   `json:"cluster,omitempty"`
	ClusterRadius     *int                   `json:"clusterRadius,omitempty"`
	ClusterMaxZoom    *float64               `json:"clusterMaxZoom,omitempty"`
	ClusterMinPoints  *int                   `json:"clusterMinPoints,omitempty"`
	ClusterProperties map[string]interface{} `json:"clusterProperties,omitempty"`
	LineMetrics       bool                   `json:"lineMetrics,omitempty"`
	GenerateID        bool                   `json:"generateId,omitempty"`
	PromoteID         interface{}            `json:"promoteId,omitempty"`
}

func NewGeoJSONSource(id string, data *GeoJSONData) *GeoJSONSource {
	return &GeoJSONSource{SourceBase: SourceBase{ID: id}, Data: data}
}

func (s *GeoJSONSource) Type() SourceType { return SourceTypeGeoJSON }

func (s *GeoJSONSource) MarshalJSON() ([]byte, error) {
	type plain GeoJSONSource
	return marshalSource(s.Type(), (*plain)(s))
}

type VectorSource struct {
	SourceBase
	TileParams
	PromoteID interface{} `json:"promoteId,omitempty"`
}

func NewVectorSource(id string, tiles ...string) *VectorSource {
	return &VectorSource{SourceBase: SourceBase{ID: id}, TileParams: TileParams{Tiles: tiles}}
}

func (s *VectorSource) Type() SourceType { return SourceTypeVector }

func (s *VectorSource) MarshalJSON() ([]byte, error) {
	type plain VectorSource
	return marshalSource(s.Type(), (*plain)(s))
}

type RasterSource struct {
	SourceBase
	TileParams
	TileSize int `json:"tileSize,omitempty"`
}

func NewRasterSource(id string, tileSize int, tiles ...string) *RasterSource {
	return &RasterSource{SourceBase: SourceBase{ID: id}, TileParams: TileParams{Tiles: tiles}, TileSize: tileSize}
}

func (s *RasterSource) Type() SourceType { return SourceTypeRaster }

func (s *RasterSource) MarshalJSON() ([]byte, error) {
	type plain RasterSource
	return marshalSource(s.Type(), (*plain)(s))
}

type RasterDEMSource struct {
	SourceBase
	TileParams
	TileSize int    `json:"tileSize,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

func (s *RasterDEMSource) Type() SourceType { return SourceTypeRasterDEM }

func (s *RasterDEMSource) MarshalJSON() ([]byte, error) {
	type plain RasterDEMSource
	return marshalSource(s.Type(), (*plain)(s))
}

type ImageSource struct {
	SourceBase
	URL string `json:"url"`
	// top left, top right, bottom right, bottom left; [lon, lat]
	Coordinates [4][2]float64 `json:"coordinates"`
}

func (s *ImageSource) Type() SourceType { return SourceTypeImage }

func (s *ImageSource) MarshalJSON() ([]byte, error) {
	type plain ImageSource
	return marshalSource(s.Type(), (*plain)(s))
}

type Model struct {
	URI         string     `json:"uri"`
	Position    [2]float64 `json:"position,omitempty"`
	Orientation [3]float64 `json:"orientation,omitempty"`
}

type ModelSource struct {
	SourceBase
	Models map[string]Model `json:"models,omitempty"`
}

func (s *ModelSource) Type() SourceType { return SourceTypeModel }

func (s *ModelSource) MarshalJSON() ([]byte, error) {
	type plain ModelSource
	return marshalSource(s.Type(), (*plain)(s))
}

func newSource(sourceType SourceType, id string) (Source, errorsx.Error) {
	switch sourceType {
	case SourceTypeGeoJSON:
		return &GeoJSONSource{SourceBase: SourceBase{id}}, nil
	case SourceTypeVector:
		return &VectorSource{SourceBase: SourceBase{id}}, nil
	case SourceTypeRaster:
		return &RasterSource{SourceBase: SourceBase{id}}, nil
	case SourceTypeRasterDEM:
		return &RasterDEMSource{SourceBase: SourceBase{id}}, nil
	case SourceTypeImage:
		return &ImageSource{SourceBase: SourceBase{id}}, nil
	case SourceTypeModel:
		return &ModelSource{SourceBase: SourceBase{id}}, nil
	default:
		return nil, errorsx.Wrap(ErrUnknownSourceType, "type", sourceType, "id", id)
	}
}

// UnmarshalSource decodes a source object. The id is not part of the object, so it is passed in.
func UnmarshalSource(id string, data []byte) (Source, errorsx.Error) {
	var header struct {
		Type SourceType `json:"type"`
	}
	err := json.Unmarshal(data, &header)
	if err != nil {
		return nil, errorsx.Wrap(err, "id", id)
	}

	source, err := newSource(header.Type, id)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	err = json.Unmarshal(data, source)
	if err != nil {
		return nil, errorsx.Wrap(err, "id", id)
	}

	return source, nil
}

func CloneSource(source Source) (Source, errorsx.Error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}
	return UnmarshalSource(source.SourceID(), data)
}

func marshalSource(sourceType SourceType, source interface{}) ([]byte, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	err = json.Unmarshal(data, &fields)
	if err != nil {
		return nil, err
	}

	fields["type"], err = json.Marshal(sourceType)
	if err != nil {
		return nil, err
	}

	return json.Marshal(fields)
}

// GeoJSONData is the "data" of a GeoJSON source: a URL, or inline GeoJSON.
// Exactly one field is set.
type GeoJSONData struct {
	URL               string
	FeatureCollection *geojson.FeatureCollection
	Feature           *geojson.Feature
	Geometry          orb.Geometry
}

func GeoJSONDataFromURL(url string) *GeoJSONData {
	return &GeoJSONData{URL: url}
}

func GeoJSONDataFromFeatures(features ...*geojson.Feature) *GeoJSONData {
	fc := geojson.NewFeatureCollection()
	for _, feature := range features {
		fc.Append(feature)
	}
	return &GeoJSONData{FeatureCollection: fc}
}

func (d *GeoJSONData) MarshalJSON() ([]byte, error) {
	switch {
	case d.URL != "":
		return json.Marshal(d.URL)
	case d.FeatureCollection != nil:
		return json.Marshal(d.FeatureCollection)
	case d.Feature != nil:
		return json.Marshal(d.Feature)
	case d.Geometry != nil:
		return json.Marshal(geojson.NewGeometry(d.Geometry))
	default:
		return json.Marshal(geojson.NewFeatureCollection())
	}
}

func (d *GeoJSONData) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*d = GeoJSONData{}
		return json.Unmarshal(data, &d.URL)
	}

	var header struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(data, &header)
	if err != nil {
		return err
	}

	switch header.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return err
		}
		*d = GeoJSONData{FeatureCollection: fc}
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return err
		}
		*d = GeoJSONData{Feature: feature}
	default:
		geometry, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return err
		}
		*d = GeoJSONData{Geometry: geometry.Geometry()}
	}

	return nil
}

// Features returns the inline data as a feature collection. URL data has no inline features.
func (d *GeoJSONData) Features() *geojson.FeatureCollection {
	switch {
	case d == nil || d.URL != "":
		return nil
	case d.FeatureCollection != nil:
		return d.FeatureCollection
	case d.Feature != nil:
		fc := geojson.NewFeatureCollection()
		fc.Append(d.Feature)
		return fc
	case d.Geometry != nil:
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(d.Geometry))
		return fc
	default:
		return geojson.NewFeatureCollection()
	}
}
