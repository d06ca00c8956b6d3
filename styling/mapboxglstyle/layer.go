package mapboxglstyle

import (
	"encoding/json"
	"reflect"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
)

type LayerType string

const (
	LayerTypeBackground    LayerType = "background"
	LayerTypeFill          LayerType = "fill"
	LayerTypeLine          LayerType = "line"
	LayerTypeSymbol        LayerType = "symbol"
	LayerTypeRaster        LayerType = "raster"
	LayerTypeCircle        LayerType = "circle"
	LayerTypeFillExtrusion LayerType = "fill-extrusion"
	LayerTypeHeatmap       LayerType = "heatmap"
	LayerTypeHillshade     LayerType = "hillshade"
	LayerTypeSky           LayerType = "sky"
	LayerTypeModel         LayerType = "model"
	LayerTypeSlot          LayerType = "slot"
)

// RequiresSource reports whether layers of this type must reference a source
func (t LayerType) RequiresSource() bool {
	switch t {
	case LayerTypeBackground, LayerTypeSky, LayerTypeSlot:
		return false
	default:
		return true
	}
}

// Layer is implemented by the concrete layer kinds in this package: *BackgroundLayer, *FillLayer,
// *LineLayer, *SymbolLayer, *RasterLayer, *CircleLayer, *FillExtrusionLayer, *HeatmapLayer,
// *HillshadeLayer, *SkyLayer, *ModelLayer and *SlotLayer.
type Layer interface {
	Type() LayerType
	Base() *LayerBase
	layer()
}

type LayerBase struct {
	ID          string                 `json:"id"`
	Source      string                 `json:"source,omitempty"`
	SourceLayer string                 `json:"source-layer,omitempty"`
	Slot        string                 `json:"slot,omitempty"`
	MinZoom     *float64               `json:"minzoom,omitempty"`
	MaxZoom     *float64               `json:"maxzoom,omitempty"`
	Filter      *expression.Expression `json:"filter,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

func (b *LayerBase) Base() *LayerBase {
	return b
}

func (b *LayerBase) layer() {}

type Visibility string

const (
	VisibilityVisible Visibility = "visible"
	VisibilityNone    Visibility = "none"
)

type CommonLayout struct {
	Visibility Visibility `json:"visibility,omitempty"`
}

// NewLayer returns an empty layer of the given type
func NewLayer(layerType LayerType, id string) (Layer, errorsx.Error) {
	var layer Layer
	switch layerType {
	case LayerTypeBackground:
		layer = &BackgroundLayer{}
	case LayerTypeFill:
		layer = &FillLayer{}
	case LayerTypeLine:
		layer = &LineLayer{}
	case LayerTypeSymbol:
		layer = &SymbolLayer{}
	case LayerTypeRaster:
		layer = &RasterLayer{}
	case LayerTypeCircle:
		layer = &CircleLayer{}
	case LayerTypeFillExtrusion:
		layer = &FillExtrusionLayer{}
	case LayerTypeHeatmap:
		layer = &HeatmapLayer{}
	case LayerTypeHillshade:
		layer = &HillshadeLayer{}
	case LayerTypeSky:
		layer = &SkyLayer{}
	case LayerTypeModel:
		layer = &ModelLayer{}
	case LayerTypeSlot:
		layer = &SlotLayer{}
	default:
		return nil, errorsx.Wrap(ErrUnknownLayerType, "type", layerType, "id", id)
	}

	layer.Base().ID = id
	return layer, nil
}

// UnmarshalLayer decodes a layer object, choosing the concrete kind from its "type" field
func UnmarshalLayer(data []byte) (Layer, errorsx.Error) {
	var header struct {
		ID   string    `json:"id"`
		Type LayerType `json:"type"`
	}
	err := json.Unmarshal(data, &header)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	layer, err := NewLayer(header.Type, header.ID)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	err = json.Unmarshal(data, layer)
	if err != nil {
		return nil, errorsx.Wrap(err, "id", header.ID)
	}

	normalizeStringArrays(layer)

	return layer, nil
}

// CloneLayer returns a deep copy of layer, made by a round trip through the wire form
func CloneLayer(layer Layer) (Layer, errorsx.Error) {
	data, err := json.Marshal(layer)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return UnmarshalLayer(data)
}

func marshalLayer(layerType LayerType, layer interface{}) ([]byte, error) {
	data, err := json.Marshal(layer)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	err = json.Unmarshal(data, &fields)
	if err != nil {
		return nil, err
	}

	typeJSON, err := json.Marshal(layerType)
	if err != nil {
		return nil, err
	}
	fields["type"] = typeJSON

	for _, key := range []string{"paint", "layout"} {
		if string(fields[key]) == "{}" {
			delete(fields, key)
		}
	}

	return json.Marshal(fields)
}

// ValidateLayer checks the id, the zoom range, the filter and every expression-valued property
func ValidateLayer(layer Layer) errorsx.Error {
	base := layer.Base()
	if base.ID == "" {
		return errorsx.Errorf("layer id must not be empty")
	}

	if base.MinZoom != nil && (*base.MinZoom < 0 || *base.MinZoom > 24) {
		return errorsx.Errorf("min zoom must be between 0 and 24 (inclusive) but was %f (layer %q)", *base.MinZoom, base.ID)
	}

	if base.MaxZoom != nil && (*base.MaxZoom < 0 || *base.MaxZoom > 24) {
		return errorsx.Errorf("max zoom must be between 0 and 24 (inclusive) but was %f (layer %q)", *base.MaxZoom, base.ID)
	}

	if base.MaxZoom != nil && base.MinZoom != nil && *base.MaxZoom < *base.MinZoom {
		return errorsx.Errorf("max zoom is smaller than min zoom (layer %q)", base.ID)
	}

	if layer.Type() == LayerTypeSlot && base.Slot != "" {
		return errorsx.Errorf("slot layer %q cannot itself be placed in a slot", base.ID)
	}

	if base.Filter != nil {
		err := expression.Validate(base.Filter)
		if err != nil {
			return errorsx.Wrap(err, "layer", base.ID, "property", "filter")
		}
	}

	for _, property := range layerProperties(layer) {
		value, ok := property.value.Interface().(*Value)
		if !ok {
			continue
		}

		err := value.Validate()
		if err != nil {
			return errorsx.Wrap(err, "layer", base.ID, "property", property.name)
		}
	}

	return nil
}

// VisibilityOf returns the layout visibility of a layer; layers without a layout are always visible
func VisibilityOf(layer Layer) Visibility {
	for _, property := range layerProperties(layer) {
		if property.name == "visibility" {
			visibility := property.value.Interface().(Visibility)
			if visibility == VisibilityNone {
				return VisibilityNone
			}
		}
	}
	return VisibilityVisible
}

// IsVisibleAtZoom reports whether the layer is visible and zoomLevel is within its zoom range.
// The max zoom is exclusive.
func IsVisibleAtZoom(layer Layer, zoomLevel float64) bool {
	base := layer.Base()
	if base.MinZoom != nil && zoomLevel < *base.MinZoom {
		return false
	}
	if base.MaxZoom != nil && zoomLevel >= *base.MaxZoom {
		return false
	}
	return VisibilityOf(layer) == VisibilityVisible
}

type layerProperty struct {
	name  string
	group string // "paint" or "layout"
	value reflect.Value
}

// layerProperties lists the paint and layout fields of a concrete layer, keyed by their style property names
func layerProperties(layer Layer) []layerProperty {
	layerValue := reflect.ValueOf(layer)
	if layerValue.Kind() != reflect.Ptr || layerValue.IsNil() {
		return nil
	}
	layerValue = layerValue.Elem()

	var properties []layerProperty
	for _, group := range []string{"Paint", "Layout"} {
		groupValue := layerValue.FieldByName(group)
		if !groupValue.IsValid() {
			continue
		}

		for _, field := range reflect.VisibleFields(groupValue.Type()) {
			if field.Anonymous {
				continue
			}
			name := jsonName(field)
			if name == "" {
				continue
			}
			properties = append(properties, layerProperty{
				name:  name,
				group: jsonName(mustField(layerValue.Type(), group)),
				value: groupValue.FieldByIndex(field.Index),
			})
		}
	}

	return properties
}

func mustField(structType reflect.Type, name string) reflect.StructField {
	field, _ := structType.FieldByName(name)
	return field
}

func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	for i, c := range tag {
		if c == ',' {
			return tag[:i]
		}
	}
	return tag
}
