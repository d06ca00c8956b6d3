package mapboxglstyle

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/jamesrr39/goutil/errorsx"
)

const StyleVersion = 8

type Style struct {
	Version    int                    `json:"version"`
	ID         string                 `json:"id,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Center     []float64              `json:"center,omitempty"`
	Zoom       *float64               `json:"zoom,omitempty"`
	Bearing    *float64               `json:"bearing,omitempty"`
	Pitch      *float64               `json:"pitch,omitempty"`
	Light      *Light                 `json:"light,omitempty"`
	Sprite     string                 `json:"sprite,omitempty"`
	Glyphs     string                 `json:"glyphs,omitempty"`
	Transition *Transition            `json:"transition,omitempty"`
	Sources    map[string]Source      `json:"sources"`
	Layers     []Layer                `json:"layers"`
}

type Light struct {
	Anchor    string `json:"anchor,omitempty"`
	Color     *Value `json:"color,omitempty"`
	Intensity *Value `json:"intensity,omitempty"`
	Position  *Value `json:"position,omitempty"`
}

type Transition struct {
	Delay    int `json:"delay"`    // milliseconds
	Duration int `json:"duration"` // milliseconds
}

func NewStyle(id, name string) *Style {
	return &Style{
		Version: StyleVersion,
		ID:      id,
		Name:    name,
		Sources: make(map[string]Source),
		Layers:  []Layer{},
	}
}

// Parse decodes and validates a style document
func Parse(reader io.Reader) (*Style, errorsx.Error) {
	style := new(Style)
	err := json.NewDecoder(reader).Decode(style)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	validationErr := style.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return style, nil
}

func (s *Style) UnmarshalJSON(data []byte) error {
	type plain Style
	var raw struct {
		*plain
		Sources map[string]json.RawMessage `json:"sources"`
		Layers  []json.RawMessage          `json:"layers"`
	}
	raw.plain = (*plain)(s)

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	s.Sources = make(map[string]Source)
	for id, sourceData := range raw.Sources {
		source, err := UnmarshalSource(id, sourceData)
		if err != nil {
			return err
		}
		s.Sources[id] = source
	}

	s.Layers = []Layer{}
	for _, layerData := range raw.Layers {
		layer, err := UnmarshalLayer(layerData)
		if err != nil {
			return err
		}
		s.Layers = append(s.Layers, layer)
	}

	return nil
}

// Validate checks the version, duplicate layer ids, dangling source and slot references, and every layer
func (s *Style) Validate() errorsx.Error {
	if s.Version != StyleVersion {
		return errorsx.Errorf("unsupported style version %d, expected %d", s.Version, StyleVersion)
	}

	for id, source := range s.Sources {
		if source == nil {
			return errorsx.Errorf("source %q is empty", id)
		}
		if source.SourceID() != id {
			return errorsx.Errorf("source id %q does not match its key %q", source.SourceID(), id)
		}
	}

	seen := make(map[string]LayerType)
	for _, layer := range s.Layers {
		base := layer.Base()
		if _, ok := seen[base.ID]; ok {
			return errorsx.Wrap(ErrDuplicateID, "layer", base.ID)
		}
		seen[base.ID] = layer.Type()

		err := ValidateLayer(layer)
		if err != nil {
			return err
		}

		err = s.checkSourceReference(layer)
		if err != nil {
			return err
		}
	}

	for _, layer := range s.Layers {
		slot := layer.Base().Slot
		if slot != "" && seen[slot] != LayerTypeSlot {
			return errorsx.Wrap(ErrSlotNotFound, "slot", slot, "layer", layer.Base().ID)
		}
	}

	return nil
}

func (s *Style) checkSourceReference(layer Layer) errorsx.Error {
	base := layer.Base()
	if !layer.Type().RequiresSource() {
		return nil
	}

	if base.Source == "" {
		return errorsx.Errorf("layer %q of type %q must have a source", base.ID, layer.Type())
	}

	if _, ok := s.Sources[base.Source]; !ok {
		return errorsx.Wrap(ErrSourceNotFound, "source", base.Source, "layer", base.ID)
	}

	return nil
}

// AddSource registers a source under its id
func (s *Style) AddSource(source Source) errorsx.Error {
	if source.SourceID() == "" {
		return errorsx.Errorf("source id must not be empty")
	}

	if _, ok := s.Sources[source.SourceID()]; ok {
		return errorsx.Wrap(ErrDuplicateID, "source", source.SourceID())
	}

	if s.Sources == nil {
		s.Sources = make(map[string]Source)
	}
	s.Sources[source.SourceID()] = source
	return nil
}

func (s *Style) Source(id string) (Source, errorsx.Error) {
	source, ok := s.Sources[id]
	if !ok {
		return nil, errorsx.Wrap(ErrSourceNotFound, "source", id)
	}
	return source, nil
}

func (s *Style) SourceIDs() []string {
	var ids []string
	for id := range s.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RemoveSource removes a source that no layer references
func (s *Style) RemoveSource(id string) errorsx.Error {
	if _, ok := s.Sources[id]; !ok {
		return errorsx.Wrap(ErrSourceNotFound, "source", id)
	}

	for _, layer := range s.Layers {
		if layer.Base().Source == id {
			return errorsx.Wrap(ErrSourceInUse, "source", id, "layer", layer.Base().ID)
		}
	}

	delete(s.Sources, id)
	return nil
}

// AddLayer validates the layer and inserts it at position.
// The style keeps layer itself, not a copy, and a slot position is recorded in layer's Slot field.
// Pass CloneLayer(layer) to keep the caller's struct unchanged; mapsession.Session does this.
func (s *Style) AddLayer(layer Layer, position LayerPosition) errorsx.Error {
	err := ValidateLayer(layer)
	if err != nil {
		return err
	}

	base := layer.Base()
	if s.indexOfLayer(base.ID) != -1 {
		return errorsx.Wrap(ErrDuplicateID, "layer", base.ID)
	}

	err = s.checkSourceReference(layer)
	if err != nil {
		return err
	}

	idx, err := position.InsertionIndex(s.layerRefs(), base.Slot)
	if err != nil {
		return err
	}

	if slot := position.SlotName(); slot != "" {
		base.Slot = slot
	}

	s.Layers = insertLayer(s.Layers, idx, layer)
	return nil
}

func (s *Style) Layer(id string) (Layer, errorsx.Error) {
	idx := s.indexOfLayer(id)
	if idx == -1 {
		return nil, errorsx.Wrap(ErrLayerNotFound, "id", id)
	}
	return s.Layers[idx], nil
}

// LayerIDs returns the layer ids in draw order, bottom first
func (s *Style) LayerIDs() []string {
	ids := make([]string, len(s.Layers))
	for i, layer := range s.Layers {
		ids[i] = layer.Base().ID
	}
	return ids
}

// ReplaceLayer swaps the layer with the same id for layer, keeping its place in the order.
// The replacement must be of the same type.
func (s *Style) ReplaceLayer(layer Layer) errorsx.Error {
	base := layer.Base()
	idx := s.indexOfLayer(base.ID)
	if idx == -1 {
		return errorsx.Wrap(ErrLayerNotFound, "id", base.ID)
	}

	if s.Layers[idx].Type() != layer.Type() {
		return errorsx.Wrap(ErrLayerTypeMismatch, "id", base.ID, "liveType", s.Layers[idx].Type(), "type", layer.Type())
	}

	err := ValidateLayer(layer)
	if err != nil {
		return err
	}

	err = s.checkSourceReference(layer)
	if err != nil {
		return err
	}

	if base.Slot != "" {
		slotIdx := s.indexOfLayer(base.Slot)
		if slotIdx == -1 || s.Layers[slotIdx].Type() != LayerTypeSlot {
			return errorsx.Wrap(ErrSlotNotFound, "slot", base.Slot, "layer", base.ID)
		}
	}

	s.Layers[idx] = layer
	return nil
}

func (s *Style) RemoveLayer(id string) errorsx.Error {
	idx := s.indexOfLayer(id)
	if idx == -1 {
		return errorsx.Wrap(ErrLayerNotFound, "id", id)
	}

	s.Layers = append(s.Layers[:idx], s.Layers[idx+1:]...)
	return nil
}

// MoveLayer moves an existing layer to a new position
func (s *Style) MoveLayer(id string, position LayerPosition) errorsx.Error {
	idx := s.indexOfLayer(id)
	if idx == -1 {
		return errorsx.Wrap(ErrLayerNotFound, "id", id)
	}

	layer := s.Layers[idx]
	remaining := append(append([]Layer{}, s.Layers[:idx]...), s.Layers[idx+1:]...)

	newIdx, err := position.InsertionIndex(layerRefs(remaining), layer.Base().Slot)
	if err != nil {
		return err
	}

	if slot := position.SlotName(); slot != "" {
		layer.Base().Slot = slot
	}

	s.Layers = insertLayer(remaining, newIdx, layer)
	return nil
}

func (s *Style) indexOfLayer(id string) int {
	return indexOfLayer(s.layerRefs(), id)
}

func (s *Style) layerRefs() []LayerRef {
	return layerRefs(s.Layers)
}

func layerRefs(layers []Layer) []LayerRef {
	refs := make([]LayerRef, len(layers))
	for i, layer := range layers {
		refs[i] = LayerRef{layer.Base().ID, layer.Type()}
	}
	return refs
}

func insertLayer(layers []Layer, idx int, layer Layer) []Layer {
	layers = append(layers, nil)
	copy(layers[idx+1:], layers[idx:])
	layers[idx] = layer
	return layers
}
