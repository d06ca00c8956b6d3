package mapboxglstyle

import (
	"fmt"

	"github.com/jamesrr39/goutil/errorsx"
)

type positionKind int

const (
	positionDefault positionKind = iota
	positionAbove
	positionBelow
	positionAt
	positionSlot
)

// LayerPosition says where a new or moved layer goes in the layer order. Index 0 is drawn first (bottom).
type LayerPosition struct {
	kind  positionKind
	ref   string
	index int
}

// Default puts the layer on top, or into its slot if the layer names one
func Default() LayerPosition {
	return LayerPosition{}
}

// Above puts the layer directly above (drawn after) the layer with the given id
func Above(layerID string) LayerPosition {
	return LayerPosition{kind: positionAbove, ref: layerID}
}

// Below puts the layer directly below (drawn before) the layer with the given id
func Below(layerID string) LayerPosition {
	return LayerPosition{kind: positionBelow, ref: layerID}
}

// AtIndex puts the layer at an absolute index; 0 is the bottom, len(layers) is the top
func AtIndex(index int) LayerPosition {
	return LayerPosition{kind: positionAt, index: index}
}

// InSlot puts the layer directly under the slot marker, after layers already in that slot
func InSlot(slotID string) LayerPosition {
	return LayerPosition{kind: positionSlot, ref: slotID}
}

func (p LayerPosition) String() string {
	switch p.kind {
	case positionAbove:
		return fmt.Sprintf("above %q", p.ref)
	case positionBelow:
		return fmt.Sprintf("below %q", p.ref)
	case positionAt:
		return fmt.Sprintf("at index %d", p.index)
	case positionSlot:
		return fmt.Sprintf("in slot %q", p.ref)
	default:
		return "default"
	}
}

// SlotName returns the slot the position targets, if any
func (p LayerPosition) SlotName() string {
	if p.kind == positionSlot {
		return p.ref
	}
	return ""
}

// LayerRef is the id and type of a layer already in the order
type LayerRef struct {
	ID   string
	Type LayerType
}

// InsertionIndex resolves the position against the current order. slot is the slot named by the layer
// being inserted, used when the position is Default.
func (p LayerPosition) InsertionIndex(order []LayerRef, slot string) (int, errorsx.Error) {
	kind, ref := p.kind, p.ref
	if kind == positionDefault && slot != "" {
		kind, ref = positionSlot, slot
	}

	switch kind {
	case positionDefault:
		return len(order), nil
	case positionAbove, positionBelow:
		idx := indexOfLayer(order, ref)
		if idx == -1 {
			return 0, errorsx.Wrap(ErrLayerNotFound, "id", ref, "position", p.String())
		}
		if kind == positionAbove {
			return idx + 1, nil
		}
		return idx, nil
	case positionAt:
		if p.index < 0 || p.index > len(order) {
			return 0, errorsx.Wrap(ErrPositionOutOfRange, "index", p.index, "layerCount", len(order))
		}
		return p.index, nil
	case positionSlot:
		idx := indexOfLayer(order, ref)
		if idx == -1 || order[idx].Type != LayerTypeSlot {
			return 0, errorsx.Wrap(ErrSlotNotFound, "slot", ref)
		}
		return idx, nil
	default:
		return 0, errorsx.Errorf("unknown position kind: %d", kind)
	}
}

func indexOfLayer(order []LayerRef, id string) int {
	for i, ref := range order {
		if ref.ID == id {
			return i
		}
	}
	return -1
}
