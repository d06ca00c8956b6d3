package mapboxglstyle

import "errors"

var (
	ErrLayerNotFound      = errors.New("layer not found")
	ErrLayerTypeMismatch  = errors.New("layer type mismatch")
	ErrSourceNotFound     = errors.New("source not found")
	ErrSlotNotFound       = errors.New("slot not found")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrSourceInUse        = errors.New("source is referenced by a layer")
	ErrUnknownLayerType   = errors.New("unknown layer type")
	ErrUnknownSourceType  = errors.New("unknown source type")
	ErrUnknownProperty    = errors.New("unknown property for layer type")
	ErrPositionOutOfRange = errors.New("layer position out of range")
)
