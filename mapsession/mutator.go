package mapsession

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

// LayerAs fetches a copy of the live layer with the given id as its concrete type, e.g.
//
//	circles, err := LayerAs[*mapboxglstyle.CircleLayer](session, "circles")
func LayerAs[L mapboxglstyle.Layer](s *Session, id string) (L, errorsx.Error) {
	var zero L

	layer, err := s.Layer(id)
	if err != nil {
		return zero, err
	}

	typed, ok := layer.(L)
	if !ok {
		return zero, errorsx.Wrap(ErrLayerTypeMismatch, "id", id, "liveType", layer.Type(), "type", zero.Type())
	}

	return typed, nil
}

// UpdateLayer applies mutate to a copy of the live layer and resubmits it. The session is locked for the
// whole read-modify-write, so concurrent updates to the same layer are applied one after the other.
//
// Nothing is changed if the layer doesn't exist (ErrLayerNotFound), is not of type L (ErrLayerTypeMismatch),
// or fails validation after the mutation.
func UpdateLayer[L mapboxglstyle.Layer](s *Session, id string, mutate func(layer L)) errorsx.Error {
	return s.updateLayer(id, func(layer mapboxglstyle.Layer) errorsx.Error {
		typed, ok := layer.(L)
		if !ok {
			var zero L
			return errorsx.Wrap(ErrLayerTypeMismatch, "id", id, "liveType", layer.Type(), "type", zero.Type())
		}

		mutate(typed)
		return nil
	})
}
