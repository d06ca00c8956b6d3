package mapboxglstyle

import "github.com/jamesrr39/goutil/errorsx"

// Builder accumulates a style with chained calls. After the first failed call the rest are ignored,
// and the error is returned from Build.
//
//	style, err := NewBuilder("outdoors", "Outdoors").
//		WithSource(NewGeoJSONSource("pts", data)).
//		WithLayer(circles).
//		WithLayer(labels, Above("circles")).
//		Build()
type Builder struct {
	style *Style
	err   errorsx.Error
}

func NewBuilder(id, name string) *Builder {
	return &Builder{style: NewStyle(id, name)}
}

// BuilderFrom continues building on top of an existing style
func BuilderFrom(style *Style) *Builder {
	return &Builder{style: style}
}

func (b *Builder) WithSource(source Source) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.style.AddSource(source)
	return b
}

// WithLayer adds a layer at the given position, or on top if no position is given
func (b *Builder) WithLayer(layer Layer, position ...LayerPosition) *Builder {
	if b.err != nil {
		return b
	}

	pos := Default()
	switch len(position) {
	case 0:
	case 1:
		pos = position[0]
	default:
		b.err = errorsx.Errorf("at most one position can be given for layer %q", layer.Base().ID)
		return b
	}

	b.err = b.style.AddLayer(layer, pos)
	return b
}

func (b *Builder) WithSprite(url string) *Builder {
	b.style.Sprite = url
	return b
}

func (b *Builder) WithGlyphs(url string) *Builder {
	b.style.Glyphs = url
	return b
}

func (b *Builder) WithCamera(lon, lat, zoom float64) *Builder {
	b.style.Center = []float64{lon, lat}
	b.style.Zoom = &zoom
	return b
}

func (b *Builder) Build() (*Style, errorsx.Error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.style, nil
}
