package stylerenderer

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func NewImageWithBackground(r image.Rectangle, c color.Color) *image.RGBA {
	img := image.NewRGBA(r)

	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)

	return img
}

type Point struct {
	X float64 // between 0 and 1. 0 = left of image, 1 = right of image
	Y float64 // between 0 and 1. 0 = top of image, 1 = bottom of image
}

// projection maps lon/lat linearly onto the image, the same way for every point in the bounds
type projection struct {
	bounds osm.Bounds
	width  float64
	height float64
}

func newProjection(bounds osm.Bounds, size image.Rectangle) projection {
	return projection{bounds, float64(size.Dx()), float64(size.Dy())}
}

func (p projection) toPoint(pt orb.Point) Point {
	return Point{
		X: (pt.Lon() - p.bounds.MinLon) / (p.bounds.MaxLon - p.bounds.MinLon),
		Y: 1 - ((pt.Lat() - p.bounds.MinLat) / (p.bounds.MaxLat - p.bounds.MinLat)),
	}
}

func (p projection) toPixel(pt orb.Point) (float64, float64) {
	point := p.toPoint(pt)
	return point.X * p.width, point.Y * p.height
}

// withOpacity applies a paint opacity on top of the colour's own alpha
func withOpacity(c expression.Color, opacity float64) color.Color {
	alpha := math.Max(0, math.Min(1, c.A*opacity))
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(alpha * 255))}
}

// startSpan starts a tracing span if the context carries a trace; the returned func ends it
func startSpan(ctx context.Context, name string) func() {
	if ctx.Value(tracing.TraceCtxKey) == nil || ctx.Value(tracing.TracerCtxKey) == nil {
		return func() {}
	}

	span := tracing.StartSpan(ctx, name)
	return func() {
		span.End(ctx)
	}
}
