package stylerenderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"regexp"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/fonts"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"golang.org/x/image/font"
)

// FeatureSource resolves the features of a GeoJSON source. *mapsession.Session implements it.
type FeatureSource interface {
	SourceFeatures(ctx context.Context, sourceID string) (*geojson.FeatureCollection, errorsx.Error)
}

var (
	defaultBlack = expression.Color{A: 1}
)

// RasterRenderer draws a software preview of a style: background layers, and fill, line, circle and symbol
// layers backed by GeoJSON sources. Tiled sources are not drawn.
type RasterRenderer struct {
	logger *logpkg.Logger
}

func NewRasterRenderer(logger *logpkg.Logger) *RasterRenderer {
	return &RasterRenderer{logger}
}

func (rr *RasterRenderer) RenderTextTile(size image.Rectangle, text string) (image.Image, errorsx.Error) {
	img := NewImageWithBackground(size, color.White)
	x := size.Max.X / 2
	y := size.Max.Y / 2

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(fonts.DefaultFont())
	ctx.SetFontSize(16.0)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(color.Black))

	_, err := ctx.DrawString(text, freetype.Pt(x, y))
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return img, nil
}

// RenderRaster draws the visible layers of style, bottom first, for the given bounds and zoom level
func (rr *RasterRenderer) RenderRaster(ctx context.Context, style *mapboxglstyle.Style, featureSource FeatureSource, size image.Rectangle, bounds osm.Bounds, zoomLevel float64) (image.Image, errorsx.Error) {
	endRenderSpan := startSpan(ctx, "render style "+style.ID)
	defer endRenderSpan()

	if bounds.MaxLat <= bounds.MinLat || bounds.MaxLon <= bounds.MinLon {
		return nil, errorsx.Errorf("invalid bounds: %#v", bounds)
	}

	img := NewImageWithBackground(size, color.Transparent)
	proj := newProjection(bounds, size)
	sourceFeatures := make(map[string]*geojson.FeatureCollection)

	for _, layer := range style.Layers {
		if !mapboxglstyle.IsVisibleAtZoom(layer, zoomLevel) {
			continue
		}

		err := rr.drawLayer(ctx, img, proj, style, featureSource, sourceFeatures, layer, zoomLevel)
		if err != nil {
			return nil, errorsx.Wrap(err, "layer", layer.Base().ID)
		}
	}

	return img, nil
}

func (rr *RasterRenderer) drawLayer(
	ctx context.Context,
	img *image.RGBA,
	proj projection,
	style *mapboxglstyle.Style,
	featureSource FeatureSource,
	sourceFeatures map[string]*geojson.FeatureCollection,
	layer mapboxglstyle.Layer,
	zoomLevel float64,
) errorsx.Error {
	endSpan := startSpan(ctx, fmt.Sprintf("draw layer %q", layer.Base().ID))
	defer endSpan()

	drawFeatures := func(drawFeature func(evalCtx expression.EvaluationContext) errorsx.Error) errorsx.Error {
		fc, err := rr.layerFeatures(ctx, style, featureSource, sourceFeatures, layer)
		if err != nil {
			return err
		}
		if fc == nil {
			return nil
		}

		for _, feature := range fc.Features {
			evalCtx := expression.EvaluationContext{Zoom: zoomLevel, Feature: feature}
			shown, err := expression.EvaluateFilter(layer.Base().Filter, evalCtx)
			if err != nil {
				return err
			}
			if !shown {
				continue
			}

			err = drawFeature(evalCtx)
			if err != nil {
				return errorsx.Wrap(err, "featureID", feature.ID)
			}
		}
		return nil
	}

	switch l := layer.(type) {
	case *mapboxglstyle.BackgroundLayer:
		return drawBackground(img, l, zoomLevel)
	case *mapboxglstyle.FillLayer:
		return drawFeatures(func(evalCtx expression.EvaluationContext) errorsx.Error {
			return drawFill(img, proj, l, evalCtx)
		})
	case *mapboxglstyle.LineLayer:
		return drawFeatures(func(evalCtx expression.EvaluationContext) errorsx.Error {
			return drawLine(img, proj, l, evalCtx)
		})
	case *mapboxglstyle.CircleLayer:
		return drawFeatures(func(evalCtx expression.EvaluationContext) errorsx.Error {
			return drawCircle(img, proj, l, evalCtx)
		})
	case *mapboxglstyle.SymbolLayer:
		return drawFeatures(func(evalCtx expression.EvaluationContext) errorsx.Error {
			return drawSymbol(img, proj, l, evalCtx)
		})
	case *mapboxglstyle.SlotLayer:
		return nil
	case *mapboxglstyle.RasterLayer,
		*mapboxglstyle.FillExtrusionLayer,
		*mapboxglstyle.HeatmapLayer,
		*mapboxglstyle.HillshadeLayer,
		*mapboxglstyle.SkyLayer,
		*mapboxglstyle.ModelLayer:
		rr.logger.Debug("layer %q: %s layers are not drawn in previews", l.Base().ID, l.Type())
		return nil
	default:
		return errorsx.Errorf("unhandled layer type: %T", layer)
	}
}

// layerFeatures returns nil if the layer's source can't be drawn in a preview
func (rr *RasterRenderer) layerFeatures(
	ctx context.Context,
	style *mapboxglstyle.Style,
	featureSource FeatureSource,
	sourceFeatures map[string]*geojson.FeatureCollection,
	layer mapboxglstyle.Layer,
) (*geojson.FeatureCollection, errorsx.Error) {
	sourceID := layer.Base().Source
	if fc, ok := sourceFeatures[sourceID]; ok {
		return fc, nil
	}

	source, err := style.Source(sourceID)
	if err != nil {
		return nil, err
	}

	if source.Type() != mapboxglstyle.SourceTypeGeoJSON {
		rr.logger.Debug("layer %q: source %q is a %s source, which is not drawn in previews", layer.Base().ID, sourceID, source.Type())
		sourceFeatures[sourceID] = nil
		return nil, nil
	}

	endSpan := startSpan(ctx, fmt.Sprintf("load features for source %q", sourceID))
	fc, err := featureSource.SourceFeatures(ctx, sourceID)
	endSpan()
	if err != nil {
		return nil, err
	}

	sourceFeatures[sourceID] = fc
	return fc, nil
}

func drawBackground(img *image.RGBA, layer *mapboxglstyle.BackgroundLayer, zoomLevel float64) errorsx.Error {
	evalCtx := expression.EvaluationContext{Zoom: zoomLevel}

	bgColor, err := layer.Paint.BackgroundColor.Color(evalCtx, defaultBlack)
	if err != nil {
		return err
	}

	opacity, err := layer.Paint.BackgroundOpacity.Number(evalCtx, 1)
	if err != nil {
		return err
	}

	draw.Draw(img, img.Bounds(), image.NewUniform(withOpacity(bgColor, opacity)), image.Point{}, draw.Over)
	return nil
}

func drawFill(img *image.RGBA, proj projection, layer *mapboxglstyle.FillLayer, evalCtx expression.EvaluationContext) errorsx.Error {
	var polygons []orb.Polygon
	switch geometry := evalCtx.Feature.Geometry.(type) {
	case orb.Polygon:
		polygons = append(polygons, geometry)
	case orb.MultiPolygon:
		polygons = append(polygons, geometry...)
	default:
		return nil
	}

	fillColor, err := layer.Paint.FillColor.Color(evalCtx, defaultBlack)
	if err != nil {
		return err
	}

	opacity, err := layer.Paint.FillOpacity.Number(evalCtx, 1)
	if err != nil {
		return err
	}

	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillRule(draw2d.FillRuleEvenOdd)
	gc.SetFillColor(withOpacity(fillColor, opacity))

	gc.BeginPath()
	for _, polygon := range polygons {
		for _, ring := range polygon {
			tracePath(gc, proj, orb.LineString(ring))
			gc.Close()
		}
	}

	if layer.Paint.FillOutlineColor == nil {
		gc.Fill()
		return nil
	}

	outlineColor, err := layer.Paint.FillOutlineColor.Color(evalCtx, fillColor)
	if err != nil {
		return err
	}

	gc.SetStrokeColor(withOpacity(outlineColor, opacity))
	gc.SetLineWidth(1)
	gc.FillStroke()
	return nil
}

func drawLine(img *image.RGBA, proj projection, layer *mapboxglstyle.LineLayer, evalCtx expression.EvaluationContext) errorsx.Error {
	var lines []orb.LineString
	switch geometry := evalCtx.Feature.Geometry.(type) {
	case orb.LineString:
		lines = append(lines, geometry)
	case orb.MultiLineString:
		lines = append(lines, geometry...)
	case orb.Polygon:
		for _, ring := range geometry {
			lines = append(lines, orb.LineString(ring))
		}
	case orb.MultiPolygon:
		for _, polygon := range geometry {
			for _, ring := range polygon {
				lines = append(lines, orb.LineString(ring))
			}
		}
	default:
		return nil
	}

	lineColor, err := layer.Paint.LineColor.Color(evalCtx, defaultBlack)
	if err != nil {
		return err
	}

	opacity, err := layer.Paint.LineOpacity.Number(evalCtx, 1)
	if err != nil {
		return err
	}

	width, err := layer.Paint.LineWidth.Number(evalCtx, 1)
	if err != nil {
		return err
	}

	dashes, err := layer.Paint.LineDashArray.Numbers(evalCtx)
	if err != nil {
		return err
	}

	gc := draw2dimg.NewGraphicContext(img)
	gc.SetStrokeColor(withOpacity(lineColor, opacity))
	gc.SetLineWidth(width)

	capName, _ := layer.Layout.LineCap.StringConstant()
	gc.SetLineCap(lineCap(capName))

	joinName, _ := layer.Layout.LineJoin.StringConstant()
	gc.SetLineJoin(lineJoin(joinName))

	if len(dashes) > 0 {
		// dash lengths are in line widths
		scaled := make([]float64, len(dashes))
		for i, dash := range dashes {
			scaled[i] = dash * width
		}
		gc.SetLineDash(scaled, 0)
	}

	gc.BeginPath()
	for _, line := range lines {
		tracePath(gc, proj, line)
	}
	gc.Stroke()

	return nil
}

func drawCircle(img *image.RGBA, proj projection, layer *mapboxglstyle.CircleLayer, evalCtx expression.EvaluationContext) errorsx.Error {
	var points []orb.Point
	switch geometry := evalCtx.Feature.Geometry.(type) {
	case orb.Point:
		points = append(points, geometry)
	case orb.MultiPoint:
		points = append(points, geometry...)
	default:
		return nil
	}

	radius, err := layer.Paint.CircleRadius.Number(evalCtx, 5)
	if err != nil {
		return err
	}

	circleColor, err := layer.Paint.CircleColor.Color(evalCtx, defaultBlack)
	if err != nil {
		return err
	}

	opacity, err := layer.Paint.CircleOpacity.Number(evalCtx, 1)
	if err != nil {
		return err
	}

	strokeWidth, err := layer.Paint.CircleStrokeWidth.Number(evalCtx, 0)
	if err != nil {
		return err
	}

	strokeColor, err := layer.Paint.CircleStrokeColor.Color(evalCtx, defaultBlack)
	if err != nil {
		return err
	}

	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(withOpacity(circleColor, opacity))
	gc.SetStrokeColor(withOpacity(strokeColor, opacity))
	gc.SetLineWidth(strokeWidth)

	for _, point := range points {
		x, y := proj.toPixel(point)
		gc.BeginPath()
		draw2dkit.Circle(gc, x, y, radius)
		if strokeWidth > 0 {
			gc.FillStroke()
		} else {
			gc.Fill()
		}
	}

	return nil
}

var textTokenRegexp = regexp.MustCompile(`\{([^{}]+)\}`)

func drawSymbol(img *image.RGBA, proj projection, layer *mapboxglstyle.SymbolLayer, evalCtx expression.EvaluationContext) errorsx.Error {
	text, err := symbolText(layer.Layout.TextField, evalCtx)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	anchor, ok := labelAnchor(evalCtx.Feature.Geometry)
	if !ok {
		return nil
	}

	textSize, err := layer.Layout.TextSize.Number(evalCtx, 16)
	if err != nil {
		return err
	}

	textColor, err := layer.Paint.TextColor.Color(evalCtx, defaultBlack)
	if err != nil {
		return err
	}

	opacity, err := layer.Paint.TextOpacity.Number(evalCtx, 1)
	if err != nil {
		return err
	}

	textFont := fonts.ForStack(fontStack(layer.Layout.TextFont))

	x, y := proj.toPixel(anchor)
	textWidth := measureText(textFont, textSize, text)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(textFont)
	ctx.SetFontSize(textSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(withOpacity(textColor, opacity)))

	// centred on the anchor
	_, drawErr := ctx.DrawString(text, freetype.Pt(int(x-textWidth/2), int(y+textSize/3)))
	if drawErr != nil {
		return errorsx.Wrap(drawErr)
	}

	return nil
}

// symbolText evaluates text-field. Constant strings may reference feature properties as "{name}".
func symbolText(value *mapboxglstyle.Value, evalCtx expression.EvaluationContext) (string, errorsx.Error) {
	if value == nil {
		return "", nil
	}

	result, err := value.Evaluate(evalCtx)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		if value.IsExpression() {
			return v, nil
		}
		return textTokenRegexp.ReplaceAllStringFunc(v, func(token string) string {
			propertyValue, ok := evalCtx.Feature.Properties[token[1:len(token)-1]]
			if !ok || propertyValue == nil {
				return ""
			}
			return fmt.Sprint(propertyValue)
		}), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func fontStack(value *mapboxglstyle.Value) []string {
	if value == nil || value.IsExpression() {
		return nil
	}

	switch stack := value.Constant.(type) {
	case []string:
		return stack
	case []interface{}:
		var names []string
		for _, name := range stack {
			names = append(names, fmt.Sprint(name))
		}
		return names
	default:
		return nil
	}
}

// labelAnchor picks where a label goes: the point itself, the middle vertex of a line, or the middle of a polygon's bounds
func labelAnchor(geometry orb.Geometry) (orb.Point, bool) {
	switch g := geometry.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[0], true
	case orb.LineString:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return g[len(g)/2], true
	case orb.Polygon, orb.MultiPolygon, orb.MultiLineString:
		bound := g.Bound()
		if bound.IsEmpty() {
			return orb.Point{}, false
		}
		return bound.Center(), true
	default:
		return orb.Point{}, false
	}
}

func measureText(textFont *truetype.Font, size float64, text string) float64 {
	face := truetype.NewFace(textFont, &truetype.Options{Size: size, DPI: 72})
	defer face.Close()

	return float64(font.MeasureString(face, text)) / 64
}

func tracePath(gc *draw2dimg.GraphicContext, proj projection, line orb.LineString) {
	for i, point := range line {
		x, y := proj.toPixel(point)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
}

func lineCap(name string) draw2d.LineCap {
	switch name {
	case "round":
		return draw2d.RoundCap
	case "square":
		return draw2d.SquareCap
	default:
		return draw2d.ButtCap
	}
}

func lineJoin(name string) draw2d.LineJoin {
	switch name {
	case "round":
		return draw2d.RoundJoin
	case "bevel":
		return draw2d.BevelJoin
	default:
		return draw2d.MiterJoin
	}
}
