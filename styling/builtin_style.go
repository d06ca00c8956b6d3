package styling

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

const (
	BUILTIN_STYLEID       = "__ownmapstyle_builtin"
	BUILTIN_FEATURES_NAME = "features"
)

var forestColor = "#acc8a0"

// BuiltinStyle is a basic OpenStreetMap-like style over a single GeoJSON source of OSM-tagged features.
// The source starts empty; fill it with Session.UpdateGeoJSONSourceData.
func BuiltinStyle() (*mapboxglstyle.Style, errorsx.Error) {
	background := mapboxglstyle.NewBackgroundLayer("background")
	background.Paint.BackgroundColor = mapboxglstyle.Constant("#ffffff")

	landuse := mapboxglstyle.NewFillLayer("landuse", BUILTIN_FEATURES_NAME)
	landuse.Filter = expression.Any(
		expression.Has("landuse"),
		expression.Eq(expression.Get("natural"), "wood"),
	)
	landuse.Paint.FillColor = mapboxglstyle.Expr(expression.Match(
		expression.Coalesce(expression.Get("landuse"), expression.Get("natural")),
		"rgba(0, 0, 0, 0)",
		expression.MatchCase{Label: []interface{}{"forest", "wood"}, Output: forestColor},
		expression.MatchCase{Label: "residential", Output: "#dfdfdf"},
	))

	railway := mapboxglstyle.NewLineLayer("railway", BUILTIN_FEATURES_NAME)
	railway.Filter = expression.Has("railway")
	railway.Paint.LineColor = mapboxglstyle.Constant("#bebebe")
	railway.Paint.LineWidth = mapboxglstyle.Constant(3.0)

	highway := mapboxglstyle.NewLineLayer("highway", BUILTIN_FEATURES_NAME)
	highway.Filter = expression.All(
		expression.Has("highway"),
		expression.Not(expression.In(expression.Get("highway"), expression.Literal(pathHighwayTypes))),
	)
	highway.Paint.LineColor = mapboxglstyle.Expr(expression.Match(
		expression.Get("highway"),
		"#bcaca5",
		expression.MatchCase{Label: "motorway", Output: "#f38d9e"},
		expression.MatchCase{Label: "trunk", Output: "#ffae9b"},
		expression.MatchCase{Label: []interface{}{"primary", "primary_link"}, Output: "#ffd4a5"},
		expression.MatchCase{Label: "secondary", Output: "#f6f9bf"},
		expression.MatchCase{Label: "tertiary", Output: "#f38d9e"},
	))
	highway.Paint.LineWidth = mapboxglstyle.Expr(expression.Interpolate(
		expression.Linear(),
		expression.Zoom(),
		expression.Stop{Input: 10, Output: 1},
		expression.Stop{Input: 18, Output: 6},
	))
	highway.Layout.LineCap = mapboxglstyle.Constant("round")
	highway.Layout.LineJoin = mapboxglstyle.Constant("round")

	paths := mapboxglstyle.NewLineLayer("paths", BUILTIN_FEATURES_NAME)
	paths.Filter = expression.In(expression.Get("highway"), expression.Literal(pathHighwayTypes))
	paths.Paint.LineColor = mapboxglstyle.Constant("#00ff00")
	paths.Paint.LineDashArray = mapboxglstyle.Constant([]interface{}{2.0, 1.0})

	places := mapboxglstyle.NewSymbolLayer("places", BUILTIN_FEATURES_NAME)
	places.Filter = expression.All(expression.Has("place"), expression.Has("name"))
	places.Layout.TextField = mapboxglstyle.Constant("{name}")
	places.Layout.TextSize = mapboxglstyle.Constant(16.0)
	places.Paint.TextColor = mapboxglstyle.Constant("#000000")

	return mapboxglstyle.NewBuilder(BUILTIN_STYLEID, "Basic").
		WithSource(mapboxglstyle.NewGeoJSONSource(BUILTIN_FEATURES_NAME, mapboxglstyle.GeoJSONDataFromFeatures())).
		WithLayer(background).
		WithLayer(landuse).
		WithLayer(railway).
		WithLayer(highway).
		WithLayer(paths).
		WithLayer(places).
		Build()
}

var pathHighwayTypes = []interface{}{"footway", "path", "steps", "bridleway", "cycleway"}
