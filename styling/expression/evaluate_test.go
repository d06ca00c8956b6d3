package expression

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPark() *geojson.Feature {
	feature := geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	feature.ID = "park-1"
	feature.Properties["class"] = "park"
	feature.Properties["name"] = "Vigeland"
	feature.Properties["area"] = 320.0
	feature.Properties["tags"] = []interface{}{"green", "sculpture"}
	return feature
}

func TestEvaluate(t *testing.T) {
	ctx := EvaluationContext{Zoom: 12, Feature: newPark()}

	tests := []struct {
		name string
		expr *Expression
		want interface{}
	}{
		{"get", Get("name"), "Vigeland"},
		{"get missing", Get("ref"), nil},
		{"get from object", GetFrom("b", Literal(map[string]interface{}{"b": 2.0})), 2.0},
		{"has", Has("class"), true},
		{"has missing", Has("ref"), false},
		{"zoom", Zoom(), 12.0},
		{"id", ID(), "park-1"},
		{"geometry type", GeometryType(), "Polygon"},
		{"literal", Literal("x"), "x"},
		{"at", At(1, Get("tags")), "sculpture"},
		{"in array", In("green", Get("tags")), true},
		{"in string", In("gel", Get("name")), true},
		{"length", Length(Get("name")), 8.0},
		{"equals", Eq(Get("class"), "park"), true},
		{"equals across number types", Eq(Get("area"), 320), true},
		{"not equal", Neq(Get("class"), "park"), false},
		{"less than", Lt(Get("area"), 500), true},
		{"greater than or equal strings", Gte(Get("name"), "A"), true},
		{"less than with missing value", Lt(Get("ref"), 500), false},
		{"all", All(Has("name"), Eq(Get("class"), "park")), true},
		{"any", Any(Has("ref"), Eq(Get("class"), "river")), false},
		{"not", Not(Has("ref")), true},
		{"case first branch", Case("gray", Branch{Eq(Get("class"), "park"), "green"}), "green"},
		{"case fallback", Case("gray", Branch{Eq(Get("class"), "river"), "blue"}), "gray"},
		{"match", Match(Get("class"), "gray", MatchCase{"park", "green"}, MatchCase{"river", "blue"}), "green"},
		{"match label list", Match(Get("class"), "gray", MatchCase{[]interface{}{"wood", "park"}, "green"}), "green"},
		{"match fallback", Match(Get("class"), "gray", MatchCase{"river", "blue"}), "gray"},
		{"coalesce", Coalesce(Get("ref"), Get("name")), "Vigeland"},
		{"interpolate linear", Interpolate(Linear(), Zoom(), Stop{10, 2}, Stop{14, 10}), 6.0},
		{"interpolate below first stop", Interpolate(Linear(), Zoom(), Stop{13, 2}, Stop{14, 10}), 2.0},
		{"interpolate above last stop", Interpolate(Linear(), Zoom(), Stop{5, 2}, Stop{10, 10}), 10.0},
		{"interpolate exponential base 2", Interpolate(Exponential(2), Zoom(), Stop{10, 0}, Stop{14, 15}), 3.0},
		{"interpolate colors", Interpolate(Linear(), Zoom(), Stop{10, "#000000"}, Stop{14, "#ffffff"}), Color{128, 128, 128, 1}},
		{"interpolate arrays", Interpolate(Linear(), Zoom(), Stop{10, []interface{}{0.0, 0.0}}, Stop{14, []interface{}{4.0, 8.0}}), []interface{}{2.0, 4.0}},
		{"step below first stop", Step(Zoom(), "small", Stop{13, "medium"}), "small"},
		{"step on stop", Step(Zoom(), "small", Stop{12, "medium"}, Stop{14, "large"}), "medium"},
		{"add", Add(1, 2, 3.5), 6.5},
		{"subtract", Subtract(10, 4), 6.0},
		{"negate", New(OperatorSubtract, 3), -3.0},
		{"multiply", Multiply(Get("area"), 2), 640.0},
		{"divide", Divide(9, 2), 4.5},
		{"mod", Mod(9, 4), 1.0},
		{"pow", Pow(2, 10), 1024.0},
		{"to-string number", ToString(Get("area")), "320"},
		{"to-string bool", ToString(Has("name")), "true"},
		{"to-number string", ToNumber("12.5"), 12.5},
		{"to-number falls through", ToNumber("abc", Get("area")), 320.0},
		{"to-boolean", ToBoolean(Get("name")), true},
		{"to-color", ToColor(Get("ref"), "#ff0000"), Color{255, 0, 0, 1}},
		{"rgb", RGB(10, 20, 30), Color{10, 20, 30, 1}},
		{"rgba", RGBA(10, 20, 30, 0.5), Color{10, 20, 30, 0.5}},
		{"concat", Concat(Get("name"), " (", Get("class"), ")"), "Vigeland (park)"},
		{"format", Format(FormatSection{Get("name"), nil}, FormatSection{"!", map[string]interface{}{"font-scale": 0.8}}), "Vigeland!"},
		{"let and var", Let("a", Get("area"), Add(Var("a"), Var("a"))), 640.0},
		{"nested let shadows", Let("a", 1, Let("a", 2, Var("a"))), 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_errors(t *testing.T) {
	ctx := EvaluationContext{Zoom: 12, Feature: newPark()}

	tests := []struct {
		name string
		expr *Expression
	}{
		{"unknown operator", New("frobnicate")},
		{"wrong arity", New(OperatorGet)},
		{"number expected", Add(Get("name"), 1)},
		{"unbound variable", Var("nope")},
		{"at out of bounds", At(5, Get("tags"))},
		{"to-number with nothing convertible", ToNumber("abc")},
		{"interpolation type outside interpolate", Linear()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, ctx)
			require.Error(t, err)
		})
	}
}

func TestEvaluateFilter(t *testing.T) {
	park := newPark()
	point := geojson.NewFeature(orb.Point{10.7, 59.9})
	point.Properties["class"] = "city"

	tests := []struct {
		name    string
		filter  *Expression
		feature *geojson.Feature
		want    bool
	}{
		{"nil filter", nil, park, true},
		{"expression filter", Eq(Get("class"), "park"), park, true},
		{"legacy equals", New(OperatorEquals, "class", "park"), park, true},
		{"legacy not equals", New(OperatorNotEqual, "class", "park"), park, false},
		{"legacy $type", New(OperatorEquals, "$type", "Point"), point, true},
		{"legacy $type on polygon", New(OperatorEquals, "$type", "Point"), park, false},
		{"legacy in", New(OperatorIn, "class", "residential", "park"), park, true},
		{"legacy !in", New(OperatorLegacyNotIn, "class", "residential", "park"), park, false},
		{"legacy has", Has("name"), park, true},
		{"legacy !has", New(OperatorLegacyNotHas, "name"), point, true},
		{
			name: "legacy nested in all",
			filter: All(
				New(OperatorEquals, "$type", "Polygon"),
				New(OperatorIn, "class", "residential", "suburb", "park"),
			),
			feature: park,
			want:    true,
		},
		{"legacy $id", New(OperatorEquals, "$id", "park-1"), park, true},
		{"legacy greater than", New(OperatorGreaterThan, "area", 100), park, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateFilter(tt.filter, EvaluationContext{Zoom: 10, Feature: tt.feature})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateValue(t *testing.T) {
	got, err := EvaluateValue(8.0, EvaluationContext{})
	require.NoError(t, err)
	assert.Equal(t, 8.0, got)

	got, err = EvaluateValue(Add(1, 1), EvaluationContext{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestEvaluateFilter_none(t *testing.T) {
	ctx := EvaluationContext{Feature: newPark()}

	got, err := EvaluateFilter(New(OperatorLegacyNone, New(OperatorEquals, "class", "river"), New(OperatorLegacyNotHas, "name")), ctx)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = EvaluateFilter(New(OperatorLegacyNone, New(OperatorEquals, "class", "park")), ctx)
	require.NoError(t, err)
	assert.False(t, got)
}
