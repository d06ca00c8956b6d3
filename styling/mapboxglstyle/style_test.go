package mapboxglstyle

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadOutdoorsStyle(t *testing.T) *Style {
	t.Helper()

	file, err := os.Open("testdata/outdoors.json")
	require.NoError(t, err)
	defer file.Close()

	style, parseErr := Parse(file)
	require.NoError(t, parseErr)
	return style
}

func TestParse(t *testing.T) {
	style := loadOutdoorsStyle(t)

	assert.Equal(t, "outdoors", style.ID)
	assert.Equal(t, []string{"background", "park", "middle", "trail-lines", "place-labels"}, style.LayerIDs())
	assert.Equal(t, []string{"openmaptiles", "peaks", "trails"}, style.SourceIDs())

	t.Run("sources", func(t *testing.T) {
		vector, ok := style.Sources["openmaptiles"].(*VectorSource)
		require.True(t, ok)
		assert.Equal(t, []string{"https://tiles.example.com/data/v3/{z}/{x}/{y}.pbf"}, vector.Tiles)
		assert.Equal(t, 14.0, *vector.MaxZoom)

		trails, ok := style.Sources["trails"].(*GeoJSONSource)
		require.True(t, ok)
		require.NotNil(t, trails.Data.FeatureCollection)
		require.Len(t, trails.Data.FeatureCollection.Features, 1)
		assert.Equal(t, "Ringstien", trails.Data.FeatureCollection.Features[0].Properties["name"])

		peaks, ok := style.Sources["peaks"].(*GeoJSONSource)
		require.True(t, ok)
		assert.Equal(t, "https://data.example.com/peaks.geojson", peaks.Data.URL)
		assert.True(t, peaks.Cluster)
		assert.Equal(t, 40, *peaks.ClusterRadius)
	})

	t.Run("layers", func(t *testing.T) {
		layer, err := style.Layer("trail-lines")
		require.NoError(t, err)

		line, ok := layer.(*LineLayer)
		require.True(t, ok)
		assert.True(t, line.Paint.LineColor.IsExpression())
		assert.Equal(t, expression.OperatorMatch, line.Paint.LineColor.Expression.Operator)
		assert.False(t, line.Paint.LineDashArray.IsExpression())
		assert.Equal(t, []interface{}{2.0, 1.0}, line.Paint.LineDashArray.Constant)

		lineCap, ok := line.Layout.LineCap.StringConstant()
		require.True(t, ok)
		assert.Equal(t, "round", lineCap)

		layer, err = style.Layer("place-labels")
		require.NoError(t, err)
		symbol := layer.(*SymbolLayer)
		assert.Equal(t, []interface{}{"Open Sans Regular"}, symbol.Layout.TextFont.Constant)
		assert.Equal(t, VisibilityVisible, symbol.Layout.Visibility)
		assert.Equal(t, 4.0, *symbol.MinZoom)
	})

	t.Run("legacy functions become expressions", func(t *testing.T) {
		layer, err := style.Layer("place-labels")
		require.NoError(t, err)

		textSize := layer.(*SymbolLayer).Layout.TextSize
		require.True(t, textSize.IsExpression())
		assert.Equal(t, `["interpolate",["exponential",1.4],["zoom"],10,8,20,14]`, textSize.Expression.String())
	})

	t.Run("legacy filters", func(t *testing.T) {
		layer, err := style.Layer("park")
		require.NoError(t, err)

		filter := layer.Base().Filter
		require.NotNil(t, filter)

		nationalPark := geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
		nationalPark.Properties["class"] = "national_park"

		shown, err := expression.EvaluateFilter(filter, expression.EvaluationContext{Zoom: 10, Feature: nationalPark})
		require.NoError(t, err)
		assert.True(t, shown)

		nationalPark.Properties["class"] = "playground"
		shown, err = expression.EvaluateFilter(filter, expression.EvaluationContext{Zoom: 10, Feature: nationalPark})
		require.NoError(t, err)
		assert.False(t, shown)
	})
}

func TestStyle_roundTrip(t *testing.T) {
	style := loadOutdoorsStyle(t)

	first, err := json.Marshal(style)
	require.NoError(t, err)

	reparsed, parseErr := Parse(bytes.NewReader(first))
	require.NoError(t, parseErr)

	second, err := json.Marshal(reparsed)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, string(first), string(second))
}

func TestParse_invalid(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr error
	}{
		{
			name:  "wrong version",
			input: `{"version": 7, "sources": {}, "layers": []}`,
		}, {
			name:        "dangling source",
			input:       `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "fill", "source": "nope"}]}`,
			expectedErr: ErrSourceNotFound,
		}, {
			name:        "duplicate layer id",
			input:       `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "background"}, {"id": "a", "type": "background"}]}`,
			expectedErr: ErrDuplicateID,
		}, {
			name:        "unknown layer type",
			input:       `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "hologram"}]}`,
			expectedErr: ErrUnknownLayerType,
		}, {
			name:        "unknown source type",
			input:       `{"version": 8, "sources": {"s": {"type": "video"}}, "layers": []}`,
			expectedErr: ErrUnknownSourceType,
		}, {
			name:  "zoom range",
			input: `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "background", "minzoom": 10, "maxzoom": 5}]}`,
		}, {
			name:  "zoom out of bounds",
			input: `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "background", "maxzoom": 25}]}`,
		}, {
			name:        "malformed expression",
			input:       `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "background", "paint": {"background-opacity": ["interpolate", ["linear"], ["zoom"], 10]}}]}`,
			expectedErr: expression.ErrMalformed,
		}, {
			name:        "unknown slot",
			input:       `{"version": 8, "sources": {}, "layers": [{"id": "a", "type": "background", "slot": "top"}]}`,
			expectedErr: ErrSlotNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, errorsx.Cause(err))
			}
		})
	}
}

func newPointsSource() *GeoJSONSource {
	return NewGeoJSONSource("pts", GeoJSONDataFromFeatures(geojson.NewFeature(orb.Point{10.75, 59.91})))
}

func TestStyle_AddSource(t *testing.T) {
	style := NewStyle("s", "S")

	require.NoError(t, style.AddSource(newPointsSource()))

	err := style.AddSource(newPointsSource())
	require.Error(t, err)
	assert.Equal(t, ErrDuplicateID, errorsx.Cause(err))

	err = style.AddSource(NewVectorSource(""))
	require.Error(t, err)
}

func TestStyle_AddLayer(t *testing.T) {
	newStyle := func(t *testing.T) *Style {
		style, err := NewBuilder("s", "S").
			WithSource(newPointsSource()).
			WithLayer(NewBackgroundLayer("bg")).
			WithLayer(NewSlotLayer("middle")).
			WithLayer(NewCircleLayer("top", "pts")).
			Build()
		require.NoError(t, err)
		return style
	}

	tests := []struct {
		name        string
		layer       Layer
		position    LayerPosition
		expectedIDs []string
		expectedErr error
	}{
		{
			name:        "default goes on top",
			layer:       NewCircleLayer("new", "pts"),
			position:    Default(),
			expectedIDs: []string{"bg", "middle", "top", "new"},
		}, {
			name:        "above",
			layer:       NewCircleLayer("new", "pts"),
			position:    Above("bg"),
			expectedIDs: []string{"bg", "new", "middle", "top"},
		}, {
			name:        "below",
			layer:       NewCircleLayer("new", "pts"),
			position:    Below("top"),
			expectedIDs: []string{"bg", "middle", "new", "top"},
		}, {
			name:        "below bottom layer",
			layer:       NewCircleLayer("new", "pts"),
			position:    Below("bg"),
			expectedIDs: []string{"new", "bg", "middle", "top"},
		}, {
			name:        "at index",
			layer:       NewCircleLayer("new", "pts"),
			position:    AtIndex(1),
			expectedIDs: []string{"bg", "new", "middle", "top"},
		}, {
			name:        "at index equal to length",
			layer:       NewCircleLayer("new", "pts"),
			position:    AtIndex(3),
			expectedIDs: []string{"bg", "middle", "top", "new"},
		}, {
			name:        "in slot",
			layer:       NewCircleLayer("new", "pts"),
			position:    InSlot("middle"),
			expectedIDs: []string{"bg", "new", "middle", "top"},
		}, {
			name:        "unknown reference",
			layer:       NewCircleLayer("new", "pts"),
			position:    Above("nope"),
			expectedErr: ErrLayerNotFound,
		}, {
			name:        "index out of range",
			layer:       NewCircleLayer("new", "pts"),
			position:    AtIndex(4),
			expectedErr: ErrPositionOutOfRange,
		}, {
			name:        "slot that is not a slot layer",
			layer:       NewCircleLayer("new", "pts"),
			position:    InSlot("bg"),
			expectedErr: ErrSlotNotFound,
		}, {
			name:        "missing source",
			layer:       NewCircleLayer("new", "nope"),
			position:    Default(),
			expectedErr: ErrSourceNotFound,
		}, {
			name:        "duplicate id",
			layer:       NewCircleLayer("top", "pts"),
			position:    Default(),
			expectedErr: ErrDuplicateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := newStyle(t)

			err := style.AddLayer(tt.layer, tt.position)
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.expectedErr, errorsx.Cause(err))
				assert.Equal(t, []string{"bg", "middle", "top"}, style.LayerIDs())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedIDs, style.LayerIDs())
		})
	}
}

func TestStyle_AddLayer_slotOrdering(t *testing.T) {
	style, err := NewBuilder("s", "S").
		WithSource(newPointsSource()).
		WithLayer(NewSlotLayer("bottom")).
		WithLayer(NewSlotLayer("top")).
		Build()
	require.NoError(t, err)

	first := NewCircleLayer("first", "pts")
	first.Slot = "bottom"
	require.NoError(t, style.AddLayer(first, Default()))
	require.NoError(t, style.AddLayer(NewCircleLayer("second", "pts"), InSlot("bottom")))
	require.NoError(t, style.AddLayer(NewCircleLayer("third", "pts"), InSlot("top")))

	assert.Equal(t, []string{"first", "second", "bottom", "third", "top"}, style.LayerIDs())

	layer, err := style.Layer("second")
	require.NoError(t, err)
	assert.Equal(t, "bottom", layer.Base().Slot)

	// the style keeps the added layer itself, so the slot is recorded on it
	fourth := NewCircleLayer("fourth", "pts")
	require.NoError(t, style.AddLayer(fourth, InSlot("top")))
	assert.Equal(t, "top", fourth.Slot)

	// a clone leaves the caller's layer alone
	fifth := NewCircleLayer("fifth", "pts")
	fifthClone, err := CloneLayer(fifth)
	require.NoError(t, err)
	require.NoError(t, style.AddLayer(fifthClone, InSlot("top")))
	assert.Equal(t, "", fifth.Slot)
	assert.Equal(t, "top", fifthClone.Base().Slot)

	missing := NewCircleLayer("missing", "pts")
	missing.Slot = "nope"
	err = style.AddLayer(missing, Default())
	require.Error(t, err)
	assert.Equal(t, ErrSlotNotFound, errorsx.Cause(err))
}

func TestStyle_MoveLayer(t *testing.T) {
	style, err := NewBuilder("s", "S").
		WithLayer(NewBackgroundLayer("a")).
		WithLayer(NewBackgroundLayer("b")).
		WithLayer(NewBackgroundLayer("c")).
		Build()
	require.NoError(t, err)

	require.NoError(t, style.MoveLayer("a", Above("c")))
	assert.Equal(t, []string{"b", "c", "a"}, style.LayerIDs())

	require.NoError(t, style.MoveLayer("a", Below("b")))
	assert.Equal(t, []string{"a", "b", "c"}, style.LayerIDs())

	require.NoError(t, style.MoveLayer("c", AtIndex(0)))
	assert.Equal(t, []string{"c", "a", "b"}, style.LayerIDs())

	err = style.MoveLayer("nope", Default())
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))

	err = style.MoveLayer("a", Above("a"))
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))
	assert.Equal(t, []string{"c", "a", "b"}, style.LayerIDs())
}

func TestStyle_RemoveSource(t *testing.T) {
	style, err := NewBuilder("s", "S").
		WithSource(newPointsSource()).
		WithSource(NewVectorSource("unused", "https://example.com/{z}/{x}/{y}.pbf")).
		WithLayer(NewCircleLayer("circles", "pts")).
		Build()
	require.NoError(t, err)

	err = style.RemoveSource("pts")
	assert.Equal(t, ErrSourceInUse, errorsx.Cause(err))

	require.NoError(t, style.RemoveSource("unused"))
	assert.Equal(t, []string{"pts"}, style.SourceIDs())

	err = style.RemoveSource("unused")
	assert.Equal(t, ErrSourceNotFound, errorsx.Cause(err))

	require.NoError(t, style.RemoveLayer("circles"))
	require.NoError(t, style.RemoveSource("pts"))
}

func TestBuilder_stopsAtFirstError(t *testing.T) {
	_, err := NewBuilder("s", "S").
		WithLayer(NewCircleLayer("circles", "missing")).
		WithLayer(NewBackgroundLayer("bg")).
		Build()
	require.Error(t, err)
	assert.Equal(t, ErrSourceNotFound, errorsx.Cause(err))
}
