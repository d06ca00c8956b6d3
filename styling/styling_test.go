package styling

import (
	"bytes"
	"context"
	"testing"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs/mockfs"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logpkg.Logger {
	return logpkg.NewLogger(new(bytes.Buffer), logpkg.LogLevelDebug)
}

func styleJSON(id string) []byte {
	return []byte(`{"version": 8, "id": "` + id + `", "name": "Minimal", "sources": {}, "layers": [{"id": "background", "type": "background", "paint": {"background-color": "#eeeeee"}}]}`)
}

func TestLoadStylesFromDir(t *testing.T) {
	fs := mockfs.NewMockFs()
	require.NoError(t, fs.MkdirAll("/styles/outdoors", 0755))
	require.NoError(t, fs.WriteFile("/styles/outdoors/style.json", styleJSON("outdoors"), 0644))
	require.NoError(t, fs.MkdirAll("/styles/empty-folder", 0755))
	require.NoError(t, fs.WriteFile("/styles/plain.json", styleJSON(""), 0644))
	require.NoError(t, fs.WriteFile("/styles/broken.json", []byte(`{"version": 7}`), 0644))
	require.NoError(t, fs.WriteFile("/styles/README.txt", []byte(`not a style`), 0644))

	styles, err := LoadStylesFromDir(newTestLogger(), fs, "/styles")
	require.NoError(t, err)

	var ids []string
	for _, style := range styles {
		ids = append(ids, style.ID)
	}
	assert.Equal(t, []string{"outdoors", "plain"}, ids)
}

func TestLoadStylesFromDir_missingDir(t *testing.T) {
	_, err := LoadStylesFromDir(newTestLogger(), mockfs.NewMockFs(), "/does-not-exist")
	require.Error(t, err)
}

func parseStyle(t *testing.T, id string) *mapboxglstyle.Style {
	t.Helper()
	style, err := mapboxglstyle.Parse(bytes.NewReader(styleJSON(id)))
	require.NoError(t, err)
	return style
}

func TestNewStyleSet(t *testing.T) {
	builtin, err := BuiltinStyle()
	require.NoError(t, err)

	tests := []struct {
		name           string
		styles         func() []*mapboxglstyle.Style
		defaultStyleID string
		expectErr      bool
	}{
		{
			name: "builtin default",
			styles: func() []*mapboxglstyle.Style {
				return []*mapboxglstyle.Style{builtin, parseStyle(t, "outdoors")}
			},
			defaultStyleID: BUILTIN_STYLEID,
		}, {
			name: "default not loaded",
			styles: func() []*mapboxglstyle.Style {
				return []*mapboxglstyle.Style{parseStyle(t, "outdoors")}
			},
			defaultStyleID: BUILTIN_STYLEID,
			expectErr:      true,
		}, {
			name: "duplicate id",
			styles: func() []*mapboxglstyle.Style {
				return []*mapboxglstyle.Style{parseStyle(t, "outdoors"), parseStyle(t, "outdoors")}
			},
			defaultStyleID: "outdoors",
			expectErr:      true,
		}, {
			name: "style without id",
			styles: func() []*mapboxglstyle.Style {
				return []*mapboxglstyle.Style{parseStyle(t, "")}
			},
			defaultStyleID: "",
			expectErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			styleSet, err := NewStyleSet(context.Background(), newTestLogger(), nil, tt.styles(), tt.defaultStyleID)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{BUILTIN_STYLEID, "outdoors"}, styleSet.GetAllStyleIDs())
		})
	}
}

func TestStyleSet_sessions(t *testing.T) {
	ctx := context.Background()
	styleSet, err := NewStyleSet(ctx, newTestLogger(), nil, []*mapboxglstyle.Style{parseStyle(t, "outdoors")}, "outdoors")
	require.NoError(t, err)

	defaultSession, err := styleSet.GetSessionByID("")
	require.NoError(t, err)
	outdoorsSession, err := styleSet.GetSessionByID("outdoors")
	require.NoError(t, err)
	assert.Same(t, defaultSession, outdoorsSession)
	assert.True(t, defaultSession.IsStyleLoaded())

	require.NoError(t, styleSet.AddStyle(ctx, parseStyle(t, "winter")))
	require.Error(t, styleSet.AddStyle(ctx, parseStyle(t, "winter")))

	_, err = styleSet.GetSessionByID("winter")
	require.NoError(t, err)

	require.Error(t, styleSet.RemoveStyle("outdoors"))
	require.NoError(t, styleSet.RemoveStyle("winter"))

	_, err = styleSet.GetSessionByID("winter")
	assert.Equal(t, ErrStyleNotFound, errorsx.Cause(err))
	assert.Equal(t, ErrStyleNotFound, errorsx.Cause(styleSet.RemoveStyle("winter")))
}

func TestBuiltinStyle(t *testing.T) {
	style, err := BuiltinStyle()
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "landuse", "railway", "highway", "paths", "places"}, style.LayerIDs())

	newFeature := func(geometry orb.Geometry, properties map[string]interface{}) *geojson.Feature {
		feature := geojson.NewFeature(geometry)
		for k, v := range properties {
			feature.Properties[k] = v
		}
		return feature
	}

	area := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	line := orb.LineString{{0, 0}, {1, 1}}

	tests := []struct {
		name          string
		feature       *geojson.Feature
		expectedShown []string
	}{
		{"forest", newFeature(area, map[string]interface{}{"landuse": "forest"}), []string{"landuse"}},
		{"wood", newFeature(area, map[string]interface{}{"natural": "wood"}), []string{"landuse"}},
		{"motorway", newFeature(line, map[string]interface{}{"highway": "motorway"}), []string{"highway"}},
		{"footpath", newFeature(line, map[string]interface{}{"highway": "footway"}), []string{"paths"}},
		{"railway", newFeature(line, map[string]interface{}{"railway": "rail"}), []string{"railway"}},
		{"named place", newFeature(orb.Point{0, 0}, map[string]interface{}{"place": "town", "name": "Lom"}), []string{"places"}},
		{"unnamed place", newFeature(orb.Point{0, 0}, map[string]interface{}{"place": "town"}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shown []string
			for _, layer := range style.Layers[1:] {
				ok, err := expression.EvaluateFilter(layer.Base().Filter, expression.EvaluationContext{Zoom: 14, Feature: tt.feature})
				require.NoError(t, err)
				if ok {
					shown = append(shown, layer.Base().ID)
				}
			}
			assert.Equal(t, tt.expectedShown, shown)
		})
	}

	landuse, err := style.Layer("landuse")
	require.NoError(t, err)
	fillColor, err := landuse.(*mapboxglstyle.FillLayer).Paint.FillColor.Color(
		expression.EvaluationContext{Zoom: 14, Feature: tests[1].feature},
		expression.Color{},
	)
	require.NoError(t, err)
	assert.Equal(t, expression.Color{R: 0xac, G: 0xc8, B: 0xa0, A: 1}, fillColor)
}
