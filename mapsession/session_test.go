package mapsession

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/expression"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	logger := logpkg.NewLogger(new(bytes.Buffer), logpkg.LogLevelDebug)
	session := NewSession(logger, nil)

	style, err := mapboxglstyle.NewBuilder("test", "Test").
		WithLayer(mapboxglstyle.NewBackgroundLayer("background")).
		Build()
	require.NoError(t, err)

	require.NoError(t, session.LoadStyle(context.Background(), style))
	return session
}

func addPointsAndCircles(t *testing.T, session *Session) {
	t.Helper()

	pts := mapboxglstyle.NewGeoJSONSource("pts", mapboxglstyle.GeoJSONDataFromFeatures(
		geojson.NewFeature(orb.Point{10.7522, 59.9139}),
	))
	require.NoError(t, session.AddSource(pts))

	circles := mapboxglstyle.NewCircleLayer("circles", "pts")
	circles.Paint.CircleRadius = mapboxglstyle.Constant(8.0)
	require.NoError(t, session.AddLayer(circles, mapboxglstyle.Default()))
}

func TestSession_circleRadiusScenario(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	circles, err := LayerAs[*mapboxglstyle.CircleLayer](session, "circles")
	require.NoError(t, err)

	radius, ok := circles.Paint.CircleRadius.Float()
	require.True(t, ok)
	assert.Equal(t, 8.0, radius)
	assert.False(t, circles.Paint.CircleRadius.IsExpression())
	assert.Equal(t, "pts", circles.Source)
}

func TestUpdateLayer(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	err := UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
		layer.Paint.CircleRadius = mapboxglstyle.Expr(expression.Interpolate(expression.Linear(), expression.Zoom(),
			expression.Stop{Input: 10, Output: 2},
			expression.Stop{Input: 16, Output: 12},
		))
		layer.Paint.CircleColor = mapboxglstyle.Constant("#ff0000")
	})
	require.NoError(t, err)

	circles, err := LayerAs[*mapboxglstyle.CircleLayer](session, "circles")
	require.NoError(t, err)
	require.True(t, circles.Paint.CircleRadius.IsExpression())
	assert.Equal(t, `["interpolate",["linear"],["zoom"],10,2,16,12]`, circles.Paint.CircleRadius.Expression.String())
	assert.Equal(t, "#ff0000", circles.Paint.CircleColor.Constant)
}

func TestUpdateLayer_errors(t *testing.T) {
	tests := []struct {
		name        string
		update      func(session *Session) errorsx.Error
		expectedErr error
	}{
		{
			name: "absent id",
			update: func(session *Session) errorsx.Error {
				return UpdateLayer(session, "nope", func(layer *mapboxglstyle.CircleLayer) {})
			},
			expectedErr: ErrLayerNotFound,
		}, {
			name: "wrong type",
			update: func(session *Session) errorsx.Error {
				return UpdateLayer(session, "circles", func(layer *mapboxglstyle.SymbolLayer) {})
			},
			expectedErr: ErrLayerTypeMismatch,
		}, {
			name: "malformed expression",
			update: func(session *Session) errorsx.Error {
				return UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
					layer.Paint.CircleRadius = mapboxglstyle.Expr(expression.New("interpolate", expression.Zoom()))
				})
			},
			expectedErr: expression.ErrMalformed,
		}, {
			name: "unknown operator",
			update: func(session *Session) errorsx.Error {
				return UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
					layer.Filter = expression.New("approximately-equals", expression.Get("a"), 1)
				})
			},
			expectedErr: expression.ErrMalformed,
		}, {
			name: "unknown operator in a paint property",
			update: func(session *Session) errorsx.Error {
				return UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
					layer.Paint.CircleRadius = mapboxglstyle.Expr(expression.New("approximately-equals", expression.Get("a"), 1))
				})
			},
			expectedErr: expression.ErrMalformed,
		}, {
			name: "unknown operator through properties",
			update: func(session *Session) errorsx.Error {
				return session.SetLayerProperty("circles", "circle-color", mapboxglstyle.Expr(expression.New("bogus", 1)))
			},
			expectedErr: expression.ErrMalformed,
		}, {
			name: "dangling source",
			update: func(session *Session) errorsx.Error {
				return UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
					layer.Source = "nope"
				})
			},
			expectedErr: ErrSourceNotFound,
		}, {
			name: "wrong type through properties",
			update: func(session *Session) errorsx.Error {
				return session.SetLayerProperties("circles", mapboxglstyle.LayerTypeLine, map[string]*mapboxglstyle.Value{
					"line-width": mapboxglstyle.Constant(3.0),
				})
			},
			expectedErr: ErrLayerTypeMismatch,
		}, {
			name: "unknown property",
			update: func(session *Session) errorsx.Error {
				return session.SetLayerProperty("circles", "line-width", mapboxglstyle.Constant(3.0))
			},
			expectedErr: mapboxglstyle.ErrUnknownProperty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession(t)
			addPointsAndCircles(t, session)

			before, err := session.Document()
			require.NoError(t, err)

			err = tt.update(session)
			require.Error(t, err)
			assert.Equal(t, tt.expectedErr, errorsx.Cause(err))

			after, err := session.Document()
			require.NoError(t, err)
			assert.Equal(t, mustMarshal(t, before), mustMarshal(t, after))

			ids, err := session.LayerIDs()
			require.NoError(t, err)
			assert.Equal(t, []string{"background", "circles"}, ids)
		})
	}
}

func TestUpdateLayer_cannotChangeID(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	err := UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
		layer.ID = "renamed"
	})
	require.Error(t, err)

	_, err = session.Layer("renamed")
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))
}

func TestUpdateLayer_concurrent(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := UpdateLayer(session, "circles", func(layer *mapboxglstyle.CircleLayer) {
				radius, _ := layer.Paint.CircleRadius.Float()
				layer.Paint.CircleRadius = mapboxglstyle.Constant(radius + 1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	circles, err := LayerAs[*mapboxglstyle.CircleLayer](session, "circles")
	require.NoError(t, err)
	radius, ok := circles.Paint.CircleRadius.Float()
	require.True(t, ok)
	assert.Equal(t, 28.0, radius)
}

func TestSession_Layer(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	_, err := session.Layer("nope")
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))

	_, err = LayerAs[*mapboxglstyle.FillLayer](session, "circles")
	assert.Equal(t, ErrLayerTypeMismatch, errorsx.Cause(err))

	// changing a fetched copy does not change the live layer
	circles, err := LayerAs[*mapboxglstyle.CircleLayer](session, "circles")
	require.NoError(t, err)
	circles.Paint.CircleRadius = mapboxglstyle.Constant(100.0)

	live, err := session.Layer("circles")
	require.NoError(t, err)
	value, err := mapboxglstyle.GetProperty(live, "circle-radius")
	require.NoError(t, err)
	assert.Equal(t, 8.0, value.Constant)
}

func TestSession_AddLayer_positions(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	require.NoError(t, session.AddLayer(mapboxglstyle.NewCircleLayer("halo", "pts"), mapboxglstyle.Below("circles")))
	require.NoError(t, session.AddLayer(mapboxglstyle.NewSymbolLayer("labels", "pts"), mapboxglstyle.Above("circles")))

	ids, err := session.LayerIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "halo", "circles", "labels"}, ids)

	err = session.AddLayer(mapboxglstyle.NewCircleLayer("lost", "pts"), mapboxglstyle.Above("nope"))
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))

	err = session.AddLayer(mapboxglstyle.NewCircleLayer("orphan", "nope"), mapboxglstyle.Default())
	assert.Equal(t, ErrSourceNotFound, errorsx.Cause(err))

	require.NoError(t, session.MoveLayer("labels", mapboxglstyle.AtIndex(1)))
	ids, err = session.LayerIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "labels", "halo", "circles"}, ids)

	require.NoError(t, session.RemoveLayer("halo"))
	err = session.RemoveLayer("halo")
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))
}

func TestSession_AddLayer_malformedPaint(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	bogus := mapboxglstyle.NewCircleLayer("bogus", "pts")
	bogus.Paint.CircleRadius = mapboxglstyle.Expr(expression.New("bogus", 1))

	err := session.AddLayer(bogus, mapboxglstyle.Default())
	require.Error(t, err)
	assert.Equal(t, expression.ErrMalformed, errorsx.Cause(err))

	_, err = session.Layer("bogus")
	assert.Equal(t, ErrLayerNotFound, errorsx.Cause(err))
}

func TestSession_AddLayer_fontStack(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	labels := mapboxglstyle.NewSymbolLayer("labels", "pts")
	labels.Layout.TextField = mapboxglstyle.Constant("{name}")
	labels.Layout.TextFont = mapboxglstyle.Constant([]interface{}{"Open Sans Bold", "Arial Unicode MS Bold"})
	require.NoError(t, session.AddLayer(labels, mapboxglstyle.Default()))

	live, err := LayerAs[*mapboxglstyle.SymbolLayer](session, "labels")
	require.NoError(t, err)
	assert.False(t, live.Layout.TextFont.IsExpression())
	assert.Equal(t, []interface{}{"Open Sans Bold", "Arial Unicode MS Bold"}, live.Layout.TextFont.Constant)
}

func TestSession_AddLayer_slotLeavesCallerLayer(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)
	require.NoError(t, session.AddLayer(mapboxglstyle.NewSlotLayer("middle"), mapboxglstyle.Below("circles")))

	halo := mapboxglstyle.NewCircleLayer("halo", "pts")
	require.NoError(t, session.AddLayer(halo, mapboxglstyle.InSlot("middle")))
	assert.Equal(t, "", halo.Slot)

	live, err := session.Layer("halo")
	require.NoError(t, err)
	assert.Equal(t, "middle", live.Base().Slot)

	ids, err := session.LayerIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "halo", "middle", "circles"}, ids)
}

func TestSession_sources(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	err := session.RemoveSource("pts")
	assert.Equal(t, mapboxglstyle.ErrSourceInUse, errorsx.Cause(err))

	feature := geojson.NewFeature(orb.Point{5.3221, 60.3913})
	feature.Properties["name"] = "Bergen"
	require.NoError(t, session.UpdateGeoJSONSourceData("pts", mapboxglstyle.GeoJSONDataFromFeatures(feature)))

	fc, err := session.SourceFeatures(context.Background(), "pts")
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Bergen", fc.Features[0].Properties["name"])

	require.NoError(t, session.AddSource(mapboxglstyle.NewVectorSource("osm", "https://example.com/{z}/{x}/{y}.pbf")))
	err = session.UpdateGeoJSONSourceData("osm", mapboxglstyle.GeoJSONDataFromFeatures())
	assert.Equal(t, ErrSourceTypeMismatch, errorsx.Cause(err))

	ids, err := session.SourceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"osm", "pts"}, ids)

	require.NoError(t, session.RemoveSource("osm"))
	_, err = session.Source("osm")
	assert.Equal(t, ErrSourceNotFound, errorsx.Cause(err))

	// remote data needs a loader
	require.NoError(t, session.AddSource(mapboxglstyle.NewGeoJSONSource("remote", mapboxglstyle.GeoJSONDataFromURL("https://example.com/pts.geojson"))))
	_, err = session.SourceFeatures(context.Background(), "remote")
	require.Error(t, err)
}

func TestSession_notLoaded(t *testing.T) {
	session := NewSession(logpkg.NewLogger(new(bytes.Buffer), logpkg.LogLevelInfo), nil)
	assert.False(t, session.IsStyleLoaded())

	err := session.AddLayer(mapboxglstyle.NewBackgroundLayer("bg"), mapboxglstyle.Default())
	assert.Equal(t, ErrStyleNotLoaded, errorsx.Cause(err))

	_, err = session.Document()
	assert.Equal(t, ErrStyleNotLoaded, errorsx.Cause(err))
}

func TestSession_LoadStyle_copiesDocument(t *testing.T) {
	session := NewSession(logpkg.NewLogger(new(bytes.Buffer), logpkg.LogLevelInfo), nil)

	style := mapboxglstyle.NewStyle("s", "S")
	require.NoError(t, style.AddLayer(mapboxglstyle.NewBackgroundLayer("bg"), mapboxglstyle.Default()))
	require.NoError(t, session.LoadStyle(context.Background(), style))

	require.NoError(t, style.AddLayer(mapboxglstyle.NewBackgroundLayer("later"), mapboxglstyle.Default()))

	ids, err := session.LayerIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"bg"}, ids)
}

func mustMarshal(t *testing.T, v interface{}) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
