package sourcedata

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peaksGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.3125, 61.6364]}, "properties": {"name": "Galdhøpiggen", "ele": 2469}},
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.1867, 61.6544]}, "properties": {"name": "Glittertind", "ele": 2452}}
	]
}`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()

	logger := logpkg.NewLogger(new(bytes.Buffer), logpkg.LogLevelDebug)
	client := NewRetryableClient(logger, 2)
	client.RetryWaitMin = time.Millisecond
	client.RetryWaitMax = 5 * time.Millisecond

	resolver, err := NewResolver(logger, client, time.Minute, 2)
	require.NoError(t, err)
	t.Cleanup(resolver.Close)

	return resolver
}

func TestResolver_Load_inline(t *testing.T) {
	resolver := newTestResolver(t)

	feature := geojson.NewFeature(orb.Point{10.75, 59.91})
	tests := []struct {
		name          string
		data          *mapboxglstyle.GeoJSONData
		expectedCount int
	}{
		{"nil data", nil, 0},
		{"feature collection", mapboxglstyle.GeoJSONDataFromFeatures(feature, feature), 2},
		{"single feature", &mapboxglstyle.GeoJSONData{Feature: feature}, 1},
		{"bare geometry", &mapboxglstyle.GeoJSONData{Geometry: orb.LineString{{0, 0}, {1, 1}}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := resolver.Load(context.Background(), tt.data)
			require.NoError(t, err)
			assert.Len(t, fc.Features, tt.expectedCount)
		})
	}
}

func TestResolver_Load_remote(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(peaksGeoJSON))
	}))
	defer server.Close()

	resolver := newTestResolver(t)
	data := mapboxglstyle.GeoJSONDataFromURL(server.URL + "/peaks.geojson")

	fc, err := resolver.Load(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Galdhøpiggen", fc.Features[0].Properties["name"])

	_, err = resolver.Load(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	resolver.Invalidate(data.URL)
	_, err = resolver.Load(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestResolver_Load_concurrent(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte(peaksGeoJSON))
	}))
	defer server.Close()

	resolver := newTestResolver(t)
	data := mapboxglstyle.GeoJSONDataFromURL(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fc, err := resolver.Load(context.Background(), data)
			assert.NoError(t, err)
			if assert.NotNil(t, fc) {
				assert.Len(t, fc.Features, 2)
			}
		}()
	}

	// let the loads pile up on the first request
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestResolver_Load_retries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(peaksGeoJSON))
	}))
	defer server.Close()

	resolver := newTestResolver(t)
	fc, err := resolver.Load(context.Background(), mapboxglstyle.GeoJSONDataFromURL(server.URL))
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestResolver_Load_errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		}, {
			name: "not geojson",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html></html>`))
			},
		}, {
			name: "string body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`"https://example.com/other.geojson"`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			resolver := newTestResolver(t)
			_, err := resolver.Load(context.Background(), mapboxglstyle.GeoJSONDataFromURL(server.URL))
			require.Error(t, err)
		})
	}
}

func TestResolver_Load_cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(peaksGeoJSON))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := newTestResolver(t)
	_, err := resolver.Load(ctx, mapboxglstyle.GeoJSONDataFromURL(server.URL))
	require.Error(t, err)
}

func TestResolver_Load_cancelledWhileShared(t *testing.T) {
	var hits int32
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			close(started)
		}
		<-release
		w.Write([]byte(peaksGeoJSON))
	}))
	defer server.Close()

	resolver := newTestResolver(t)
	data := mapboxglstyle.GeoJSONDataFromURL(server.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErrChan := make(chan error, 1)
	go func() {
		_, err := resolver.Load(firstCtx, data)
		firstErrChan <- err
	}()
	<-started

	type loadResult struct {
		fc  *geojson.FeatureCollection
		err error
	}
	secondResultChan := make(chan loadResult, 1)
	go func() {
		fc, err := resolver.Load(context.Background(), data)
		secondResultChan <- loadResult{fc, err}
	}()

	// the first caller gives up while the second is waiting on the same request
	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	require.Error(t, <-firstErrChan)

	close(release)
	secondResult := <-secondResultChan
	require.NoError(t, secondResult.err)
	assert.Len(t, secondResult.fc.Features, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFormatKeysAndValues(t *testing.T) {
	assert.Equal(t, "performing request method=GET url=http://x", formatKeysAndValues("performing request", []interface{}{"method", "GET", "url", "http://x"}))
	assert.Equal(t, "odd key=[empty]", formatKeysAndValues("odd", []interface{}{"key"}))
}
