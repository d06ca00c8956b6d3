package mapsession

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Event) []EventKind {
	var kinds []EventKind
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return kinds
			}
			kinds = append(kinds, event.Kind)
		default:
			return kinds
		}
	}
}

func TestEventStream_order(t *testing.T) {
	stream := NewEventStream(16)
	events, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	stream.emit(EventStyleLoaded, "s", "")
	stream.emit(EventLayerAdded, "a", "")
	stream.emit(EventLayerUpdated, "a", "")
	stream.emit(EventLayerUpdated, "a", "")
	stream.emit(EventLayerRemoved, "a", "")

	assert.Equal(t, []EventKind{
		EventStyleLoaded,
		EventLayerAdded,
		EventLayerUpdated,
		EventLayerUpdated,
		EventLayerRemoved,
	}, drain(events))
}

func TestEventStream_oneShot(t *testing.T) {
	stream := NewEventStream(16)

	stream.emit(EventStyleLoaded, "s", "")
	stream.emit(EventStyleLoaded, "s", "")
	stream.emit(EventLayerAdded, "a", "")
	stream.emit(EventMapLoaded, "s", "")

	assert.True(t, stream.HasFired(EventStyleLoaded))
	assert.True(t, stream.HasFired(EventMapLoaded))

	// late subscribers get the one-shot events, but not repeating events from before they subscribed
	late, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	stream.emit(EventMapLoaded, "s", "")
	stream.emit(EventLayerAdded, "b", "")

	assert.Equal(t, []EventKind{EventStyleLoaded, EventMapLoaded, EventLayerAdded}, drain(late))
}

func TestEventStream_unsubscribeAndClose(t *testing.T) {
	stream := NewEventStream(0)

	first, unsubscribeFirst := stream.Subscribe()
	second, unsubscribeSecond := stream.Subscribe()
	defer unsubscribeSecond()

	unsubscribeFirst()
	unsubscribeFirst()
	_, ok := <-first
	assert.False(t, ok)

	stream.emit(EventLayerAdded, "a", "")
	stream.Close()
	stream.emit(EventLayerAdded, "b", "")

	assert.Equal(t, []EventKind{EventLayerAdded}, drain(second))
	_, ok = <-second
	assert.False(t, ok)

	closed, _ := stream.Subscribe()
	_, ok = <-closed
	assert.False(t, ok)
}

func TestEventStream_slowSubscriber(t *testing.T) {
	stream := NewEventStream(minSubscriberBuffer)
	events, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	for i := 0; i < minSubscriberBuffer+3; i++ {
		stream.emit(EventLayerUpdated, "a", "")
	}

	assert.Len(t, drain(events), minSubscriberBuffer)
	assert.Equal(t, 3, stream.Dropped())
}

func TestSession_events(t *testing.T) {
	logger := logpkg.NewLogger(new(bytes.Buffer), logpkg.LogLevelInfo)
	session := NewSession(logger, nil)
	events, unsubscribe := session.Events().Subscribe()
	defer unsubscribe()

	style := mapboxglstyle.NewStyle("s", "S")
	style.Sources["remote"] = mapboxglstyle.NewGeoJSONSource("remote", mapboxglstyle.GeoJSONDataFromURL("https://example.com/pts.geojson"))
	require.NoError(t, session.LoadStyle(context.Background(), style))

	addPointsAndCircles(t, session)
	require.NoError(t, session.SetLayerProperty("circles", "circle-opacity", mapboxglstyle.Constant(0.5)))
	require.NoError(t, session.RemoveLayer("circles"))
	require.NoError(t, session.RemoveSource("pts"))
	require.NoError(t, session.LoadStyle(context.Background(), style))

	assert.Equal(t, []EventKind{
		EventStyleLoaded,
		EventMapLoadingError,
		EventMapLoaded,
		EventSourceAdded,
		EventLayerAdded,
		EventLayerUpdated,
		EventLayerRemoved,
		EventSourceRemoved,
		EventStyleDataChanged,
	}, drain(events))
}

func TestSession_events_concurrentOrder(t *testing.T) {
	session := newTestSession(t)
	addPointsAndCircles(t, session)

	events, unsubscribe := session.Events().Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := session.AddLayer(mapboxglstyle.NewCircleLayer(fmt.Sprintf("circles-%d", i), "pts"), mapboxglstyle.Default())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var addedIDs []string
	for {
		var event Event
		select {
		case event = <-events:
		default:
		}
		if event.Kind == "" {
			break
		}
		if event.Kind == EventLayerAdded {
			addedIDs = append(addedIDs, event.ID)
		}
	}

	ids, err := session.LayerIDs()
	require.NoError(t, err)

	// every layer went on top, so the draw order is the order the layers were added in
	assert.Equal(t, ids[2:], addedIDs)
	assert.Equal(t, 0, session.Events().Dropped())
}

func TestEventStream_time(t *testing.T) {
	stream := NewEventStream(0)
	stream.nowFunc = func() time.Time {
		return time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	}

	events, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	stream.emit(EventSourceDataChanged, "pts", "")

	event := <-events
	assert.Equal(t, "pts", event.ID)
	assert.Equal(t, 2024, event.Time.Year())
}
