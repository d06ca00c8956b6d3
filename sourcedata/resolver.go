package sourcedata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/jamesrr39/semaphore"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheTTL = 10 * time.Minute

// Resolver turns GeoJSON source data into a feature collection. Remote data is fetched with retries and
// cached by URL; at most maxConcurrentFetches requests are in flight at once.
//
// Feature collections returned from the cache are shared, and must not be modified.
type Resolver struct {
	logger   *logpkg.Logger
	client   *retryablehttp.Client
	cache    *ristretto.Cache
	cacheTTL time.Duration
	sema     *semaphore.Semaphore

	// concurrent loads of the same url share one request
	fetches singleflight.Group
}

func NewResolver(logger *logpkg.Logger, client *retryablehttp.Client, cacheTTL time.Duration, maxConcurrentFetches uint) (*Resolver, errorsx.Error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     256 << 20, // bytes of GeoJSON
		BufferItems: 64,
	})
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return &Resolver{
		logger:   logger,
		client:   client,
		cache:    cache,
		cacheTTL: cacheTTL,
		sema:     semaphore.NewSemaphore(maxConcurrentFetches),
	}, nil
}

func (r *Resolver) Load(ctx context.Context, data *mapboxglstyle.GeoJSONData) (*geojson.FeatureCollection, errorsx.Error) {
	if data == nil {
		return geojson.NewFeatureCollection(), nil
	}

	if data.URL == "" {
		return data.Features(), nil
	}

	if cached, ok := r.cache.Get(data.URL); ok {
		fc, ok := cached.(*geojson.FeatureCollection)
		if ok {
			return fc, nil
		}
	}

	return r.fetch(ctx, data.URL)
}

// Invalidate drops a cached URL, so the next load fetches it again
func (r *Resolver) Invalidate(url string) {
	r.cache.Del(url)
}

func (r *Resolver) Close() {
	r.cache.Close()
}

// fetch waits for the shared request for url. The request is not cancelled with ctx,
// as other loads may be waiting on it; the client's timeout bounds it instead.
func (r *Resolver) fetch(ctx context.Context, url string) (*geojson.FeatureCollection, errorsx.Error) {
	if ctx.Err() != nil {
		return nil, errorsx.Wrap(ctx.Err(), "url", url)
	}

	fetchCtx := context.WithoutCancel(ctx)
	resultChan := r.fetches.DoChan(url, func() (interface{}, error) {
		fc, err := r.fetchAndCache(fetchCtx, url)
		if err != nil {
			return nil, err
		}
		return fc, nil
	})

	select {
	case result := <-resultChan:
		if result.Err != nil {
			return nil, errorsx.Wrap(result.Err)
		}
		return result.Val.(*geojson.FeatureCollection), nil
	case <-ctx.Done():
		return nil, errorsx.Wrap(ctx.Err(), "url", url)
	}
}

func (r *Resolver) fetchAndCache(ctx context.Context, url string) (*geojson.FeatureCollection, errorsx.Error) {
	r.sema.Add()
	defer r.sema.Done()

	startTime := time.Now()
	body, err := Get(ctx, r.client, url)
	if err != nil {
		return nil, err
	}

	fc, err := ParseFeatures(body)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}

	r.logger.Debug("fetched %d features (%d bytes) from %q in %s", len(fc.Features), len(body), url, time.Since(startTime))

	r.cache.SetWithTTL(url, fc, int64(len(body)), r.cacheTTL)
	r.cache.Wait()

	return fc, nil
}

// ParseFeatures decodes a GeoJSON FeatureCollection, Feature or Geometry into a feature collection
func ParseFeatures(data []byte) (*geojson.FeatureCollection, errorsx.Error) {
	geojsonData := new(mapboxglstyle.GeoJSONData)
	err := json.Unmarshal(data, geojsonData)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	if geojsonData.URL != "" {
		return nil, errorsx.Errorf("expected GeoJSON but got a string")
	}

	return geojsonData.Features(), nil
}
