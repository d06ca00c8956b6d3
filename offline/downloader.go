package offline

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/sourcedata"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/jamesrr39/semaphore"
	"github.com/paulmach/orb/maptile"
)

const DefaultMaxConcurrentDownloads = 8

// TileSink stores downloaded data. *tilestore.Store implements it.
type TileSink interface {
	PutTile(sourceID string, tile maptile.Tile, data []byte) errorsx.Error
	PutStylePack(styleID string, data []byte) errorsx.Error
	PutRegion(regionID string, data []byte) errorsx.Error
}

type Progress struct {
	TilesTotal      int64 `json:"tilesTotal"`
	TilesCompleted  int64 `json:"tilesCompleted"`
	TilesFailed     int64 `json:"tilesFailed"`
	BytesDownloaded int64 `json:"bytesDownloaded"`
	StylePackDone   bool  `json:"stylePackDone"`
}

func (p Progress) Percent() float64 {
	if p.TilesTotal == 0 {
		if p.StylePackDone {
			return 100
		}
		return 0
	}
	return float64(p.TilesCompleted+p.TilesFailed) * 100 / float64(p.TilesTotal)
}

// RegionRecord is stored in the sink once a region has finished downloading
type RegionRecord struct {
	Region      TileRegion `json:"region"`
	StyleID     string     `json:"styleId"`
	Progress    Progress   `json:"progress"`
	CompletedAt time.Time  `json:"completedAt"`
}

// Job is a download in progress
type Job struct {
	Region    TileRegion
	StyleID   string
	StartTime time.Time

	tilesTotal      int64
	tilesCompleted  int64
	tilesFailed     int64
	bytesDownloaded int64
	stylePackDone   int32

	done chan struct{}
	err  errorsx.Error
}

func (j *Job) Progress() Progress {
	return Progress{
		TilesTotal:      atomic.LoadInt64(&j.tilesTotal),
		TilesCompleted:  atomic.LoadInt64(&j.tilesCompleted),
		TilesFailed:     atomic.LoadInt64(&j.tilesFailed),
		BytesDownloaded: atomic.LoadInt64(&j.bytesDownloaded),
		StylePackDone:   atomic.LoadInt32(&j.stylePackDone) == 1,
	}
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the tile region and the style pack have both finished
func (j *Job) Wait() errorsx.Error {
	<-j.done
	return j.err
}

type Downloader struct {
	logger        *logpkg.Logger
	client        *retryablehttp.Client
	sink          TileSink
	maxConcurrent uint
	MaxTiles      int
	nowFunc       func() time.Time
}

func NewDownloader(logger *logpkg.Logger, client *retryablehttp.Client, sink TileSink, maxConcurrentDownloads uint) *Downloader {
	if maxConcurrentDownloads == 0 {
		maxConcurrentDownloads = DefaultMaxConcurrentDownloads
	}

	return &Downloader{
		logger:        logger,
		client:        client,
		sink:          sink,
		maxConcurrent: maxConcurrentDownloads,
		MaxTiles:      DefaultMaxTiles,
		nowFunc:       time.Now,
	}
}

// Download fetches the region's tiles and the style pack, and waits for both
func (d *Downloader) Download(ctx context.Context, style *mapboxglstyle.Style, region TileRegion) (Progress, errorsx.Error) {
	job, err := d.Start(ctx, style, region)
	if err != nil {
		return Progress{}, err
	}

	err = job.Wait()
	return job.Progress(), err
}

// Start checks the region and begins downloading in the background
func (d *Downloader) Start(ctx context.Context, style *mapboxglstyle.Style, region TileRegion) (*Job, errorsx.Error) {
	tiles, err := region.Tiles(d.MaxTiles)
	if err != nil {
		return nil, err
	}

	sources, err := TiledSources(style, region.SourceIDs)
	if err != nil {
		return nil, errorsx.Wrap(err, "regionID", region.ID)
	}

	job := &Job{
		Region:     region,
		StyleID:    style.ID,
		StartTime:  d.nowFunc(),
		tilesTotal: int64(len(tiles) * len(sources)),
		done:       make(chan struct{}),
	}

	go func() {
		defer close(job.done)
		job.err = d.run(ctx, job, style, sources, tiles)
	}()

	return job, nil
}

func (d *Downloader) run(ctx context.Context, job *Job, style *mapboxglstyle.Style, sources []TiledSource, tiles []maptile.Tile) errorsx.Error {
	d.logger.Info("downloading region %q: %d tiles from %d sources", job.Region.ID, job.tilesTotal, len(sources))

	var tilesErr, stylePackErr errorsx.Error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tilesErr = d.downloadTiles(ctx, job, sources, tiles)
	}()
	go func() {
		defer wg.Done()
		stylePackErr = d.downloadStylePack(ctx, job, style)
	}()
	wg.Wait()

	if stylePackErr != nil {
		return errorsx.Wrap(stylePackErr, "regionID", job.Region.ID)
	}

	if tilesErr != nil {
		return errorsx.Wrap(tilesErr, "regionID", job.Region.ID)
	}

	record, err := json.Marshal(RegionRecord{
		Region:      job.Region,
		StyleID:     job.StyleID,
		Progress:    job.Progress(),
		CompletedAt: d.nowFunc(),
	})
	if err != nil {
		return errorsx.Wrap(err, "regionID", job.Region.ID)
	}

	putErr := d.sink.PutRegion(job.Region.ID, record)
	if putErr != nil {
		return putErr
	}

	d.logger.Info("downloaded region %q in %s", job.Region.ID, d.nowFunc().Sub(job.StartTime))
	return nil
}

func (d *Downloader) downloadTiles(ctx context.Context, job *Job, sources []TiledSource, tiles []maptile.Tile) errorsx.Error {
	sema := semaphore.NewSemaphore(d.maxConcurrent)

loop:
	for _, source := range sources {
		for _, tile := range tiles {
			select {
			case <-ctx.Done():
				break loop
			default:
			}

			source, tile := source, tile

			sema.Add()
			go func() {
				defer sema.Done()

				err := d.downloadTile(ctx, job, source, tile)
				if err != nil {
					atomic.AddInt64(&job.tilesFailed, 1)
					d.logger.Warn("failed to download tile %d/%d/%d for source %q: %s", tile.Z, tile.X, tile.Y, source.ID, err)
					return
				}
				atomic.AddInt64(&job.tilesCompleted, 1)
			}()
		}
	}

	sema.Wait()

	if ctx.Err() != nil {
		return errorsx.Wrap(ctx.Err())
	}

	failed := atomic.LoadInt64(&job.tilesFailed)
	if failed > 0 {
		return errorsx.Errorf("%d of %d tiles failed to download", failed, job.tilesTotal)
	}

	return nil
}

func (d *Downloader) downloadTile(ctx context.Context, job *Job, source TiledSource, tile maptile.Tile) errorsx.Error {
	data, err := sourcedata.Get(ctx, d.client, source.TileURL(tile))
	if err != nil {
		return err
	}

	err = d.sink.PutTile(source.ID, tile, data)
	if err != nil {
		return err
	}

	atomic.AddInt64(&job.bytesDownloaded, int64(len(data)))
	return nil
}

func (d *Downloader) downloadStylePack(ctx context.Context, job *Job, style *mapboxglstyle.Style) errorsx.Error {
	pack, err := newStylePack(style)
	if err != nil {
		return err
	}

	spriteJSONURL, spritePNGURL := SpriteURLs(style)
	if spriteJSONURL != "" {
		pack.SpriteJSON, err = sourcedata.Get(ctx, d.client, spriteJSONURL)
		if err != nil {
			return err
		}

		if !json.Valid(pack.SpriteJSON) {
			return errorsx.Errorf("sprite index at %q is not JSON", spriteJSONURL)
		}

		pack.SpritePNG, err = sourcedata.Get(ctx, d.client, spritePNGURL)
		if err != nil {
			return err
		}

		atomic.AddInt64(&job.bytesDownloaded, int64(len(pack.SpriteJSON)+len(pack.SpritePNG)))
	}

	packJSON, marshalErr := json.Marshal(pack)
	if marshalErr != nil {
		return errorsx.Wrap(marshalErr, "styleID", style.ID)
	}

	err = d.sink.PutStylePack(style.ID, packJSON)
	if err != nil {
		return err
	}

	atomic.StoreInt32(&job.stylePackDone, 1)
	return nil
}
