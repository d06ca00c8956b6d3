package webservices

import (
	"image"
	"image/png"
	"net"
	"net/http"
	"sync"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/mapsession"
	"github.com/jamesrr39/ownmapstyle/stylerenderer"
	"github.com/jamesrr39/semaphore"
	"github.com/paulmach/osm"
	"github.com/pkg/profile"
)

const DefaultMaxConcurrentRenders = 4

// ProfileConfig turns on CPU profiling of render requests. Profiles are written into Dir.
type ProfileConfig struct {
	Enabled bool
	Dir     string
}

// rasterService renders PNGs of a session's current style, a limited amount at a time
type rasterService struct {
	logger        *logpkg.Logger
	rasterer      *stylerenderer.RasterRenderer
	sema          *semaphore.Semaphore
	metrics       *Metrics
	profileConfig ProfileConfig
	profileMu     sync.Mutex
}

func newRasterService(logger *logpkg.Logger, rasterer *stylerenderer.RasterRenderer, metrics *Metrics, profileConfig ProfileConfig) *rasterService {
	return &rasterService{
		logger:        logger,
		rasterer:      rasterer,
		sema:          semaphore.NewSemaphore(DefaultMaxConcurrentRenders),
		metrics:       metrics,
		profileConfig: profileConfig,
	}
}

func (rs *rasterService) serveRaster(w http.ResponseWriter, r *http.Request, session *mapsession.Session, size image.Rectangle, bounds osm.Bounds, zoomLevel float64) {
	rs.sema.Add()
	defer rs.sema.Done()

	if rs.profileConfig.Enabled {
		// only one profile can run at a time
		rs.profileMu.Lock()
		defer rs.profileMu.Unlock()
		defer profile.Start(profile.ProfilePath(rs.profileConfig.Dir), profile.CPUProfile, profile.Quiet, profile.NoShutdownHook).Stop()
	}

	style, err := session.Document()
	if err != nil {
		writeError(w, rs.logger, err, http.StatusInternalServerError)
		return
	}

	img, err := rs.rasterer.RenderRaster(r.Context(), style, session, size, bounds, zoomLevel)
	if err != nil {
		writeError(w, rs.logger, err, http.StatusInternalServerError)
		return
	}

	if rs.metrics != nil {
		rs.metrics.RenderedImages.WithLabelValues(style.ID).Inc()
	}

	w.Header().Set("Content-Type", "image/png")
	encodeErr := png.Encode(w, img)
	if encodeErr != nil {
		switch encodeErr.(type) {
		case *net.OpError:
			// broken pipe (request cancelled). Do nothing
		default:
			errorsx.HTTPError(w, rs.logger, errorsx.Wrap(encodeErr), http.StatusInternalServerError)
		}
		return
	}
}
