package webservices

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	tracing "github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/appconfig"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/offline/tilestore"
	"github.com/jamesrr39/ownmapstyle/stylerenderer"
	"github.com/jamesrr39/ownmapstyle/stylestore"
	"github.com/jamesrr39/ownmapstyle/styling"
)

const AdminPath = "admin"

type RouterOptions struct {
	PathsConfig   *appconfig.PathsConfig
	StyleSet      *styling.StyleSet
	Store         *stylestore.Store // optional
	DownloadQueue *offline.Queue
	TileStore     *tilestore.Store
	Tracer        *tracing.Tracer // optional
	Metrics       *Metrics
	Profile       ProfileConfig
	RequestLogs   bool
}

func NewRouter(logger *logpkg.Logger, options RouterOptions) (chi.Router, errorsx.Error) {
	metrics := options.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	rasterer := newRasterService(logger, stylerenderer.NewRasterRenderer(logger), metrics, options.Profile)

	adminService, err := NewAdminService(logger, options.PathsConfig, options.StyleSet, options.DownloadQueue, options.TileStore)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	router := chi.NewRouter()
	if options.RequestLogs {
		router.Use(middleware.DefaultLogger)
	}
	if options.Tracer != nil {
		router.Use(tracing.Middleware(options.Tracer))
	}
	router.Use(metrics.Middleware)

	router.Route("/api/", func(r chi.Router) {
		r.Mount("/info", NewInfoService(logger, options.StyleSet))
		r.Mount("/tiles/", NewTileService(logger, options.StyleSet, rasterer))
		r.Mount("/styles/", NewStylesService(logger, options.StyleSet, options.Store, rasterer))
	})
	router.Route("/"+AdminPath+"/", func(r chi.Router) {
		r.Use(LocalhostOnlyMiddleware())
		r.Mount("/", adminService)
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	return router, nil
}
