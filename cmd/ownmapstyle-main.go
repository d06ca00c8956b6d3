package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi"
	tracing "github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/goutil/open"
	"github.com/jamesrr39/ownmapstyle/appconfig"
	"github.com/jamesrr39/ownmapstyle/mapsession"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/offline/tilestore"
	"github.com/jamesrr39/ownmapstyle/sourcedata"
	"github.com/jamesrr39/ownmapstyle/stylerenderer"
	"github.com/jamesrr39/ownmapstyle/stylestore"
	"github.com/jamesrr39/ownmapstyle/styling"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/jamesrr39/ownmapstyle/webservices"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/profile"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	MAX_SERVER_RUNNING_ATTEMPTS = 50
	SOURCE_DATA_CACHE_TTL       = time.Hour
	SOURCE_DATA_MAX_RETRIES     = 3
	SOURCE_DATA_MAX_CONCURRENT  = 4
)

var logger *logpkg.Logger

func main() {
	config, err := appconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read configuration from the environment: %q\n%s\n", err.Error(), err.Stack())
		os.Exit(1)
	}

	if len(os.Args) == 1 {
		logger = logpkg.NewLogger(os.Stderr, logpkg.LogLevelInfo)
		// started without arguments, e.g. by double-clicking. Serve on localhost and open the browser.
		err := setupDesktopMode(config)
		errorsx.ExitIfErr(err)
		return
	}

	verbose := kingpin.Flag("v", "verbose logging").Bool()
	kingpin.CommandLine.PreAction(func(ctx *kingpin.ParseContext) error {
		logLevel := logpkg.LogLevelInfo
		if *verbose {
			logLevel = logpkg.LogLevelDebug
		}
		logger = logpkg.NewLogger(os.Stderr, logLevel)
		return nil
	})

	setupServe(config)
	setupValidate()
	setupRender()
	setupOfflineDownload(config)
	setupStoreImport(config)
	setupStoreExport(config)
	setupStoreList(config)

	kingpin.Parse()
}

// runAction runs a command's action, printing the stack trace of any error
func runAction(run func() errorsx.Error) func(ctx *kingpin.ParseContext) error {
	return func(ctx *kingpin.ParseContext) error {
		err := run()
		if err != nil {
			return fmt.Errorf("error: %q\nStack trace:\n%s", err.Error(), err.Stack())
		}
		return nil
	}
}

func ensurePathsConfig(dataDir string) (*appconfig.PathsConfig, errorsx.Error) {
	pathsConfig, err := appconfig.NewPathsConfig(dataDir)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	err = pathsConfig.EnsurePaths(gofs.NewOsFs())
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return pathsConfig, nil
}

func newResolver() (*sourcedata.Resolver, errorsx.Error) {
	client := sourcedata.NewRetryableClient(logger, SOURCE_DATA_MAX_RETRIES)
	return sourcedata.NewResolver(logger, client, SOURCE_DATA_CACHE_TTL, SOURCE_DATA_MAX_CONCURRENT)
}

type serveOptions struct {
	storeConnStr        string
	defaultStyleID      string
	extraStylePaths     []string
	downloadConcurrency uint
	profile             bool
	requestLogs         bool
}

// loadStyles collects the built-in style, the styles in the styles dir, the extra style paths and the stored styles.
// The first style with a given ID wins.
func loadStyles(fs gofs.Fs, pathsConfig *appconfig.PathsConfig, store *stylestore.Store, extraStylePaths []string) ([]*mapboxglstyle.Style, errorsx.Error) {
	builtinStyle, err := styling.BuiltinStyle()
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	styles := []*mapboxglstyle.Style{builtinStyle}

	for _, path := range extraStylePaths {
		style, err := styling.LoadStyle(fs, path)
		if err != nil {
			return nil, errorsx.Wrap(err, "path", path)
		}
		styles = append(styles, style)
	}

	dirStyles, err := styling.LoadStylesFromDir(logger, fs, pathsConfig.StylesDir)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}
	styles = append(styles, dirStyles...)

	if store != nil {
		summaries, err := store.List()
		if err != nil {
			return nil, errorsx.Wrap(err)
		}

		for _, summary := range summaries {
			style, err := store.Get(summary.ID)
			if err != nil {
				logger.Error("failed to load stored style %q. Error: %q\nStack: %s", summary.ID, err.Error(), err.Stack())
				continue
			}
			styles = append(styles, style)
		}
	}

	seen := make(map[string]bool)
	var unique []*mapboxglstyle.Style
	for _, style := range styles {
		if seen[style.ID] {
			logger.Warn("ignoring style %q (%q), there is already a style with that ID", style.ID, style.Name)
			continue
		}
		seen[style.ID] = true
		unique = append(unique, style)
	}

	return unique, nil
}

func createServer(ctx context.Context, pathsConfig *appconfig.PathsConfig, options serveOptions) (chi.Router, func(), errorsx.Error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	fail := func(err errorsx.Error) (chi.Router, func(), errorsx.Error) {
		closeAll()
		return nil, nil, errorsx.Wrap(err)
	}

	fs := gofs.NewOsFs()

	var store *stylestore.Store
	if options.storeConnStr != "" {
		var err errorsx.Error
		store, err = stylestore.Open(options.storeConnStr)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { store.Close() })
	}

	styles, err := loadStyles(fs, pathsConfig, store, options.extraStylePaths)
	if err != nil {
		return fail(err)
	}

	resolver, err := newResolver()
	if err != nil {
		return fail(err)
	}
	closers = append(closers, resolver.Close)

	styleSet, err := styling.NewStyleSet(ctx, logger, resolver, styles, options.defaultStyleID)
	if err != nil {
		return fail(err)
	}

	tileStore, err := tilestore.Open(pathsConfig.OfflineStorePath())
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { tileStore.Close() })

	downloader := offline.NewDownloader(logger, sourcedata.NewRetryableClient(logger, SOURCE_DATA_MAX_RETRIES), tileStore, options.downloadConcurrency)

	traceFilePath := filepath.Join(pathsConfig.TraceDir, fmt.Sprintf("trace_%s.pbf", time.Now().Format("2006-01-02__03_04_05")))
	logger.Info("tracing at %q", traceFilePath)

	traceFile, osErr := os.Create(traceFilePath)
	if osErr != nil {
		return fail(errorsx.Wrap(osErr))
	}
	closers = append(closers, func() { traceFile.Close() })

	router, err := webservices.NewRouter(logger, webservices.RouterOptions{
		PathsConfig:   pathsConfig,
		StyleSet:      styleSet,
		Store:         store,
		DownloadQueue: offline.NewQueue(ctx, logger, downloader),
		TileStore:     tileStore,
		Tracer:        tracing.NewTracer(traceFile),
		Profile:       webservices.ProfileConfig{Enabled: options.profile, Dir: pathsConfig.TempDir},
		RequestLogs:   options.requestLogs,
	})
	if err != nil {
		return fail(err)
	}

	return router, closeAll, nil
}

func setupDesktopMode(config *appconfig.Config) errorsx.Error {
	pathsConfig, err := ensurePathsConfig(config.DataDir)
	if err != nil {
		return errorsx.Wrap(err)
	}

	storeConnStr, err := config.StoreConnectionString()
	if err != nil {
		return errorsx.Wrap(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	router, closeAll, err := createServer(ctx, pathsConfig, serveOptions{
		storeConnStr:        storeConnStr,
		defaultStyleID:      styling.BUILTIN_STYLEID,
		downloadConcurrency: config.DownloadConcurrency,
	})
	if err != nil {
		return errorsx.Wrap(err)
	}
	defer closeAll()

	server := httpextra.NewServerWithTimeouts()
	server.Addr = fmt.Sprintf("localhost:%d", appconfig.DefaultPort)
	server.Handler = router

	errChan := make(chan errorsx.Error, 2)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errChan <- errorsx.Wrap(err)
		}
	}()

	go func() {
		// test server is running
		client := http.Client{
			Timeout: time.Second * 10,
		}
		for i := 0; i < MAX_SERVER_RUNNING_ATTEMPTS; i++ {
			resp, err := client.Get(fmt.Sprintf("http://%s/api/info", server.Addr))
			if err != nil {
				// retry after wait
				time.Sleep(time.Millisecond * 500)
				continue
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				errChan <- errorsx.Errorf("expected response code %d from /api/info call, but got %d", http.StatusOK, resp.StatusCode)
				return
			}

			errChan <- nil
			return
		}

		errChan <- errorsx.Errorf("server did not start after %d attempts", MAX_SERVER_RUNNING_ATTEMPTS)
	}()

	err = <-errChan
	if err != nil {
		return errorsx.Wrap(err)
	}

	openErr := open.OpenURL(fmt.Sprintf("http://%s/%s/", server.Addr, webservices.AdminPath))
	if openErr != nil {
		return errorsx.Wrap(openErr)
	}

	select {
	case <-ctx.Done():
		return errorsx.Wrap(server.Shutdown(context.Background()))
	case err = <-errChan:
		return err
	}
}

var addrHelp = fmt.Sprintf(
	`address to serve on. Ex: ':%d' listen on port %d to traffic from anywhere. 'localhost:%d' listen on port %d to traffic from localhost`,
	appconfig.DefaultPort, appconfig.DefaultPort, appconfig.DefaultPort, appconfig.DefaultPort,
)

var storeHelp = fmt.Sprintf(
	"style store to read and save styles. It should be the type, followed by the separator (%s), followed by the path or URL. For example: %s%smy/styles.db",
	stylestore.ConnectionPathSeparator,
	string(stylestore.DBTypeSQLite),
	stylestore.ConnectionPathSeparator,
)

func setupServe(config *appconfig.Config) {
	cmd := kingpin.Command("serve", "serve the style editing API, tiles and previews")
	addr := cmd.Flag("addr", addrHelp).Default(config.Addr).String()
	dataDir := cmd.Flag("data-dir", "directory holding styles, offline data and traces").Default(config.DataDir).String()
	storeConnStr := cmd.Flag("store", storeHelp).Default(config.Store).String()
	noStore := cmd.Flag("no-store", "don't use a style store").Bool()
	defaultStyleID := cmd.Flag("default-style-id", "default style to render").Default(styling.BUILTIN_STYLEID).String()
	extraStylePathsStr := cmd.Flag("extra-styles", "comma separated list of paths to style files, or folders containing a style.json (mapbox GL styles)").String()
	downloadConcurrency := cmd.Flag("download-concurrency", "maximum amount of concurrent tile downloads").Default(fmt.Sprintf("%d", config.DownloadConcurrency)).Uint()
	shouldProfile := cmd.Flag("profile", "profile the render performance").Bool()
	cmd.Action(runAction(func() errorsx.Error {
		pathsConfig, err := ensurePathsConfig(*dataDir)
		if err != nil {
			return errorsx.Wrap(err)
		}

		connStr := *storeConnStr
		if connStr == "" {
			dirConfig := *config
			dirConfig.DataDir = *dataDir
			connStr, err = dirConfig.StoreConnectionString()
			if err != nil {
				return errorsx.Wrap(err)
			}
		}
		if *noStore {
			connStr = ""
		}

		var extraStylePaths []string
		for _, path := range strings.Split(*extraStylePathsStr, ",") {
			if path == "" {
				continue
			}
			extraStylePaths = append(extraStylePaths, path)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		router, closeAll, err := createServer(ctx, pathsConfig, serveOptions{
			storeConnStr:        connStr,
			defaultStyleID:      *defaultStyleID,
			extraStylePaths:     extraStylePaths,
			downloadConcurrency: *downloadConcurrency,
			profile:             *shouldProfile,
			requestLogs:         true,
		})
		if err != nil {
			return errorsx.Wrap(err)
		}
		defer closeAll()

		server := httpextra.NewServerWithTimeouts()
		server.Addr = *addr
		server.Handler = router

		go func() {
			<-ctx.Done()
			server.Shutdown(context.Background())
		}()

		logger.Info("about to start serving on %q", *addr)

		listenErr := server.ListenAndServe()
		if listenErr != nil && listenErr != http.ErrServerClosed {
			return errorsx.Wrap(listenErr)
		}
		return nil
	}))
}

func setupValidate() {
	cmd := kingpin.Command("validate", "check a style file")
	stylePath := cmd.Arg("style", "path to the style file, or a folder containing style.json").Required().String()
	cmd.Action(runAction(func() errorsx.Error {
		style, err := styling.LoadStyle(gofs.NewOsFs(), *stylePath)
		if err != nil {
			return errorsx.Wrap(err)
		}

		err = style.Validate()
		if err != nil {
			return errorsx.Wrap(err)
		}

		fmt.Printf("style %q (%q) is valid: %d sources, %d layers\n", style.ID, style.Name, len(style.Sources), len(style.Layers))
		return nil
	}))
}

func setupRender() {
	cmd := kingpin.Command("render", "render a style to a PNG")
	stylePath := cmd.Arg("style", "path to the style file, or a folder containing style.json").Required().String()
	outPath := cmd.Arg("out", "PNG file to write").Required().String()
	boundsStr := cmd.Flag("bounds", "bounds to render, as (S,W,N,E)").Default("(-85,-180,85,180)").String()
	zoomLevel := cmd.Flag("zoom", "zoom level to evaluate the style at").Default("2").Float64()
	width := cmd.Flag("width", "image width in pixels").Default("1024").Int()
	height := cmd.Flag("height", "image height in pixels").Default("1024").Int()
	shouldProfile := cmd.Flag("profile", "profile the render").Bool()
	cmd.Action(runAction(func() errorsx.Error {
		if *shouldProfile {
			defer profile.Start(profile.ProfilePath(filepath.Dir(*outPath)), profile.CPUProfile).Stop()
		}

		fs := gofs.NewOsFs()

		style, err := styling.LoadStyle(fs, *stylePath)
		if err != nil {
			return errorsx.Wrap(err)
		}

		bounds, err := offline.ParseBounds(*boundsStr)
		if err != nil {
			return errorsx.Wrap(err)
		}

		resolver, err := newResolver()
		if err != nil {
			return errorsx.Wrap(err)
		}
		defer resolver.Close()

		ctx := context.Background()
		session := mapsession.NewSession(logger, resolver)
		err = session.LoadStyle(ctx, style)
		if err != nil {
			return errorsx.Wrap(err)
		}

		startTime := time.Now()
		img, err := stylerenderer.NewRasterRenderer(logger).RenderRaster(ctx, style, session, image.Rect(0, 0, *width, *height), bounds, *zoomLevel)
		if err != nil {
			return errorsx.Wrap(err)
		}
		logger.Info("rendered in %s", time.Since(startTime))

		file, osErr := fs.Create(*outPath)
		if osErr != nil {
			return errorsx.Wrap(osErr)
		}
		defer file.Close()

		osErr = png.Encode(file, img)
		if osErr != nil {
			return errorsx.Wrap(osErr)
		}

		return nil
	}))
}

func setupOfflineDownload(config *appconfig.Config) {
	cmd := kingpin.Command("offline-download", "download a region's tiles and the style pack for offline use")
	stylePath := cmd.Arg("style", "path to the style file, or a folder containing style.json").Required().String()
	storePath := cmd.Arg("store", "offline store (bolt DB) file to download into").Required().String()
	regionID := cmd.Flag("region-id", "name of the region").Required().String()
	boundsStr := cmd.Flag("bounds", "bounds of the region, as (S,W,N,E)").Required().String()
	minZoom := cmd.Flag("min-zoom", "lowest zoom level to download").Default("0").Uint32()
	maxZoom := cmd.Flag("max-zoom", "highest zoom level to download").Default("12").Uint32()
	sourceIDs := cmd.Flag("source", "only download tiles of this source. Can be given several times").Strings()
	maxTiles := cmd.Flag("max-tiles", "refuse regions covering more tiles than this").Default(fmt.Sprintf("%d", offline.DefaultMaxTiles)).Int()
	concurrency := cmd.Flag("concurrency", "maximum amount of concurrent tile downloads").Default(fmt.Sprintf("%d", config.DownloadConcurrency)).Uint()
	manifestPath := cmd.Flag("manifest", "write a parquet manifest of every tile in the store to this file").String()
	cmd.Action(runAction(func() errorsx.Error {
		style, err := styling.LoadStyle(gofs.NewOsFs(), *stylePath)
		if err != nil {
			return errorsx.Wrap(err)
		}

		bounds, err := offline.ParseBounds(*boundsStr)
		if err != nil {
			return errorsx.Wrap(err)
		}

		store, err := tilestore.Open(*storePath)
		if err != nil {
			return errorsx.Wrap(err)
		}
		defer store.Close()

		downloader := offline.NewDownloader(logger, sourcedata.NewRetryableClient(logger, SOURCE_DATA_MAX_RETRIES), store, *concurrency)
		downloader.MaxTiles = *maxTiles

		region := offline.TileRegion{
			ID:        *regionID,
			Bounds:    bounds,
			MinZoom:   maptile.Zoom(*minZoom),
			MaxZoom:   maptile.Zoom(*maxZoom),
			SourceIDs: *sourceIDs,
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		job, err := downloader.Start(ctx, style, region)
		if err != nil {
			return errorsx.Wrap(err)
		}

		go runLogProgress(job)

		err = job.Wait()
		progress := job.Progress()
		logger.Info("downloaded %d of %d tiles (%d failed), %d bytes, in %s", progress.TilesCompleted, progress.TilesTotal, progress.TilesFailed, progress.BytesDownloaded, time.Since(job.StartTime))
		if err != nil {
			return errorsx.Wrap(err)
		}

		if *manifestPath != "" {
			rowCount, err := tilestore.ExportManifest(store, *manifestPath)
			if err != nil {
				return errorsx.Wrap(err)
			}
			logger.Info("wrote %d tiles to the manifest at %q", rowCount, *manifestPath)
		}

		return nil
	}))
}

func runLogProgress(job *offline.Job) {
	ticker := time.NewTicker(time.Second * 5)
	defer ticker.Stop()

	for {
		select {
		case <-job.Done():
			return
		case <-ticker.C:
			progress := job.Progress()
			logger.Info("tiles downloaded so far: %d/%d (%0.02f%%)", progress.TilesCompleted+progress.TilesFailed, progress.TilesTotal, progress.Percent())
		}
	}
}

// openStore opens the given style store, or the one in the data dir if connStr is empty
func openStore(config *appconfig.Config, connStr string) (*stylestore.Store, errorsx.Error) {
	if connStr == "" {
		var err errorsx.Error
		connStr, err = config.StoreConnectionString()
		if err != nil {
			return nil, errorsx.Wrap(err)
		}
	}

	return stylestore.Open(connStr)
}

func setupStoreImport(config *appconfig.Config) {
	cmd := kingpin.Command("store-import", "save a style file into the style store")
	connStr := cmd.Flag("store", storeHelp).Default(config.Store).String()
	stylePath := cmd.Arg("style", "path to the style file, or a folder containing style.json").Required().String()
	cmd.Action(runAction(func() errorsx.Error {
		style, err := styling.LoadStyle(gofs.NewOsFs(), *stylePath)
		if err != nil {
			return errorsx.Wrap(err)
		}

		store, err := openStore(config, *connStr)
		if err != nil {
			return errorsx.Wrap(err)
		}
		defer store.Close()

		err = store.Save(style)
		if err != nil {
			return errorsx.Wrap(err)
		}

		logger.Info("saved style %q", style.ID)
		return nil
	}))
}

func setupStoreExport(config *appconfig.Config) {
	cmd := kingpin.Command("store-export", "write a style from the style store as JSON")
	connStr := cmd.Flag("store", storeHelp).Default(config.Store).String()
	styleID := cmd.Arg("style-id", "ID of the style").Required().String()
	outPath := cmd.Flag("out", "file to write to. Defaults to stdout").String()
	cmd.Action(runAction(func() errorsx.Error {
		store, err := openStore(config, *connStr)
		if err != nil {
			return errorsx.Wrap(err)
		}
		defer store.Close()

		style, err := store.Get(*styleID)
		if err != nil {
			return errorsx.Wrap(err)
		}

		out := os.Stdout
		if *outPath != "" {
			file, osErr := os.Create(*outPath)
			if osErr != nil {
				return errorsx.Wrap(osErr)
			}
			defer file.Close()
			out = file
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return errorsx.Wrap(encoder.Encode(style))
	}))
}

func setupStoreList(config *appconfig.Config) {
	cmd := kingpin.Command("store-list", "list the styles in the style store")
	connStr := cmd.Flag("store", storeHelp).Default(config.Store).String()
	cmd.Action(runAction(func() errorsx.Error {
		store, err := openStore(config, *connStr)
		if err != nil {
			return errorsx.Wrap(err)
		}
		defer store.Close()

		summaries, err := store.List()
		if err != nil {
			return errorsx.Wrap(err)
		}

		for _, summary := range summaries {
			fmt.Printf("%s\t%s\t%s\n", summary.ID, summary.Name, summary.UpdatedAt.Format(time.RFC3339))
		}

		return nil
	}))
}
