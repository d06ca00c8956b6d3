package webservices

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/jamesrr39/goutil/bolt-tools/boltviz"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/appconfig"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/offline/tilestore"
	"github.com/jamesrr39/ownmapstyle/offlineboltviz"
	"github.com/jamesrr39/ownmapstyle/styling"
	"github.com/paulmach/orb/maptile"
)

const (
	dbPath = "db"
)

type AdminService struct {
	logger        *logpkg.Logger
	pathsConfig   *appconfig.PathsConfig
	styleSet      *styling.StyleSet
	downloadQueue *offline.Queue
	tileStore     *tilestore.Store
	boltvizFunc   http.HandlerFunc
	chi.Router
}

func NewAdminService(
	logger *logpkg.Logger,
	pathsConfig *appconfig.PathsConfig,
	styleSet *styling.StyleSet,
	downloadQueue *offline.Queue,
	tileStore *tilestore.Store,
) (*AdminService, errorsx.Error) {
	boltvizFunc, err := boltviz.NewHandlerFunc(tileStore.DB(), offlineboltviz.GetTemplateMap(), "offline")
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	as := &AdminService{logger, pathsConfig, styleSet, downloadQueue, tileStore, boltvizFunc, chi.NewRouter()}

	as.Router.Get("/"+dbPath+"/*", as.handleDBVisualisation)
	as.Router.Get("/", as.handleGet)
	as.Router.Get("/offline/queue", as.handleGetQueue)
	as.Router.Post("/offline/regions", as.handlePostRegion)

	return as, nil
}

func (as *AdminService) handleDBVisualisation(w http.ResponseWriter, r *http.Request) {
	// boltviz reads the bucket path from the URL, so strip the route prefix
	r.URL.Path = "/" + chi.URLParam(r, "*")
	as.boltvizFunc(w, r)
}

func (as *AdminService) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, as.downloadQueue.GetItems())
}

type postRegionRequest struct {
	StyleID   string   `json:"styleId"`
	RegionID  string   `json:"regionId"`
	Bounds    string   `json:"bounds"`
	MinZoom   uint32   `json:"minZoom"`
	MaxZoom   uint32   `json:"maxZoom"`
	SourceIDs []string `json:"sourceIds"`
}

func (as *AdminService) handlePostRegion(w http.ResponseWriter, r *http.Request) {
	req := new(postRegionRequest)
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		errorsx.HTTPJSONError(w, as.logger, errorsx.Wrap(err), http.StatusBadRequest)
		return
	}

	bounds, boundsErr := offline.ParseBounds(req.Bounds)
	if boundsErr != nil {
		errorsx.HTTPJSONError(w, as.logger, boundsErr, http.StatusBadRequest)
		return
	}

	session, sessionErr := as.styleSet.GetSessionByID(req.StyleID)
	if sessionErr != nil {
		writeError(w, as.logger, sessionErr, http.StatusNotFound)
		return
	}

	style, docErr := session.Document()
	if docErr != nil {
		writeError(w, as.logger, docErr, http.StatusInternalServerError)
		return
	}

	region := offline.TileRegion{
		ID:        req.RegionID,
		Bounds:    bounds,
		MinZoom:   maptile.Zoom(req.MinZoom),
		MaxZoom:   maptile.Zoom(req.MaxZoom),
		SourceIDs: req.SourceIDs,
	}

	queueErr := as.downloadQueue.AddItemToQueue(style, region)
	if queueErr != nil {
		errorsx.HTTPJSONError(w, as.logger, queueErr, http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (as *AdminService) handleGet(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"StyleIDs":            as.styleSet.GetAllStyleIDs(),
		"DefaultStyleID":      as.styleSet.GetDefaultStyleID(),
		"DownloadQueueStatus": as.downloadQueue.GetItems(),
		"TileStorePath":       as.tileStore.Path(),
		"DBPath":              dbPath,
	}

	if as.pathsConfig != nil {
		data["StylesDirImportPath"] = as.pathsConfig.StylesDir
	}

	err := adminTmpl.Execute(w, data)
	if err != nil {
		errorsx.HTTPError(w, as.logger, errorsx.Wrap(err), http.StatusInternalServerError)
		return
	}
}

var adminTmpl *template.Template

func init() {
	var err error
	adminTmpl, err = template.New("admin/index.html").Parse(adminTemplate)
	if err != nil {
		panic(err)
	}
}

const adminTemplate = `
<html>
	<head>
		<title>admin</title>
		<style type="text/css">
		div {
			margin: 10px;
			border: 1px solid grey;
			padding: 10px;
		}
		</style>
		<script>
		function submitRegion(formEl) {
			const body = {
				styleId: formEl.elements["styleId"].value,
				regionId: formEl.elements["regionId"].value,
				bounds: formEl.elements["bounds"].value,
				minZoom: parseInt(formEl.elements["minZoom"].value, 10),
				maxZoom: parseInt(formEl.elements["maxZoom"].value, 10),
			};

			fetch('offline/regions', {method: 'POST', body: JSON.stringify(body)})
				.then(resp => {
					if (!resp.ok) {
						return resp.json().then(e => { throw e.message; });
					}
					alert('region queued for download');
				})
				.catch(e => {
					console.error(e);
					alert('failed to queue region: ' + e);
				});
		}
		</script>
	</head>
	<body>
		<h1>Admin settings</h1>
		<div>
			<h2>Loaded styles</h2>
			{{range .StyleIDs}}
				<p>{{.}}{{if eq . $.DefaultStyleID}} (default){{end}}</p>
			{{end}}
			{{with .StylesDirImportPath}}
				<p>Styles are loaded from <pre>{{.}}</pre></p>
			{{end}}
		</div>

		<div>
			<h2>Offline store</h2>
			<p>
				<a href="{{.DBPath}}/">{{.TileStorePath}}</a>
			</p>
		</div>

		<div>
			<h2>Download Queue:</h2>
			<sub>Refresh page for updates</sub>
			{{range .DownloadQueueStatus}}
				<h3>{{.RegionID}} ({{.StyleID}})</h3>
				<p>Status: {{.Status}}</p>
				<p>% progress: {{printf "%.2f%%" .ProgressPercent}}</p>
				<p>Time in progress: {{.TimeInProgress}}</p>
				{{with .Error}}<p>Error: {{.}}</p>{{end}}
			{{end}}
		</div>

		<div>
			<h3>
				Download a region
			</h3>
			<form action="javascript:;" onsubmit="submitRegion(this)" name="regionForm">
				<p><label>Style <select name="styleId">{{range .StyleIDs}}<option>{{.}}</option>{{end}}</select></label></p>
				<p><label>Region name <input type="text" name="regionId" /></label></p>
				<p><label>Bounds (S,W,N,E) <input type="text" name="bounds" placeholder="61.3,8.0,61.8,9.0" /></label></p>
				<p><label>Min zoom <input type="number" name="minZoom" value="0" /></label></p>
				<p><label>Max zoom <input type="number" name="maxZoom" value="12" /></label></p>
				<input type="submit" value="Go!" />
			</form>
		</div>
	</body>
</html>
`
