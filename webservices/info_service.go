package webservices

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling"
)

func NewInfoService(logger *logpkg.Logger, styleSet *styling.StyleSet) *InfoService {
	ws := &InfoService{logger, styleSet, chi.NewRouter()}
	ws.Get("/", ws.handleGet)

	return ws
}

type InfoService struct {
	logger   *logpkg.Logger
	styleSet *styling.StyleSet
	chi.Router
}

type stylesType struct {
	DefaultStyleID string   `json:"defaultStyleId"`
	StyleIDs       []string `json:"styleIds"`
}

type infoType struct {
	Style stylesType `json:"style"`
}

func (ws *InfoService) handleGet(w http.ResponseWriter, r *http.Request) {
	style := stylesType{
		ws.styleSet.GetDefaultStyleID(),
		ws.styleSet.GetAllStyleIDs(),
	}

	render.JSON(w, r, infoType{style})
}
