package server

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/apiclient"
	"github.com/HerbHall/sportdesk/internal/search"
	"github.com/HerbHall/sportdesk/internal/theme"
	"github.com/HerbHall/sportdesk/internal/version"
	"github.com/HerbHall/sportdesk/pkg/models"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en"{{if .Class}} class="{{.Class}}"{{end}}>
<head>
<meta charset="utf-8">
<meta name="{{.MetaName}}" content="{{.Scheme}}">
<title>sportdesk</title>
<script>{{.Prepaint}}</script>
</head>
<body>
<nav>{{range .Kinds}}
<a href="/api/v1/search/{{.}}" data-icon="{{.Icon}}">{{.}}</a>{{end}}
</nav>
<main id="app" data-theme-preference="{{.Preference}}" data-version="{{.Version}}"></main>
</body>
</html>
`))

type indexData struct {
	Class      string
	MetaName   string
	Scheme     string
	Prepaint   template.JS
	Preference theme.Preference
	Version    string
	Kinds      []models.EntityKind
}

// handleIndex serves the dashboard shell. The root class and meta tag
// carry the server-resolved theme and the inline script re-resolves
// before first paint, falling back to the server's preference when the
// browser has none stored.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl := theme.FromContext(r.Context())
	pref := ctrl.Preference()
	data := indexData{
		Class:      s.deps.Root.HTMLClass(),
		MetaName:   theme.ColorSchemeMeta,
		Scheme:     s.deps.Root.MetaColorScheme(),
		Prepaint:   template.JS(theme.PrepaintScript(s.deps.StorageKey, pref)),
		Preference: pref,
		Version:    version.Short(),
		Kinds:      models.AllKinds,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

// handleSearch runs one search through the API. The same trigger policy
// as the interactive controller applies: short queries return the empty
// page without calling the API.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	kind := models.EntityKind(r.PathValue("kind"))
	if !kind.Valid() {
		NotFound(w, "unknown entity kind: "+string(kind), r.URL.Path)
		return
	}
	if s.deps.API == nil {
		InternalError(w, "search API not configured", r.URL.Path)
		return
	}

	q := r.URL.Query()
	filters := models.SearchFilters{
		FreeText:   q.Get("q"),
		Category:   q.Get("group"),
		SubFilter:  q.Get("sport"),
		PageNumber: 1,
		PerPage:    s.deps.PerPage,
	}
	if filters.SubFilter != "" && filters.Category == "" {
		BadRequest(w, search.ErrNoCategory.Error(), r.URL.Path)
		return
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			BadRequest(w, "page must be a positive integer", r.URL.Path)
			return
		}
		filters.PageNumber = n
	}

	if !search.ShouldQuery(filters) {
		writeJSON(w, http.StatusOK, models.EmptyPage(filters.PerPage))
		return
	}
	page, err := s.deps.API.Search(r.Context(), kind, search.RequestFor(filters))
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleSports lists the sports of a group.
func (s *Server) handleSports(w http.ResponseWriter, r *http.Request) {
	if s.deps.API == nil {
		InternalError(w, "search API not configured", r.URL.Path)
		return
	}
	sports, err := s.deps.API.Sports(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sports)
}

// handleCoach returns the coach with their clubs and groups.
func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	if s.deps.Coaches == nil {
		InternalError(w, "coach lookups not configured", r.URL.Path)
		return
	}
	detail, err := s.deps.Coaches.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// upstreamError maps an API client failure onto a problem response.
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	msg := apiclient.Message(err)
	var ae *apiclient.Error
	if !errors.As(err, &ae) {
		s.logger.Error("upstream call failed", zap.String("path", r.URL.Path), zap.Error(err))
		InternalError(w, msg, r.URL.Path)
		return
	}
	s.logger.Warn("upstream call failed",
		zap.String("path", r.URL.Path),
		zap.String("code", string(ae.Code)),
		zap.Int("upstream_status", ae.StatusCode),
	)
	switch {
	case ae.Code == apiclient.ErrCodeTokenExpired || ae.StatusCode == http.StatusUnauthorized:
		Unauthorized(w, msg, r.URL.Path)
	case ae.StatusCode == http.StatusNotFound:
		NotFound(w, msg, r.URL.Path)
	case ae.StatusCode == http.StatusTooManyRequests:
		RateLimited(w, msg, r.URL.Path)
	default:
		BadGateway(w, msg, r.URL.Path)
	}
}
