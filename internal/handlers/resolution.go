// Package handlers exposes the resolution engine over HTTP
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// Resolver is the part of the orchestrator the endpoint needs.
// *provider.Orchestrator implements it.
type Resolver interface {
	Resolve(ctx context.Context, q models.EpisodeQuery) (models.Result, int)
	Total() int
	Descriptors() []models.ProviderDescriptor
}

// errorBody is the JSON body of a rejected request
type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// ProvidersResponse lists the providers in fallback order
type ProvidersResponse struct {
	Providers []models.ProviderDescriptor `json:"providers"`
	Total     int                         `json:"total"`
}

// queryFromRequest reads the resolution parameters from path values when the
// route carries them, otherwise from the query string.
func queryFromRequest(r *http.Request) models.EpisodeQuery {
	params := r.URL.Query()

	slug := r.PathValue("slug")
	if slug == "" {
		slug = params.Get("slug")
	}
	episode := r.PathValue("episode")
	if episode == "" {
		episode = params.Get("episode")
	}

	return models.EpisodeQuery{
		AnimeSlug: strings.TrimSpace(slug),
		Episode:   strings.TrimSpace(episode),
		Season:    parseSeason(params.Get("season")),
		TitleHint: strings.TrimSpace(params.Get("title")),
		Start:     parseStart(params.Get("start")),
	}
}

// parseSeason returns the leading integer of raw, or the default when it is
// missing or not positive
func parseSeason(raw string) int {
	n, ok := util.LeadingInt(raw)
	if !ok || n < 1 {
		return models.DefaultSeason
	}
	return n
}

// parseStart returns the leading integer of raw clamped to 0
func parseStart(raw string) int {
	n, ok := util.LeadingInt(raw)
	if !ok || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request) {
	q := queryFromRequest(r)
	if q.AnimeSlug == "" || q.Episode == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: true, Message: "slug and episode are required"})
		return
	}

	res, index := s.resolver.Resolve(r.Context(), q)
	resolution := models.NewResolution(res, index, s.resolver.Total())
	annotate(w, res.Provider, index)

	if index == -1 || !res.OK() {
		if resolution.Message == "" {
			resolution.Message = "episode not found on any provider"
		}
		resolution.Error = true
		resolution.Episode = nil
		s.perf.IncrementCounter("http.resolution.not_found")
		writeJSON(w, http.StatusNotFound, resolution)
		return
	}

	s.perf.IncrementCounter("http.resolution.ok")
	util.Debug("resolved episode", "slug", q.AnimeSlug, "episode", q.Episode, "provider", res.Provider, "index", index)
	writeJSON(w, http.StatusOK, resolution)
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Providers: s.resolver.Descriptors(),
		Total:     s.resolver.Total(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.perf == nil {
		writeJSON(w, http.StatusOK, util.PerfSnapshot{Counters: map[string]int64{}})
		return
	}
	writeJSON(w, http.StatusOK, s.perf.Snapshot())
}
