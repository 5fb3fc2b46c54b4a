// Package addon serves the manifest and stream endpoints polled by the player
package addon

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/alvarorichard/svetserialu/internal/httpx"
	"github.com/alvarorichard/svetserialu/internal/models"
	"github.com/alvarorichard/svetserialu/internal/util"
	"github.com/alvarorichard/svetserialu/internal/version"
)

// ManifestID identifies the addon to the player
const ManifestID = "io.svetserialu.addon.stealth"

// Manifest describes the addon capabilities
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Catalogs    []string `json:"catalogs"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	IDPrefixes  []string `json:"idPrefixes"`
}

// DefaultManifest is the manifest served at /manifest.json
func DefaultManifest() Manifest {
	return Manifest{
		ID:          ManifestID,
		Version:     version.Version,
		Name:        version.Name,
		Description: "České seriály s anti-bot ochranou - Stealth Mode",
		Catalogs:    []string{},
		Resources:   []string{"stream"},
		Types:       []string{"series"},
		IDPrefixes:  []string{"tt"},
	}
}

// Streamer resolves the streams of one catalog item
type Streamer interface {
	Streams(ctx context.Context, typ, id string) []models.StreamRecord
}

// StreamResponse is the body of a stream request
type StreamResponse struct {
	Streams []models.StreamRecord `json:"streams"`
}

// Handler serves the addon routes
type Handler struct {
	streams  Streamer
	stats    *util.Stats
	manifest Manifest
}

// NewHandler creates the addon handler
func NewHandler(s Streamer, stats *util.Stats) *Handler {
	if stats == nil {
		stats = util.NewStats()
	}
	return &Handler{streams: s, stats: stats, manifest: DefaultManifest()}
}

// Router returns the addon routes
func (h *Handler) Router() http.Handler {
	r := httpx.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/manifest.json", http.StatusFound)
	})
	r.Get("/manifest.json", h.handleManifest)
	r.Get("/stream/{type}/{id}.json", h.handleStream)
	return r
}

func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.manifest)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	h.stats.Touch()

	typ, errType := url.PathUnescape(chi.URLParam(r, "type"))
	id, errID := url.PathUnescape(chi.URLParam(r, "id"))
	if errType != nil || errID != nil {
		util.Warn("Malformed stream path", "path", r.URL.EscapedPath())
		httpx.WriteJSON(w, http.StatusOK, StreamResponse{Streams: []models.StreamRecord{}})
		return
	}
	util.Info("Stream request", "type", typ, "id", id)

	streams := h.streams.Streams(r.Context(), typ, id)
	if streams == nil {
		streams = []models.StreamRecord{}
	}
	httpx.WriteJSON(w, http.StatusOK, StreamResponse{Streams: streams})
}
