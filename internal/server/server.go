// Package server implements the Cloudplot HTTP API.
//
// The API exposes the same pipeline the CLI uses: discovery runs produce
// persisted snapshots, diagrams are built from snapshots or inline payloads,
// and stored diagrams can be fetched by content id in any supported format.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cloudplot/cloudplot/pkg/errors"
	"github.com/cloudplot/cloudplot/pkg/pipeline"
	"github.com/cloudplot/cloudplot/pkg/resource"
	"github.com/cloudplot/cloudplot/pkg/source"
	"github.com/cloudplot/cloudplot/pkg/store"
)

// requestTimeout bounds one API request end to end.
const requestTimeout = 60 * time.Second

// Server wires the pipeline runner and the snapshot store into an HTTP API.
// A nil store disables persistence; discovery then returns results inline
// without a snapshot id.
type Server struct {
	Runner *pipeline.Runner
	Store  *store.Store
	Logger *log.Logger
}

// NewServer creates a server. Runner must not be nil; store may be.
func NewServer(runner *pipeline.Runner, st *store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Runner: runner, Store: st, Logger: logger}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/discover", s.handleDiscover)
		v1.Post("/diagrams", s.handleDiagram)
		v1.Get("/diagrams/{id}", s.handleGetDiagram)
		v1.Get("/snapshots", s.handleListSnapshots)
		v1.Get("/snapshots/{id}", s.handleGetSnapshot)
	})

	return r
}

// =============================================================================
// Request / Response Payloads
// =============================================================================

// scopePayload is one inline inventory scope.
type scopePayload struct {
	Provider string               `json:"provider"`
	Account  string               `json:"account,omitempty"`
	Region   string               `json:"region,omitempty"`
	Records  []resource.RawRecord `json:"records"`
}

type discoverRequest struct {
	Scopes  []scopePayload `json:"scopes"`
	Refresh bool           `json:"refresh,omitempty"`
}

type discoverResponse struct {
	SnapshotID   string       `json:"snapshot_id,omitempty"`
	GraphHash    string       `json:"graph_hash"`
	NodeCount    int          `json:"node_count"`
	EdgeCount    int          `json:"edge_count"`
	Malformed    int          `json:"malformed_records"`
	FailedScopes []scopeError `json:"failed_scopes,omitempty"`
}

type scopeError struct {
	Scope string `json:"scope"`
	Error string `json:"error"`
}

type diagramRequest struct {
	// Exactly one of SnapshotID or Scopes supplies the graph.
	SnapshotID string         `json:"snapshot_id,omitempty"`
	Scopes     []scopePayload `json:"scopes,omitempty"`

	Algorithm      string   `json:"algorithm,omitempty"`
	Theme          string   `json:"theme,omitempty"`
	MaxNodesPerRow int      `json:"max_nodes_per_row,omitempty"`
	TierSpacing    float64  `json:"tier_spacing,omitempty"`
	NodeSpacing    float64  `json:"node_spacing,omitempty"`
	Iterations     int      `json:"iterations,omitempty"`
	Epsilon        float64  `json:"epsilon,omitempty"`
	Radius         float64  `json:"radius,omitempty"`
	Formats        []string `json:"formats,omitempty"`
}

type diagramResponse struct {
	DiagramID string            `json:"diagram_id"`
	GraphHash string            `json:"graph_hash"`
	Diagram   json.RawMessage   `json:"diagram"`
	Artifacts map[string][]byte `json:"artifacts,omitempty"` // base64 in JSON
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if len(req.Scopes) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "at least one scope is required"))
		return
	}

	sources := buildSources(req.Scopes)
	opts := pipeline.Options{Refresh: req.Refresh, Logger: s.Logger}

	result, err := s.Runner.Execute(r.Context(), sources, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := discoverResponse{
		GraphHash: result.GraphHash,
		NodeCount: result.Stats.NodeCount,
		EdgeCount: result.Stats.EdgeCount,
		Malformed: result.Stats.Malformed,
	}
	for _, f := range result.FailedScopes {
		resp.FailedScopes = append(resp.FailedScopes, scopeError{
			Scope: f.Scope.String(),
			Error: f.Message(),
		})
	}

	if s.Store != nil {
		scopes := make([]string, 0, len(sources))
		for _, src := range sources {
			scopes = append(scopes, src.Scope().String())
		}
		var failed []string
		for _, f := range result.FailedScopes {
			failed = append(failed, f.Scope.String())
		}
		id, err := s.Store.SaveSnapshot(r.Context(), result.Graph, result.GraphHash, scopes, failed)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.SnapshotID = id
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	var req diagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}

	opts := pipeline.Options{
		Algorithm:      req.Algorithm,
		Theme:          req.Theme,
		MaxNodesPerRow: req.MaxNodesPerRow,
		TierSpacing:    req.TierSpacing,
		NodeSpacing:    req.NodeSpacing,
		Iterations:     req.Iterations,
		Epsilon:        req.Epsilon,
		Radius:         req.Radius,
		Formats:        req.Formats,
		Logger:         s.Logger,
	}
	// Defaults applied up front so the persisted diagram record carries the
	// effective algorithm and theme, not empty strings.
	opts.SetDiagramDefaults()

	var resp diagramResponse

	switch {
	case req.SnapshotID != "":
		if s.Store == nil {
			s.writeError(w, errors.New(errors.ErrCodeUnsupported, "snapshot lookup requires a configured store"))
			return
		}
		snap, err := s.Store.Snapshot(r.Context(), req.SnapshotID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		g, err := store.GraphFromSnapshot(snap)
		if err != nil {
			s.writeError(w, err)
			return
		}
		d, err := s.Runner.BuildDiagram(r.Context(), g, opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		artifacts, err := s.Runner.Render(r.Context(), d, opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		diagramJSON := artifacts[pipeline.FormatJSON]
		if diagramJSON == nil {
			diagramJSON, _ = json.Marshal(d)
		}
		resp = diagramResponse{
			DiagramID: d.ID,
			GraphHash: snap.GraphHash,
			Diagram:   diagramJSON,
			Artifacts: artifacts,
		}
		if s.Store != nil {
			if err := s.Store.SaveDiagram(r.Context(), d, snap.GraphHash, opts.Algorithm, opts.Theme); err != nil {
				s.Logger.Warn("persist diagram failed", "err", err)
			}
		}

	case len(req.Scopes) > 0:
		result, err := s.Runner.Execute(r.Context(), buildSources(req.Scopes), opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		diagramJSON := result.Artifacts[pipeline.FormatJSON]
		if diagramJSON == nil {
			diagramJSON, _ = json.Marshal(result.Diagram)
		}
		resp = diagramResponse{
			DiagramID: result.Diagram.ID,
			GraphHash: result.GraphHash,
			Diagram:   diagramJSON,
			Artifacts: result.Artifacts,
		}
		if s.Store != nil {
			if err := s.Store.SaveDiagram(r.Context(), result.Diagram, result.GraphHash, opts.Algorithm, opts.Theme); err != nil {
				s.Logger.Warn("persist diagram failed", "err", err)
			}
		}

	default:
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "snapshot_id or scopes is required"))
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "diagram lookup requires a configured store"))
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.Store.Diagram(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == pipeline.FormatJSON {
		s.writeJSON(w, http.StatusOK, rec)
		return
	}

	opts := pipeline.Options{Formats: []string{format}, Logger: s.Logger}
	artifacts, err := s.Runner.Render(r.Context(), rec.Description, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "snapshot listing requires a configured store"))
		return
	}

	snaps, err := s.Store.ListSnapshots(r.Context(), 20)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "snapshot lookup requires a configured store"))
		return
	}

	snap, err := s.Store.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// =============================================================================
// Helpers
// =============================================================================

func buildSources(scopes []scopePayload) []source.Source {
	sources := make([]source.Source, 0, len(scopes))
	for _, sc := range scopes {
		records := sc.Records
		for i := range records {
			if records[i].Provider == "" {
				records[i].Provider = sc.Provider
			}
		}
		sources = append(sources, source.NewStatic(source.Scope{
			Provider: sc.Provider,
			Account:  sc.Account,
			Region:   sc.Region,
		}, records))
	}
	return sources
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG:
		return "image/svg+xml"
	case pipeline.FormatPNG:
		return "image/png"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz"
	}
	return "application/json"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encode response", "err", err)
	}
}

// writeError maps structured error codes onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidProvider,
		errors.ErrCodeInvalidAlgorithm, errors.ErrCodeInvalidFormat,
		errors.ErrCodeMalformedRecord:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeThemeNotFound,
		errors.ErrCodeDiagramNotFound, errors.ErrCodeSnapshotNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnsupported:
		status = http.StatusNotImplemented
	}

	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
	}

	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    string(errors.GetCode(err)),
			"message": errors.UserMessage(err),
		},
	})
}

// logRequests logs one line per request in the charm logger format.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
