package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
)

// ProjectReader serves the published collection.
type ProjectReader interface {
	List(opts project.ListOptions) []project.Project
	Get(id string) (project.Project, error)
	Portfolio(wallet string) []project.Holding
}

// Routes holds the handlers mounted by NewServer. Nil handlers are not
// mounted.
type Routes struct {
	MCP      http.Handler
	Metrics  http.Handler
	Projects ProjectReader
	// Auth guards the REST API. Nil leaves it open.
	Auth func(http.Handler) http.Handler
}

// Server wires HTTP handlers.
type Server struct {
	projects ProjectReader
}

// NewServer creates the HTTP router.
func NewServer(routes Routes) *chi.Mux {
	r := chi.NewRouter()
	srv := &Server{projects: routes.Projects}

	r.Get("/health", srv.handleHealth)
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	if routes.MCP != nil {
		r.Handle("/mcp", routes.MCP)
	}
	if routes.Projects != nil {
		r.Route("/api", func(r chi.Router) {
			if routes.Auth != nil {
				r.Use(routes.Auth)
			}
			r.Get("/projects", srv.handleListProjects)
			r.Get("/projects/{id}", srv.handleGetProject)
			r.Get("/portfolio", srv.handlePortfolio)
		})
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := project.ListOptions{
		Domain: project.ResearchDomain(q.Get("domain")),
		Tag:    q.Get("tag"),
		Owner:  q.Get("owner"),
		State:  proof.State(q.Get("state")),
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}
	writeBody(w, http.StatusOK, map[string]any{"projects": s.projects.List(opts)})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(chi.URLParam(r, "id"))
	if errors.Is(err, project.ErrProjectNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeBody(w, http.StatusOK, p)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	wallet, ok := WalletFromContext(r.Context())
	if !ok {
		wallet = r.URL.Query().Get("wallet")
	}
	if wallet == "" {
		http.Error(w, "wallet required", http.StatusBadRequest)
		return
	}
	writeBody(w, http.StatusOK, map[string]any{"wallet": wallet, "holdings": s.projects.Portfolio(wallet)})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return n, nil
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
