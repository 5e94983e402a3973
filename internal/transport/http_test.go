package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/stretchr/testify/require"
)

type fakeProjects struct {
	projects []project.Project
	lastOpts project.ListOptions
}

func (f *fakeProjects) List(opts project.ListOptions) []project.Project {
	f.lastOpts = opts
	return f.projects
}

func (f *fakeProjects) Get(id string) (project.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return project.Project{}, project.ErrProjectNotFound
}

func (f *fakeProjects) Portfolio(wallet string) []project.Holding {
	return []project.Holding{{ProjectID: "bafyP", Title: wallet, Units: 10, Fraction: 0.01}}
}

func newTestServer(t *testing.T, routes Routes) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewServer(routes))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPServer_Health(t *testing.T) {
	server := newTestServer(t, Routes{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/projects")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "api is not mounted without a reader")
}

func TestHTTPServer_MountsMCPAndMetrics(t *testing.T) {
	var hits int
	mark := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	})
	server := newTestServer(t, Routes{MCP: mark, Metrics: mark})

	resp, err := http.Post(server.URL+"/mcp", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, 2, hits)
}

func TestHTTPServer_Projects(t *testing.T) {
	projects := &fakeProjects{projects: []project.Project{{ID: "bafyP", Metadata: project.Metadata{Title: "Arm"}}}}
	server := newTestServer(t, Routes{Projects: projects})

	resp, err := http.Get(server.URL + "/api/projects?domain=Robotics&tag=arm&limit=5&offset=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Projects []project.Project `json:"projects"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Projects, 1)
	require.Equal(t, project.DomainRobotics, projects.lastOpts.Domain)
	require.Equal(t, "arm", projects.lastOpts.Tag)
	require.Equal(t, 5, projects.lastOpts.Limit)
	require.Equal(t, 1, projects.lastOpts.Offset)

	resp, err = http.Get(server.URL + "/api/projects/bafyP")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p project.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, "Arm", p.Metadata.Title)

	resp, err = http.Get(server.URL + "/api/projects/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/projects?limit=-2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_PortfolioUsesAuthenticatedWallet(t *testing.T) {
	resolver := &testResolver{tokenToWallet: map[string]string{"token": testWallet}}
	server := newTestServer(t, Routes{Projects: &fakeProjects{}, Auth: AuthMiddleware(resolver)})

	resp, err := http.Get(server.URL + "/api/portfolio")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/portfolio?wallet=0xother", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Wallet   string            `json:"wallet"`
		Holdings []project.Holding `json:"holdings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, testWallet, body.Wallet)
	require.Len(t, body.Holdings, 1)
}
