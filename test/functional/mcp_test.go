package functional_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/testserver"
	"github.com/stretchr/testify/require"
)

const (
	owner  = "0x5c1e000000000000000000000000000000000001"
	backer = "0xf00d000000000000000000000000000000000002"
)

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if b.token != "" {
		r.Header.Set("Authorization", "Bearer "+b.token)
	}
	return b.next.RoundTrip(r)
}

func connect(t *testing.T, ts *testserver.TestServer, token string) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.MCPURL(),
		HTTPClient: &http.Client{Transport: bearer{token: token, next: http.DefaultTransport}},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// callTool makes a tools/call and returns the text content.
func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) json.RawMessage {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.False(t, result.IsError, "Tool %s error: %s", name, text.Text)
	return json.RawMessage(text.Text)
}

func seedProject(t *testing.T, ts *testserver.TestServer) string {
	t.Helper()
	meta := ts.Gateway.PutJSON(t, map[string]any{
		"title":       "Gripper",
		"description": "Adaptive grasping",
		"domain":      "Robotics",
	})
	proofAddr := ts.Gateway.PutJSON(t, map[string]any{
		"description": "reran the benchmark",
		"code_url":    "https://example.org/code",
		"output_url":  "https://example.org/out",
	})
	ts.Ledger.SetProof(proofAddr, proof.LedgerProof{Recorder: backer, RecordedAt: 1_700_000_000}, true)
	ts.Ledger.AddProject(project.Summary{
		Creator:        owner,
		ProjectAddress: meta,
		ProofAddresses: []string{proofAddr},
		FundingGoal:    1000,
	})
	return meta
}

func TestFunctional_Authentication(t *testing.T) {
	ts := testserver.New(t, "token", owner)
	session := connect(t, ts, "")

	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "list_projects", Arguments: map[string]any{}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")

	resp, err := http.Get(ts.Server.URL + "/api/projects")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFunctional_SessionAndReads(t *testing.T) {
	ts := testserver.New(t, "token", owner)
	id := seedProject(t, ts)
	session := connect(t, ts, ts.Token)

	var started struct {
		Session struct {
			ID     string `json:"id"`
			Wallet string `json:"wallet"`
			Role   string `json:"role"`
		} `json:"session"`
		Projects int `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "start_session", map[string]any{"role": "Scientist"}), &started))
	require.Equal(t, owner, started.Session.Wallet)
	require.Equal(t, "Scientist", started.Session.Role)
	require.Equal(t, 1, started.Projects)

	var list struct {
		Projects []struct {
			ID          string         `json:"id"`
			Title       string         `json:"title"`
			ProofStates map[string]int `json:"proof_states"`
		} `json:"projects"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "list_projects", nil), &list))
	require.Equal(t, 1, list.Total)
	require.Equal(t, id, list.Projects[0].ID)
	require.Equal(t, 1, list.Projects[0].ProofStates["Success"])

	var mine struct {
		Owned []struct {
			ID string `json:"id"`
		} `json:"owned"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "my_projects", nil), &mine))
	require.Len(t, mine.Owned, 1)

	var closed struct {
		Closed bool `json:"closed"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "close_session", map[string]any{"session_id": started.Session.ID}), &closed))
	require.True(t, closed.Closed)

	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+"/api/projects/"+id, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p project.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, "Gripper", p.Metadata.Title)
}

func TestFunctional_FundingByAnotherWallet(t *testing.T) {
	ts := testserver.New(t, "token", owner)
	id := seedProject(t, ts)
	require.NoError(t, ts.AddAPIKey("backer-token", backer))

	session := connect(t, ts, "backer-token")
	callTool(t, session, "start_session", map[string]any{"role": "Funder"})

	var ev struct {
		ProjectTitle string `json:"project_title"`
		Amount       int64  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "fund_project", map[string]any{"project_id": id, "amount": 300}), &ev))
	require.Equal(t, "Gripper", ev.ProjectTitle)
	require.Equal(t, int64(300), ev.Amount)

	var funding struct {
		Events   []map[string]any `json:"events"`
		Progress struct {
			Raised   int64   `json:"raised"`
			Fraction float64 `json:"fraction"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "list_funding", map[string]any{"project_id": id}), &funding))
	require.Len(t, funding.Events, 1)
	require.Equal(t, int64(300), funding.Progress.Raised)
	require.InDelta(t, 0.3, funding.Progress.Fraction, 1e-9)

	// The backer does not own the project.
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "record_outputs",
		Arguments: map[string]any{"project_id": id, "outputs_address": "bafyOut"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].(*sdkmcp.TextContent).Text, "NOT_OWNER")

	resp, err := http.Get(ts.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
