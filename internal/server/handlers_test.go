package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designengine/internal/engine"
	"designengine/internal/llmclient"
	"designengine/internal/registry"
	"designengine/internal/render"
	"designengine/internal/schema/schematest"
	"designengine/internal/server"
	"designengine/internal/session"
	"designengine/internal/watch"
)

const questionsReply = `{
  "questions": [
    {
      "question_text": "Which authentication approach fits best?",
      "type": "multi_choice",
      "options": ["OIDC via company SSO", "Email and password", "Magic links", "API keys only", "SAML", "Other"]
    }
  ]
}`

func designReply(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(schematest.ValidDesign())
	require.NoError(t, err)
	return string(raw)
}

func newTestServer(t *testing.T, replies ...llmclient.ScriptedReply) (*httptest.Server, *llmclient.ScriptedClient) {
	t.Helper()
	client := llmclient.NewScriptedClient(replies...)
	hub := watch.NewHub()
	eng, err := engine.New(engine.Config{
		LLM:          client,
		Store:        session.NewMemoryStore(),
		Registry:     registry.New(),
		Renderer:     render.NewDocxRenderer(),
		Notifier:     hub,
		Retry:        engine.RetryPolicy{MaxAttempts: 5},
		DocumentsDir: t.TempDir(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(eng, hub, "design_engine"))
	t.Cleanup(srv.Close)
	return srv, client
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createProjectBody() map[string]any {
	return map[string]any{
		"user":                "alice",
		"project_name":        "Inventory System",
		"project_type":        "Web Application",
		"platform":            "Web",
		"description":         "Track stock levels and purchase orders.",
		"core_features":       []string{"Stock tracking", "Purchase orders", "Low-stock alerts"},
		"expected_user_scale": "Up to 10k users",
		"constraints":         []string{"Cost"},
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateProjectReturnsQuestions(t *testing.T) {
	srv, client := newTestServer(t, llmclient.ScriptedReply{JSON: questionsReply})

	resp, body := postJSON(t, srv.URL+"/v1/projects", createProjectBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))
	require.NotEmpty(t, sessionID)
	assert.Contains(t, string(body["questions"]), "Which authentication approach fits best?")
	assert.Equal(t, 1, client.CallCount())
}

func TestCreateProjectValidation(t *testing.T) {
	srv, client := newTestServer(t)

	bad := createProjectBody()
	bad["project_type"] = "Spaceship"
	resp, body := postJSON(t, srv.URL+"/v1/projects", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body["violations"]), "project_type")
	assert.Zero(t, client.CallCount())

	noUser := createProjectBody()
	delete(noUser, "user")
	resp, _ = postJSON(t, srv.URL+"/v1/projects", noUser)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionRoutesRequireUser(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/sessions/abc/questions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/sessions/nope/questions?user=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFullWorkflowOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t,
		llmclient.ScriptedReply{JSON: questionsReply},
		llmclient.ScriptedReply{JSON: designReply(t)},
	)

	resp, body := postJSON(t, srv.URL+"/v1/projects", createProjectBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))

	base := srv.URL + "/v1/sessions/" + sessionID

	// Questions are retrievable after creation.
	getResp, err := http.Get(base + "/questions?user=alice")
	require.NoError(t, err)
	getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	// Incomplete answers are rejected.
	resp, _ = postJSON(t, base+"/answers?user=alice", map[string]any{
		"answers": map[string][]string{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = postJSON(t, base+"/answers?user=alice", map[string]any{
		"answers": map[string][]string{
			"Which authentication approach fits best?": {"OIDC via company SSO"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = postJSON(t, base+"/design?user=alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body["design"]), "Inventory System Design")

	// The completed document shows up in the user's listing.
	listResp, err := http.Get(srv.URL + "/v1/users/alice/documents")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var listing struct {
		Documents []registry.Entry `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listing))
	require.Len(t, listing.Documents, 1)
	assert.Equal(t, "Inventory System", listing.Documents[0].Project)
}

func TestFeedbackRefinesDesign(t *testing.T) {
	refined := schematest.ValidDesign()
	refined.ExecutiveSummary.Purpose = "Track stock levels with multi-warehouse support."
	refinedJSON, err := json.Marshal(refined)
	require.NoError(t, err)

	srv, _ := newTestServer(t,
		llmclient.ScriptedReply{JSON: questionsReply},
		llmclient.ScriptedReply{JSON: designReply(t)},
		llmclient.ScriptedReply{JSON: string(refinedJSON)},
	)

	_, body := postJSON(t, srv.URL+"/v1/projects", createProjectBody())
	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))
	base := srv.URL + "/v1/sessions/" + sessionID

	resp, _ := postJSON(t, base+"/answers?user=alice", map[string]any{
		"answers": map[string][]string{
			"Which authentication approach fits best?": {"OIDC via company SSO"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, base+"/design?user=alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = postJSON(t, base+"/feedback?user=alice", map[string]any{
		"feedback": "Please account for multiple warehouses.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body["design"]), "multi-warehouse")

	// Feedback against a design-less session fails.
	resp, _ = postJSON(t, base+"/feedback?user=alice", map[string]any{"feedback": ""})
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}
