package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"devduck/backend/internal/agents"
	"devduck/backend/internal/routing"
	"devduck/backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestService(t *testing.T) *agents.Service {
	t.Helper()
	rs, err := routing.DefaultRules()
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	svc, err := agents.NewService(agents.Config{Rules: rs})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func newTestRouter(t *testing.T, svc *agents.Service, db *store.Database) *gin.Engine {
	t.Helper()
	router, err := NewServerWithService(svc, db, nil).Router()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return router
}

func openTestDB(t *testing.T) *store.Database {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "decisions.db"), true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func postChat(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, payload
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatAgents(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)

	tests := []struct {
		name      string
		body      string
		agentUsed string
		prefix    string
		reasoning string
	}{
		{
			"devduck greeting", `{"message":"hello there","agent":"devduck"}`,
			agents.CoordinatorName, "Hello! I'm your local Node.js development assistant.",
			"Routed to local agent based on request analysis. Local agent chosen for Node.js development tasks.",
		},
		{
			"default agent", `{"message":"hello there"}`,
			agents.CoordinatorName, "Hello! I'm your local Node.js development assistant.",
			"Routed to local agent based on request analysis. Local agent chosen for Node.js development tasks.",
		},
		{
			"devduck architecture", `{"message":"Plan the architecture","agent":"devduck"}`,
			agents.CoordinatorName, "\n🏗️ **Architecture Analysis**",
			"Routed to cerebras agent based on request analysis. Cerebras agent chosen for complex analysis.",
		},
		{
			"local express", `{"message":"express","agent":"local"}`,
			agents.LocalAgentName, "\n🚀 **Express.js Server Example**",
			"",
		},
		{
			"cerebras clarify", `{"message":"what now","agent":"cerebras"}`,
			agents.CerebrasAgentName, "Analyzing your request: 'what now'",
			"",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, payload := postChat(t, router, tc.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
			}
			if payload["agent_used"] != tc.agentUsed {
				t.Fatalf("expected agent_used %s got %v", tc.agentUsed, payload["agent_used"])
			}
			response, _ := payload["response"].(string)
			if !strings.HasPrefix(response, tc.prefix) {
				t.Fatalf("unexpected response %q", response)
			}
			if tc.reasoning == "" {
				if payload["reasoning"] != nil {
					t.Fatalf("expected null reasoning got %v", payload["reasoning"])
				}
			} else if payload["reasoning"] != tc.reasoning {
				t.Fatalf("expected reasoning %q got %v", tc.reasoning, payload["reasoning"])
			}
		})
	}
}

func TestChatAcceptsEmptyMessage(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	w, payload := postChat(t, router, `{"message":"","agent":"local"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if response, _ := payload["response"].(string); !strings.HasPrefix(response, "I understand you're asking about: ''") {
		t.Fatalf("unexpected response %q", response)
	}
}

func TestChatInvalidAgent(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	for _, agent := range []string{"gpt", "LOCAL", "devduck "} {
		w, payload := postChat(t, router, `{"message":"hello","agent":"`+agent+`"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400 got %d", agent, w.Code)
		}
		if payload["error"] != "invalid agent specified" {
			t.Fatalf("%q: unexpected error %v", agent, payload["error"])
		}
	}
}

func TestChatBadBody(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	for _, body := range []string{`not json`, `{"agent":"local"}`, `{"message":42}`} {
		w, _ := postChat(t, router, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, w.Code)
		}
	}
}

func TestChatInternalError(t *testing.T) {
	rs, err := routing.DefaultRules()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	classifier, err := routing.NewClassifier(rs)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	svc := agents.NewServiceWithResponders(classifier, nil, agents.NewCerebrasAgent("", ""))
	router := newTestRouter(t, svc, nil)

	w, payload := postChat(t, router, `{"message":"hello","agent":"local"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if msg, _ := payload["error"].(string); !strings.HasPrefix(msg, "Agent error: ") {
		t.Fatalf("unexpected error %q", msg)
	}

	// the coordinator converts the same failure into an apology
	w, payload = postChat(t, router, `{"message":"hello","agent":"devduck"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if payload["reasoning"] != "Error in coordination" {
		t.Fatalf("unexpected reasoning %v", payload["reasoning"])
	}
	if response, _ := payload["response"].(string); !strings.HasPrefix(response, "I apologize, but I encountered an error:") {
		t.Fatalf("unexpected response %q", response)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	w := get(router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var payload struct {
		Status string   `json:"status"`
		Agents []string `json:"agents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "healthy" || strings.Join(payload.Agents, ",") != "devduck,local,cerebras" {
		t.Fatalf("unexpected health %+v", payload)
	}
}

func TestStatusAndAgents(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)

	var status agents.Status
	if err := json.Unmarshal(get(router, "/status").Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Coordinator != "active" || status.LocalAgent != "active" || status.CerebrasAgent != "inactive" {
		t.Fatalf("unexpected status %+v", status)
	}

	var caps map[string]agents.Capabilities
	if err := json.Unmarshal(get(router, "/agents").Body.Bytes(), &caps); err != nil {
		t.Fatalf("decode agents: %v", err)
	}
	if caps["local"].Model != agents.DefaultLocalModel {
		t.Fatalf("unexpected capabilities %+v", caps)
	}
}

func TestIndexPages(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	for _, path := range []string{"/", "/dev-ui/"} {
		w := get(router, path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: unexpected content type %s", path, ct)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("DevDuck Multi-Agent System")) {
			t.Fatalf("%s: page title missing", path)
		}
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://frontend.test")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("missing CORS header")
	}
}

func TestDecisionsDisabled(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	for _, path := range []string{"/api/decisions", "/api/decisions/stats"} {
		if w := get(router, path); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503 got %d", path, w.Code)
		}
	}
}

func TestDecisionsRecorded(t *testing.T) {
	db := openTestDB(t)
	router := newTestRouter(t, newTestService(t), db)

	for _, body := range []string{
		`{"message":"hello there"}`,
		`{"message":"review my code","agent":"devduck"}`,
		`{"message":"express","agent":"local"}`,
	} {
		if w, _ := postChat(t, router, body); w.Code != http.StatusOK {
			t.Fatalf("chat %s: %d", body, w.Code)
		}
	}
	// rejected requests are not logged
	postChat(t, router, `{"message":"hello","agent":"nope"}`)

	var list DecisionsResponse
	w := get(router, "/api/decisions?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 3 || len(list.Items) != 2 {
		t.Fatalf("unexpected list total=%d items=%d", list.Total, len(list.Items))
	}
	newest := list.Items[0]
	if newest.RequestedAgent != "local" || newest.AgentUsed != agents.LocalAgentName || newest.Label != "" {
		t.Fatalf("unexpected newest decision %+v", newest)
	}
	second := list.Items[1]
	if second.Label != "cerebras" || second.Rule != "code_analysis" || second.Keyword != "review" {
		t.Fatalf("unexpected routed decision %+v", second)
	}

	var stats store.DecisionStats
	if err := json.Unmarshal(get(router, "/api/decisions/stats").Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 3 || len(stats.ByLabel) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if w := get(router, "/api/decisions?limit=abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit got %d", w.Code)
	}
}

func TestDecisionStream(t *testing.T) {
	router := newTestRouter(t, newTestService(t), nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/decisions/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"message":"query optimization please"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event DecisionEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "decision" || event.Label != "cerebras" || event.Rule != "complex_reasoning" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.RequestID == "" {
		t.Fatalf("missing request id")
	}
}
