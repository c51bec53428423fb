package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/answer"
	"github.com/rtyshyk/telegram-rag/internal/authn"
	"github.com/rtyshyk/telegram-rag/internal/config"
	"github.com/rtyshyk/telegram-rag/internal/embedding"
	"github.com/rtyshyk/telegram-rag/internal/search"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

func testState(t *testing.T, seedChildren string) (*AppState, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"root":{"children":[` + seedChildren + `]}}`))
	}))
	t.Cleanup(srv.Close)

	client := vespa.NewClient(srv.URL)
	searcher := search.NewSearcher(client, embedding.NewStubBackend("stub", 8))
	expander := search.NewExpander(client)

	hash, err := authn.HashPassword("correct horse")
	require.NoError(t, err)
	authnSvc := authn.New(authn.Config{
		AppUser: "alice", AppUserHashBcrypt: hash, SessionSecret: "s3cret",
		SessionTTL: time.Hour, LoginRateMaxAttempts: 5, LoginRateWindow: time.Minute,
	})

	answerCfg := answer.Config{
		RateLimitPerMinute: 30, ReformulationModel: "stub", ChatModel: "stub",
		Retrieval: answer.RetrievalConfig{
			DefaultResultLimit: 10, SeedLimit: 30, RerankCandidateLimit: 40,
			DedupeIDGap: 10, DedupeTimeGapMs: 120000,
			MessageWindow: 15, TimeWindowMinutes: 45, MinMessages: 1, MaxMessages: 80,
			TokenLimit: 1800, MaxReturn: 25,
		},
	}
	answerer := answer.New(answerCfg, searcher, expander, nil, answer.StubChatProvider{})

	cfg := &config.Settings{}
	cfg.Auth.SessionTTLHours = 1
	cfg.Auth.LoginRateWindowSeconds = 60
	cfg.CORS.UIOrigin = "http://localhost:3000"
	cfg.Chat.ChatModel = "stub"
	cfg.Retrieval.SearchDefaultLimit = 10
	cfg.Retrieval.SearchSeedLimit = 30
	cfg.Retrieval.SearchNeighborMessageWindow = 15
	cfg.Retrieval.SearchNeighborTimeWindowMinutes = 45
	cfg.Retrieval.SearchNeighborMinMessages = 1
	cfg.Retrieval.SearchCandidateMaxMessages = 80
	cfg.Retrieval.SearchCandidateTokenLimit = 1800
	cfg.Retrieval.SearchContextMaxReturn = 25
	cfg.Embedding.EmbedModel = "stub"

	state := New(cfg, authnSvc, searcher, expander, nil, answerer, nil, false)
	return state, NewRouter(state)
}

func TestHealthz_ReturnsOK(t *testing.T) {
	_, router := testState(t, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "\"status\":\"ok\"")
}

func TestChats_UnauthenticatedReturns401(t *testing.T) {
	_, router := testState(t, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, 401, w.Code)
}

func TestLogin_WrongPasswordReturns401(t *testing.T) {
	_, router := testState(t, "")
	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "wrong"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, 401, w.Code)
}

func TestLogin_SucceedsAndGrantsSearchAccess(t *testing.T) {
	children := `{"id":"a","fields":{"chat_id":"c1","message_id":1,"text":"hello world","message_date":1000},"relevance":0.9}`
	_, router := testState(t, children)

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "correct horse"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	var cookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == "rag_session" {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)

	searchBody, _ := json.Marshal(map[string]string{"query": "flight"})
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(searchBody))
	req2.Header.Set("Content-Type", "application/json")
	req2.AddCookie(&http.Cookie{Name: "rag_session", Value: cookie})
	router.ServeHTTP(w2, req2)
	assert.Equal(t, 200, w2.Code)
	assert.Contains(t, w2.Body.String(), "\"ok\":true")
}

func loginAndGetCookie(t *testing.T, router *gin.Engine) string {
	t.Helper()
	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "correct horse"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == "rag_session" {
			return c.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

func TestModels_ListsConfiguredModel(t *testing.T) {
	_, router := testState(t, "")
	cookie := loginAndGetCookie(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.AddCookie(&http.Cookie{Name: "rag_session", Value: cookie})
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "\"id\":\"stub\"")
}

// TestChat_StreamsSSEFrames hits the router through a real listener rather
// than an httptest.ResponseRecorder: gin's c.Stream relies on the
// ResponseWriter implementing http.CloseNotifier, which the recorder does
// not, so streaming handlers need a live connection to exercise honestly.
func TestChat_StreamsSSEFrames(t *testing.T) {
	children := `{"id":"a","fields":{"chat_id":"c1","message_id":1,"text":"hello world","message_date":1000},"relevance":0.9}`
	_, router := testState(t, children)
	cookie := loginAndGetCookie(t, router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(map[string]string{"query": "hello"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/chat", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "rag_session", Value: cookie})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.True(t, strings.Contains(string(respBody), "data: "))
	assert.True(t, strings.Contains(string(respBody), "\"type\":\"end\""))
}
