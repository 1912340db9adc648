package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/lexiread/analysis"
	"github.com/richinex/lexiread/internal/logging"
	"github.com/richinex/lexiread/internal/metrics"
	"github.com/richinex/lexiread/model"
	"github.com/richinex/lexiread/overlay"
	"github.com/richinex/lexiread/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRequester struct {
	reply string
	err   error
	calls int
}

func (s *stubRequester) Request(context.Context, string, string, bool) (string, error) {
	s.calls++
	return s.reply, s.err
}

type testEnv struct {
	router    *gin.Engine
	cache     *storage.PhraseCache
	requester *stubRequester
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cache := storage.NewInMemoryPhraseCache()
	requester := &stubRequester{}
	orch := analysis.New(requester, cache, analysis.WithMetrics(m))
	renderer := overlay.NewRenderer(cache, overlay.WithRenderMetrics(m))
	handlers := NewHandlers(orch, cache, renderer, logging.NewNopLogger())
	return &testEnv{
		router:    NewRouter(handlers, reg, logging.NewNopLogger()),
		cache:     cache,
		requester: requester,
	}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAnalyzeThenCacheHit(t *testing.T) {
	env := newTestEnv(t)
	env.requester.reply = `{"type":"word","context_meaning":"你好世界"}`

	w := env.do(http.MethodPost, "/v1/analyze", AnalyzeRequest{Text: "hello world", Context: "Say hello world now"})
	require.Equal(t, http.StatusOK, w.Code)

	var first analysis.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.False(t, first.CacheHit)
	assert.Equal(t, model.KindWord, first.Record.Kind)
	assert.Equal(t, "hello world", first.Record.Original)

	w = env.do(http.MethodPost, "/v1/analyze", AnalyzeRequest{Text: "hello world"})
	var second analysis.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, env.requester.calls)
}

func TestAnalyzeFailureIsErrorRecord(t *testing.T) {
	env := newTestEnv(t)
	env.requester.err = errors.New("connection refused")

	w := env.do(http.MethodPost, "/v1/analyze", AnalyzeRequest{Text: "hello"})
	require.Equal(t, http.StatusOK, w.Code)

	var res analysis.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, model.KindError, res.Record.Kind)
	assert.Equal(t, analysis.ReasonBackend, res.Record.Reason)
}

func TestAnalyzeRejectsMissingText(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/v1/analyze", map[string]string{"context": "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

func TestFullText(t *testing.T) {
	env := newTestEnv(t)
	env.requester.reply = `{"type":"fulltext","core_viewpoint":"观点","logic_flow":"逻辑"}`

	w := env.do(http.MethodPost, "/v1/fulltext", FullTextRequest{Paragraphs: []string{"One.", "Two."}})
	require.Equal(t, http.StatusOK, w.Code)

	var record model.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, model.KindFullText, record.Kind)
	assert.Equal(t, 0, env.cache.Len())
}

func TestExamples(t *testing.T) {
	env := newTestEnv(t)
	env.requester.reply = `{"examples":[{"en":"**Run** a shop.","cn":"经营商店。"}]}`

	w := env.do(http.MethodPost, "/v1/examples", ExamplesRequest{Phrase: "run", Meaning: "经营"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp ExamplesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Examples, 1)

	env.requester.reply = "nothing useful"
	w = env.do(http.MethodPost, "/v1/examples", ExamplesRequest{Phrase: "run", Meaning: "经营"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestOverlay(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.cache.Put(context.Background(), "hello world", model.Record{Kind: model.KindWord}))

	w := env.do(http.MethodPost, "/v1/overlay", OverlayRequest{Text: "Say hello world now"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp OverlayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Segments, 3)
	assert.Equal(t, overlay.SegmentAnnotated, resp.Segments[1].Kind)
	assert.Equal(t, 4, resp.Segments[1].Start)
	assert.Equal(t, 15, resp.Segments[1].End)

	w = env.do(http.MethodPost, "/v1/overlay", OverlayRequest{Paragraphs: []string{"hello world", "nothing"}})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Paragraphs, 2)
	assert.Len(t, resp.Paragraphs[1], 1)
}

func TestPhraseEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, k := range []string{"in spite of", "in spite of the fact", "instead"} {
		require.NoError(t, env.cache.Put(ctx, k, model.Record{Kind: model.KindWord}))
	}

	w := env.do(http.MethodGet, "/v1/phrases?prefix="+url.QueryEscape("in spite"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Phrases []string `json:"phrases"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"in spite of", "in spite of the fact"}, list.Phrases)

	w = env.do(http.MethodGet, "/v1/phrases", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)

	w = env.do(http.MethodGet, "/v1/phrases/"+url.PathEscape("in spite of"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var phrase PhraseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &phrase))
	assert.Equal(t, "in spite of", phrase.Key)

	w = env.do(http.MethodDelete, "/v1/phrases/instead", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, "/v1/phrases/instead", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodGet, "/v1/phrases/instead", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPhraseKeysWithSlash(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.cache.Put(context.Background(), "and/or", model.Record{Kind: model.KindWord}))

	w := env.do(http.MethodGet, "/v1/phrases/and/or", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var phrase PhraseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &phrase))
	assert.Equal(t, "and/or", phrase.Key)

	w = env.do(http.MethodDelete, "/v1/phrases/"+url.PathEscape("and/or"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := env.cache.Get("and/or")
	assert.False(t, ok)

	w = env.do(http.MethodGet, "/v1/phrases/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.requester.reply = `{"type":"word"}`
	env.do(http.MethodPost, "/v1/analyze", AnalyzeRequest{Text: "hello"})

	w := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lexiread_phrase_cache_lookups_total{result="miss"} 1`)
}
