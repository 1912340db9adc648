// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/richinex/lexiread/analysis"
	"github.com/richinex/lexiread/internal/logging"
	"github.com/richinex/lexiread/model"
	"github.com/richinex/lexiread/overlay"
)

// Analyzer is the orchestrator surface the handlers call.
type Analyzer interface {
	Analyze(ctx context.Context, sel model.Selection) analysis.Result
	AnalyzeFullText(ctx context.Context, paragraphs []string) model.Record
	ExamplesForMeaning(ctx context.Context, phrase, meaning string) ([]model.Example, error)
}

// PhraseIndex is the phrase cache surface the handlers call.
type PhraseIndex interface {
	Keys() []string
	WithPrefix(prefix string) []string
	Get(key string) (model.Record, bool)
	Delete(ctx context.Context, key string) (bool, error)
}

// Overlay renders overlay trees for document text.
type Overlay interface {
	Render(text string) []overlay.Segment
	RenderParagraphs(paragraphs []string) [][]overlay.Segment
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Text    string `json:"text" binding:"required"`
	Context string `json:"context"`
	Session string `json:"session"`
}

// FullTextRequest is the body of POST /v1/fulltext.
type FullTextRequest struct {
	Paragraphs []string `json:"paragraphs" binding:"required"`
}

// ExamplesRequest is the body of POST /v1/examples.
type ExamplesRequest struct {
	Phrase  string `json:"phrase" binding:"required"`
	Meaning string `json:"meaning" binding:"required"`
}

// ExamplesResponse is the reply of POST /v1/examples.
type ExamplesResponse struct {
	Examples []model.Example `json:"examples"`
}

// OverlayRequest is the body of POST /v1/overlay. Exactly one of Text and
// Paragraphs is used; Paragraphs wins when both are set.
type OverlayRequest struct {
	Text       string   `json:"text"`
	Paragraphs []string `json:"paragraphs"`
}

// OverlayResponse carries segments for Text or for each paragraph.
type OverlayResponse struct {
	Segments   []overlay.Segment   `json:"segments,omitempty"`
	Paragraphs [][]overlay.Segment `json:"paragraphs,omitempty"`
}

// PhraseResponse is the reply of GET /v1/phrases/*key.
type PhraseResponse struct {
	Key    string       `json:"key"`
	Record model.Record `json:"record"`
}

// Handlers holds the dependencies of the HTTP handlers.
type Handlers struct {
	analyzer Analyzer
	phrases  PhraseIndex
	overlay  Overlay
	logger   logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(analyzer Analyzer, phrases PhraseIndex, renderer Overlay, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handlers{analyzer: analyzer, phrases: phrases, overlay: renderer, logger: logger}
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.Warn("invalid request body", logging.String("path", c.FullPath()), logging.Err(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
}

// HandleAnalyze analyses a selection. Failed analyses are still 200 with an
// error record, matching what the reader sees.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res := h.analyzer.Analyze(c.Request.Context(), model.Selection{
		Text:    req.Text,
		Context: req.Context,
		Session: req.Session,
	})
	c.JSON(http.StatusOK, res)
}

// HandleFullText summarizes a document.
func (h *Handlers) HandleFullText(c *gin.Context) {
	var req FullTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.analyzer.AnalyzeFullText(c.Request.Context(), req.Paragraphs))
}

// HandleExamples generates examples for an alternate meaning.
func (h *Handlers) HandleExamples(c *gin.Context) {
	var req ExamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	examples, err := h.analyzer.ExamplesForMeaning(c.Request.Context(), req.Phrase, req.Meaning)
	if err != nil {
		h.logger.Warn("examples failed", logging.String("phrase", req.Phrase), logging.Err(err))
		status, code := http.StatusBadGateway, "BACKEND_FAILURE"
		if errors.Is(err, analysis.ErrEmptySelection) {
			status, code = http.StatusBadRequest, "EMPTY_SELECTION"
		}
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}
	c.JSON(http.StatusOK, ExamplesResponse{Examples: examples})
}

// HandleOverlay renders the overlay for a text or a list of paragraphs.
func (h *Handlers) HandleOverlay(c *gin.Context) {
	var req OverlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if req.Paragraphs != nil {
		c.JSON(http.StatusOK, OverlayResponse{Paragraphs: h.overlay.RenderParagraphs(req.Paragraphs)})
		return
	}
	c.JSON(http.StatusOK, OverlayResponse{Segments: h.overlay.Render(req.Text)})
}

// HandleListPhrases lists cached keys, optionally filtered by ?prefix=.
func (h *Handlers) HandleListPhrases(c *gin.Context) {
	var keys []string
	if prefix := c.Query("prefix"); prefix != "" {
		keys = h.phrases.WithPrefix(prefix)
	} else {
		keys = h.phrases.Keys()
	}
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"phrases": keys, "count": len(keys)})
}

// phraseKey reads the catch-all key param, which gin reports with its
// leading slash. Writes 400 and returns false when the key is empty.
func phraseKey(c *gin.Context) (string, bool) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "phrase key is required", Code: "INVALID_REQUEST"})
		return "", false
	}
	return key, true
}

// HandleGetPhrase returns one cached record.
func (h *Handlers) HandleGetPhrase(c *gin.Context) {
	key, ok := phraseKey(c)
	if !ok {
		return
	}
	record, ok := h.phrases.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "phrase not cached", Code: "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, PhraseResponse{Key: key, Record: record})
}

// HandleDeletePhrase removes a cached phrase.
func (h *Handlers) HandleDeletePhrase(c *gin.Context) {
	key, ok := phraseKey(c)
	if !ok {
		return
	}
	existed, err := h.phrases.Delete(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("phrase delete failed", logging.String("phrase", key), logging.Err(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete phrase", Code: "STORE_FAILURE"})
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "phrase not cached", Code: "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "key": key})
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
