// Package analysis coordinates phrase analysis: cache lookup, backend
// request, response normalization and cache write-back.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	jsonutil "github.com/richinex/lexiread/internal/json"
	"github.com/richinex/lexiread/internal/logging"
	"github.com/richinex/lexiread/internal/metrics"
	"github.com/richinex/lexiread/llm"
	"github.com/richinex/lexiread/model"
)

var (
	// ErrMalformedResponse means the backend reply held no usable JSON object.
	ErrMalformedResponse = errors.New("malformed analysis response")
	// ErrEmptySelection means the selected text was blank after trimming.
	ErrEmptySelection = errors.New("empty selection")
)

// Error record reasons.
const (
	ReasonAuth              = "auth"
	ReasonExhaustedRetries  = "exhausted_retries"
	ReasonMalformedResponse = "malformed_response"
	ReasonEmptySelection    = "empty_selection"
	ReasonBackend           = "backend"
)

// failureMessage is shown to the reader for every failed analysis.
const failureMessage = "分析失败"

// fullTextOriginal labels full-text records, which have no single source phrase.
const fullTextOriginal = "Full Text Analysis"

// Requester sends one prompt to the analysis backend. *llm.AnalysisClient
// implements it.
type Requester interface {
	Request(ctx context.Context, prompt, systemInstruction string, structured bool) (string, error)
}

// Cache is the phrase cache as seen by the orchestrator.
type Cache interface {
	Get(key string) (model.Record, bool)
	Put(ctx context.Context, key string, record model.Record) error
}

// Result is the outcome of analysing one selection.
type Result struct {
	Record    model.Record `json:"record" yaml:"record"`
	CacheHit  bool         `json:"cache_hit" yaml:"cache_hit"`
	RequestID string       `json:"request_id" yaml:"request_id"`
	// Generation is the selection generation within the session.
	Generation uint64 `json:"generation" yaml:"generation"`
	// Stale is set when a newer selection in the same session began while
	// this one was in flight. Display layers should discard stale results.
	Stale bool `json:"stale" yaml:"stale"`
}

// Orchestrator resolves selections against the cache and the backend.
type Orchestrator struct {
	client  Requester
	cache   Cache
	tracker *Tracker
	logger  logging.Logger
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics records cache and failure counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracker shares a selection tracker between orchestrators.
func WithTracker(t *Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// New creates an orchestrator.
func New(client Requester, cache Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		cache:   cache,
		tracker: NewTracker(),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze resolves a selection. It never returns an error: failures come
// back as an error record, and such records are never cached.
func (o *Orchestrator) Analyze(ctx context.Context, sel model.Selection) Result {
	generation := o.tracker.Begin(sel.Session)
	res := Result{RequestID: uuid.NewString(), Generation: generation}
	log := o.logger.With(logging.String("request_id", res.RequestID))

	finish := func(record model.Record) Result {
		res.Record = record
		res.Stale = !o.tracker.Current(sel.Session, generation)
		return res
	}

	text := strings.TrimSpace(sel.Text)
	if text == "" {
		return finish(o.failure(log, ErrEmptySelection))
	}

	if record, ok := o.cache.Get(text); ok {
		o.metrics.CacheLookup(true)
		log.Debug("phrase cache hit", logging.String("phrase", text))
		res.CacheHit = true
		return finish(record)
	}
	o.metrics.CacheLookup(false)

	target := Classify(text)
	log.Info("analysing selection",
		logging.String("phrase", text),
		logging.String("target", string(target)))

	reply, err := o.client.Request(ctx, selectionPrompt(target, text, sel.Context), analystSystem, true)
	if err != nil {
		return finish(o.failure(log, err))
	}

	record, err := decodeSelection(reply, target)
	if err != nil {
		return finish(o.failure(log, err))
	}
	record.Original = text

	// The entry is in memory even when the flush fails, so the result stands.
	if err := o.cache.Put(ctx, text, record); err != nil {
		log.Error("phrase cache flush failed", logging.String("phrase", text), logging.Err(err))
	}
	return finish(record)
}

// AnalyzeFullText summarizes a whole document. The paragraphs are joined
// with newlines and truncated before sending. Results are never cached.
func (o *Orchestrator) AnalyzeFullText(ctx context.Context, paragraphs []string) model.Record {
	log := o.logger.With(logging.String("request_id", uuid.NewString()))

	text := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(text) == "" {
		return o.failure(log, ErrEmptySelection)
	}

	log.Info("analysing full text", logging.Int("paragraphs", len(paragraphs)), logging.Int("bytes", len(text)))
	reply, err := o.client.Request(ctx, fullTextPrompt(text), tutorSystem, true)
	if err != nil {
		return o.failure(log, err)
	}

	record, ok := jsonutil.Decode[*model.Record](reply)
	if !ok || record == nil {
		return o.failure(log, ErrMalformedResponse)
	}
	if record.Kind == "" {
		record.Kind = model.KindFullText
	}
	record.Original = fullTextOriginal
	return *record
}

// ExamplesForMeaning asks for three example sentences using phrase in one
// of its other meanings. Nothing is cached.
func (o *Orchestrator) ExamplesForMeaning(ctx context.Context, phrase, meaning string) ([]model.Example, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, ErrEmptySelection
	}

	reply, err := o.client.Request(ctx, examplesPrompt(phrase, meaning), "", true)
	if err != nil {
		return nil, fmt.Errorf("examples for %q: %w", phrase, err)
	}

	type examplesReply struct {
		Examples []model.Example `json:"examples"`
	}
	decoded, ok := jsonutil.Decode[examplesReply](reply)
	if !ok || len(decoded.Examples) == 0 {
		return nil, fmt.Errorf("examples for %q: %w", phrase, ErrMalformedResponse)
	}
	return decoded.Examples, nil
}

// decodeSelection turns a backend reply into a cacheable record.
func decodeSelection(reply string, target Target) (model.Record, error) {
	decoded, ok := jsonutil.Decode[*model.Record](reply)
	if !ok || decoded == nil {
		return model.Record{}, ErrMalformedResponse
	}
	record := *decoded

	switch record.Kind {
	case model.KindWord, model.KindGrammar, model.KindEntity:
	case model.KindError:
		msg := record.Message
		if msg == "" {
			msg = record.Explanation.String()
		}
		return model.Record{}, fmt.Errorf("backend reported an error: %s", msg)
	default:
		// Missing or unexpected kinds take the requested one.
		record.Kind = target.Kind()
	}
	return record, nil
}

// failure logs err and converts it to an error record.
func (o *Orchestrator) failure(log logging.Logger, err error) model.Record {
	reason := ReasonFor(err)
	o.metrics.AnalysisFailure(reason)
	log.Warn("analysis failed", logging.String("reason", reason), logging.Err(err))
	return model.ErrorRecord(reason, failureMessage)
}

// ReasonFor maps an analysis error to its error record reason.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, llm.ErrAuthFailure):
		return ReasonAuth
	case errors.Is(err, llm.ErrExhaustedRetries):
		return ReasonExhaustedRetries
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformedResponse
	case errors.Is(err, ErrEmptySelection):
		return ReasonEmptySelection
	default:
		return ReasonBackend
	}
}
