package overlay

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/lexiread/internal/metrics"
	"github.com/richinex/lexiread/model"
)

// DefaultMemoSize bounds the number of memoized texts.
const DefaultMemoSize = 256

// SnapshotSource is a phrase cache that versions its contents.
type SnapshotSource interface {
	Generation() uint64
	Snapshot() (map[string]model.Record, uint64)
}

type memoEntry struct {
	text       string
	generation uint64
	segments   []Segment
}

// Renderer rebuilds overlay trees for document text from the current cache
// contents. Trees are memoized per text and invalidated when the cache
// generation moves. Returned segments are shared; callers must not modify
// them.
type Renderer struct {
	source   SnapshotSource
	scanner  *Scanner
	capacity int
	metrics  *metrics.Metrics

	mu         sync.Mutex
	records    Records
	recordsGen uint64
	haveRecs   bool
	memo       map[uint64]memoEntry
	order      []uint64
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithMemoSize overrides DefaultMemoSize. Zero disables memoization.
func WithMemoSize(n int) RendererOption {
	return func(r *Renderer) { r.capacity = n }
}

// WithRenderMetrics counts memo hits and rebuilds.
func WithRenderMetrics(m *metrics.Metrics) RendererOption {
	return func(r *Renderer) { r.metrics = m }
}

// NewRenderer creates a renderer over source.
func NewRenderer(source SnapshotSource, opts ...RendererOption) *Renderer {
	r := &Renderer{
		source:   source,
		scanner:  NewScanner(),
		capacity: DefaultMemoSize,
		memo:     make(map[uint64]memoEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the overlay tree for the whole of text.
func (r *Renderer) Render(text string) []Segment {
	gen := r.source.Generation()
	sum := xxhash.Sum64String(text)

	r.mu.Lock()
	if e, ok := r.memo[sum]; ok && e.generation == gen && e.text == text {
		r.mu.Unlock()
		r.metrics.OverlayRender(true)
		return e.segments
	}
	records, gen := r.currentRecords()
	r.mu.Unlock()

	segments := Build(text, 0, len(text), r.scanner.Scan(text, records))
	r.metrics.OverlayRender(false)

	r.mu.Lock()
	r.remember(sum, memoEntry{text: text, generation: gen, segments: segments})
	r.mu.Unlock()
	return segments
}

// RenderParagraphs renders each paragraph independently.
func (r *Renderer) RenderParagraphs(paragraphs []string) [][]Segment {
	out := make([][]Segment, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = r.Render(p)
	}
	return out
}

// currentRecords returns the snapshot for the current generation, taking a
// new one only when the cache has changed. Caller holds r.mu.
func (r *Renderer) currentRecords() (Records, uint64) {
	gen := r.source.Generation()
	if !r.haveRecs || r.recordsGen != gen {
		snapshot, snapGen := r.source.Snapshot()
		r.records = Records(snapshot)
		r.recordsGen = snapGen
		r.haveRecs = true
	}
	return r.records, r.recordsGen
}

// remember stores e, evicting the oldest entry past capacity. Caller holds r.mu.
func (r *Renderer) remember(sum uint64, e memoEntry) {
	if r.capacity <= 0 {
		return
	}
	if _, exists := r.memo[sum]; !exists {
		r.order = append(r.order, sum)
	}
	r.memo[sum] = e
	for len(r.order) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.memo, oldest)
	}
}
