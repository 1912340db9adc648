package overlay

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/lexiread/model"
	"github.com/richinex/lexiread/storage"
)

func word(meaning string) model.Record {
	return model.Record{Kind: model.KindWord, ContextMeaning: model.Text(meaning)}
}

func TestScanDropsShortKeys(t *testing.T) {
	src := Records{"a": word("一"), "I": word("我")}
	assert.Empty(t, Scan("a cat and I", src))
}

func TestScanIsCaseInsensitiveAndWhitespaceTolerant(t *testing.T) {
	src := Records{"hello world": word("你好")}
	text := "HELLO\n  World, and hello world."

	matches := Scan(text, src)
	require.Len(t, matches, 2)
	assert.Equal(t, "HELLO\n  World", matches[0].Text)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, len("HELLO\n  World"), matches[0].End)
	assert.Equal(t, "hello world", matches[0].Key)
	assert.Equal(t, "hello world", matches[1].Text)
}

func TestScanMatchesUnicodeWhitespace(t *testing.T) {
	src := Records{"hello world": word("你好")}
	for _, text := range []string{"say hello\u00a0world now", "say hello\u3000world now", "say hello\u2028 world now"} {
		matches := Scan(text, src)
		require.Len(t, matches, 1, "%q", text)
		assert.Equal(t, 4, matches[0].Start)
		assert.Equal(t, strings.TrimSuffix(text[4:], " now"), matches[0].Text)
	}

	nbspKey := Records{"hello\u00a0world": word("你好")}
	matches := Scan("say Hello world now", nbspKey)
	require.Len(t, matches, 1)
	assert.Equal(t, "Hello world", matches[0].Text)
}

func TestScannerPrunesDeletedKeys(t *testing.T) {
	s := NewScanner()
	s.Scan("in spite of it all", Records{"in spite of": word("尽管"), "it all": word("一切")})
	assert.Len(t, s.patterns, 2)

	matches := s.Scan("in spite of it all", Records{"it all": word("一切")})
	require.Len(t, matches, 1)
	assert.Len(t, s.patterns, 1)
	assert.Contains(t, s.patterns, "it all")
}

func TestScanEscapesMetacharacters(t *testing.T) {
	src := Records{"e.g. (x)": word("例如")}
	matches := Scan("see e.g. (x) or eXg. (x)", src)
	require.Len(t, matches, 1)
	assert.Equal(t, 4, matches[0].Start)
}

func TestScanNonOverlappingPerKey(t *testing.T) {
	src := Records{"aa": word("")}
	matches := Scan("aaaa", src)
	require.Len(t, matches, 2)
	assert.Equal(t, []int{0, 2}, []int{matches[0].Start, matches[1].Start})
}

func TestScanIsDeterministic(t *testing.T) {
	src := Records{
		"in spite of":          word("尽管"),
		"spite":                word("恶意"),
		"in spite of the rain": word("尽管下雨"),
	}
	text := "In spite of the rain, in spite of everything."
	assert.Equal(t, Scan(text, src), Scan(text, src))
}

func TestLongestMatchPreference(t *testing.T) {
	src := Records{"hello": word("你好"), "hello world": word("你好世界")}
	text := "say hello world now"

	segments := Build(text, 0, len(text), Scan(text, src))
	require.Len(t, segments, 3)

	top := segments[1]
	assert.Equal(t, SegmentAnnotated, top.Kind)
	assert.Equal(t, "hello world", top.Key)
	assert.Equal(t, 11, top.End-top.Start)

	// The shorter key nests inside.
	require.Len(t, top.Children, 2)
	assert.Equal(t, "hello", top.Children[0].Key)
	assert.Equal(t, Segment{Kind: SegmentPlain, Start: 9, End: 15, Text: " world"}, top.Children[1])
}

func TestEndToEndOverlay(t *testing.T) {
	recordA := word("你好世界")
	text := "Say hello world now"

	segments := Build(text, 0, len(text), Scan(text, Records{"hello world": recordA}))

	expected := []Segment{
		{Kind: SegmentPlain, Start: 0, End: 4, Text: "Say "},
		{Kind: SegmentAnnotated, Start: 4, End: 15, Text: "hello world", Key: "hello world", Record: &recordA, Hint: HintPhrase},
		{Kind: SegmentPlain, Start: 15, End: 19, Text: " now"},
	}
	assert.Equal(t, expected, segments)
	assert.Empty(t, segments[1].Children)
}

func TestSentenceHint(t *testing.T) {
	assert.Equal(t, HintPhrase, HintFor("in spite of"))
	assert.Equal(t, HintPhrase, HintFor("take it easy"))
	assert.Equal(t, HintSentence, HintFor("the cat sat down"))
}

func TestBuildDropsCrossingMatches(t *testing.T) {
	text := "abcdefgh"
	matches := []Match{
		{Start: 0, End: 4, Key: "abcd"},
		{Start: 2, End: 6, Key: "cdef"},
	}

	segments := Build(text, 0, len(text), matches)
	require.Len(t, segments, 2)
	assert.Equal(t, "abcd", segments[0].Key)
	assert.Empty(t, segments[0].Children)
	assert.Equal(t, Segment{Kind: SegmentPlain, Start: 4, End: 8, Text: "efgh"}, segments[1])
}

func TestBuildSubRange(t *testing.T) {
	text := "0123456789"
	matches := []Match{{Start: 4, End: 6, Key: "45"}, {Start: 8, End: 10, Key: "89"}}

	segments := Build(text, 2, 8, matches)
	assert.Equal(t, "234567", Flatten(segments))
	require.Len(t, segments, 3)
	assert.Equal(t, "45", segments[1].Key)
}

func TestBuildEmptyText(t *testing.T) {
	assert.Empty(t, Build("", 0, 0, nil))
}

// checkTree asserts coverage and containment at every level.
func checkTree(t *testing.T, text string, start, end int, segments []Segment) {
	t.Helper()
	cursor := start
	for _, s := range segments {
		require.Equal(t, cursor, s.Start, "segments must be contiguous")
		require.LessOrEqual(t, s.End, end, "segment escapes parent range")
		require.Equal(t, text[s.Start:s.End], s.Text)
		if len(s.Children) > 0 {
			checkTree(t, text, s.Start, s.End, s.Children)
		}
		cursor = s.End
	}
	require.Equal(t, end, cursor, "segments must cover the range")
}

func TestCoverageAndNesting(t *testing.T) {
	src := Records{
		"in spite of":                   word("尽管"),
		"spite":                         word("恶意"),
		"of the":                        word(""),
		"the rain":                      word("雨"),
		"In spite of the rain we went.": {Kind: model.KindGrammar},
		"went out":                      word(""),
		"x":                             word(""),
	}
	texts := []string{
		"In spite of the rain we went. Then in  spite\tof the rain we went out.",
		"",
		"nothing cached here",
		"spite spite spite",
	}

	for _, text := range texts {
		segments := Build(text, 0, len(text), Scan(text, src))
		assert.Equal(t, text, Flatten(segments))
		checkTree(t, text, 0, len(text), segments)

		again := Build(text, 0, len(text), Scan(text, src))
		assert.Equal(t, segments, again, "rebuild must be structurally identical")
	}
}

func TestSplitParagraphs(t *testing.T) {
	text := "  First paragraph. \r\n\n\n Second one.\n   \nThird"
	assert.Equal(t, []string{"First paragraph.", "Second one.", "Third"}, SplitParagraphs(text))
	assert.Empty(t, SplitParagraphs("\n \n"))
}

func TestRendererMemoizesUntilCacheChanges(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewInMemoryPhraseCache()
	require.NoError(t, cache.Put(ctx, "hello world", word("你好世界")))

	r := NewRenderer(cache)
	text := "Say hello world now"

	first := r.Render(text)
	require.Len(t, first, 3)
	second := r.Render(text)
	assert.Same(t, &first[0], &second[0], "expected the memoized tree")

	require.NoError(t, cache.Put(ctx, "now", word("现在")))
	third := r.Render(text)
	require.Len(t, third, 4)
	assert.Equal(t, "now", third[3].Key)
}

func TestRendererEvictsOldest(t *testing.T) {
	cache := storage.NewInMemoryPhraseCache()
	r := NewRenderer(cache, WithMemoSize(2))

	r.Render("one")
	r.Render("two")
	r.Render("three")

	assert.Len(t, r.memo, 2)
	assert.Equal(t, 2, len(r.order))
	for _, e := range r.memo {
		assert.NotEqual(t, "one", e.text)
	}
}

func TestRenderParagraphs(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewInMemoryPhraseCache()
	require.NoError(t, cache.Put(ctx, "take off", word("起飞")))

	r := NewRenderer(cache)
	out := r.RenderParagraphs(SplitParagraphs("The plane will take off.\n\nPlanes TAKE\nOFF daily."))
	require.Len(t, out, 3)
	assert.Equal(t, "take off", out[0][1].Key)
	for i, segs := range out {
		assert.False(t, strings.Contains(Flatten(segs), "\n"), "paragraph %d", i)
	}
}
