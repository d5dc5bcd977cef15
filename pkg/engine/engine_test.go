package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GPTNLP/AURA/internal/config"
	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/chunkstore"
	"github.com/GPTNLP/AURA/pkg/index"
)

// mockAI scripts the model calls so engine tests run offline. Keyword
// extraction is driven by the keywords field, answer generation echoes the
// prompt so tests can assert on the assembled context.
type mockAI struct {
	extractions map[string]string
	keywords    *QueryKeywords
	failFormat  bool
	answer      string
}

func (m *mockAI) GenerateCompletion(_ context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	options := &ai.GenerateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	for _, sp := range options.SystemPrompts {
		if sp == ai.AnswerSystemPrompt {
			if m.answer != "" {
				return m.answer, nil
			}
			return "Answer based on: " + prompt, nil
		}
		if sp == ai.CommunityPrompt {
			return "Community summary.", nil
		}
	}
	for substring, output := range m.extractions {
		if strings.Contains(prompt, substring) {
			return output, nil
		}
	}
	return "", nil
}

func (m *mockAI) GenerateCompletionWithFormat(_ context.Context, name, _, _ string, out any, _ ...ai.GenerateOption) error {
	if m.failFormat {
		return ai.MalformedResponse("scripted failure")
	}
	if name == "query_keywords" && m.keywords != nil {
		payload, _ := json.Marshal(m.keywords)
		return json.Unmarshal(payload, out)
	}
	return json.Unmarshal([]byte(`{"groups": []}`), out)
}

func (m *mockAI) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	text := strings.ToLower(string(input))
	vec := []float32{0.01, 0.01, 0.01, 0.01}
	for i, term := range []string{"alice", "acme", "springfield"} {
		if strings.Contains(text, term) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func testConfig() config.Config {
	return config.Config{
		CompletionModel:  "test-model",
		TopK:             6,
		VectorWeight:     0.75,
		ContextBudget:    8000,
		Temperature:      0.05,
		ResolveBatchSize: 50,
		CommunitySeed:    1,
		Parallelism:      2,
	}
}

func newTestEngine(t *testing.T, mock *mockAI) *Engine {
	t.Helper()
	e, err := New(t.TempDir(), mock, testConfig())
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return e
}

func acmeEngine(t *testing.T) *Engine {
	t.Helper()
	mock := &mockAI{
		extractions: map[string]string{
			"Alice works": `("entity"|Alice|person|An employee of Acme.)##
("entity"|Acme|organization|A company.)##
("relationship"|Alice|Acme|Alice works at Acme.|employment)`,
			"located in": `("entity"|Acme|organization|Headquartered in Springfield.)##
("entity"|Springfield|geo|A city.)##
("relationship"|Acme|Springfield|Acme is located in Springfield.|location)`,
		},
		keywords: &QueryKeywords{HighLevel: []string{"employment"}, LowLevel: []string{"Alice", "Acme"}},
	}
	e := newTestEngine(t, mock)

	_, err := e.Build(context.Background(), BuildRequest{Chunks: []index.Input{
		{Text: "Alice works at Acme.", Meta: map[string]string{"source": "doc1.txt"}},
		{Text: "Acme is located in Springfield.", Meta: map[string]string{"source": "doc2.txt"}},
	}}, false)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return e
}

func TestExtractQueryKeywordsFallback(t *testing.T) {
	e := newTestEngine(t, &mockAI{failFormat: true})

	kw := e.ExtractQueryKeywords(context.Background(), "where does alice work")
	if len(kw.HighLevel) != 1 || kw.HighLevel[0] != "where does alice work" {
		t.Fatalf("expected query verbatim fallback, got %+v", kw)
	}
	if len(kw.LowLevel) != 0 {
		t.Fatalf("expected empty low-level keywords, got %+v", kw.LowLevel)
	}
}

func TestQueryEmptyStore(t *testing.T) {
	e := newTestEngine(t, &mockAI{})

	res, err := e.Query(context.Background(), "anything", ModeHybrid, 6)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if res.Answer != EmptyStoreAnswer {
		t.Fatalf("unexpected answer: %q", res.Answer)
	}
	if res.Sources == nil || len(res.Sources) != 0 {
		t.Fatalf("expected empty non-nil sources, got %v", res.Sources)
	}
}

func TestQueryEndToEnd(t *testing.T) {
	e := acmeEngine(t)

	res, err := e.Query(context.Background(), "Where does Alice work?", ModeHybrid, 6)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if res.Answer == "" {
		t.Fatal("expected an answer")
	}
	if len(res.Hits) == 0 {
		t.Fatal("expected hits")
	}

	foundSource := false
	for _, source := range res.Sources {
		if source == "doc1.txt" {
			foundSource = true
		}
	}
	if !foundSource {
		t.Fatalf("expected doc1.txt in sources, got %v", res.Sources)
	}
	if !strings.Contains(res.Answer, "Acme") {
		t.Fatalf("expected assembled context to mention Acme, got %q", res.Answer)
	}
}

func TestQueryVectorAndBM25Modes(t *testing.T) {
	e := acmeEngine(t)

	for _, mode := range []string{ModeVector, ModeBM25} {
		res, err := e.Query(context.Background(), "Alice", mode, 3)
		if err != nil {
			t.Fatalf("mode %s failed: %v", mode, err)
		}
		if len(res.Hits) == 0 {
			t.Fatalf("mode %s returned no hits", mode)
		}
	}

	if _, err := e.Query(context.Background(), "Alice", "grep", 3); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestQuerySourcesDeduplicated(t *testing.T) {
	e := acmeEngine(t)

	res, err := e.Query(context.Background(), "Tell me about Acme and Alice and Springfield", ModeHybrid, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	seen := make(map[string]bool)
	for _, source := range res.Sources {
		if seen[source] {
			t.Fatalf("duplicate source %q in %v", source, res.Sources)
		}
		seen[source] = true
	}
}

func TestAssembleContextBounded(t *testing.T) {
	e := newTestEngine(t, &mockAI{})
	e.cfg.ContextBudget = 200

	var hits []chunkstore.Hit
	for i := 0; i < 10; i++ {
		hits = append(hits, chunkstore.Hit{Row: chunkstore.Row{Text: strings.Repeat("long text ", 20)}})
	}

	assembled := e.assembleContext(hits, []string{"A -- B: related."})
	if len(assembled) > 200+len(TruncationMarker) {
		t.Fatalf("context exceeds budget: %d bytes", len(assembled))
	}
	if !strings.HasSuffix(assembled, TruncationMarker) {
		t.Fatal("expected truncation marker")
	}
}

func TestEngineReloadsPersistedState(t *testing.T) {
	mock := &mockAI{
		extractions: map[string]string{
			"Alice works": `("entity"|Alice|person|An employee.)##("entity"|Acme|organization|A company.)##("relationship"|Alice|Acme|Employment.|work)`,
		},
	}
	dir := t.TempDir()

	e, err := New(dir, mock, testConfig())
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	if _, err := e.Build(context.Background(), BuildRequest{Chunks: []index.Input{
		{Text: "Alice works at Acme.", Meta: map[string]string{"source": "doc1.txt"}},
	}}, false); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	reloaded, err := New(dir, mock, testConfig())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.graph.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes after reload, got %d", reloaded.graph.NodeCount())
	}
	if reloaded.chunks.Len() == 0 {
		t.Fatal("expected chunks after reload")
	}

	res, err := reloaded.Query(context.Background(), "Where does Alice work?", ModeVector, 3)
	if err != nil {
		t.Fatalf("query on reloaded engine failed: %v", err)
	}
	if len(res.Hits) == 0 {
		t.Fatal("expected hits from persisted state")
	}
}

func TestRetrieveGraphExpansion(t *testing.T) {
	e := acmeEngine(t)

	// Force a hit on an entity profile chunk: search for the profile
	// text directly.
	hits, expansions, err := e.retrieve(context.Background(), "Alice", ModeHybrid, 10)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if len(expansions) == 0 {
		t.Fatal("expected graph expansions from entity profile hits")
	}
	joined := strings.Join(expansions, "\n")
	if !strings.Contains(joined, "ACME") {
		t.Fatalf("expected neighbor expansion to mention ACME, got %q", joined)
	}
}

// deadlineAI records the context deadline the answer call runs under.
type deadlineAI struct {
	mockAI
	deadline    time.Time
	hasDeadline bool
}

func (d *deadlineAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	d.deadline, d.hasDeadline = ctx.Deadline()
	return d.mockAI.GenerateCompletion(ctx, prompt, opts...)
}

func TestQueryRunsUnderQueryTimeout(t *testing.T) {
	e := acmeEngine(t)
	capture := &deadlineAI{mockAI: mockAI{keywords: &QueryKeywords{HighLevel: []string{"Alice"}}}}
	e.client = capture
	e.cfg.QueryTimeout = 5 * time.Second

	start := time.Now()
	if _, err := e.Query(context.Background(), "Where does Alice work?", ModeBM25, 3); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if !capture.hasDeadline {
		t.Fatal("expected a deadline on the answer call")
	}
	if remaining := capture.deadline.Sub(start); remaining <= 0 || remaining > 5*time.Second {
		t.Fatalf("deadline %v away from start, want within the 5s timeout", remaining)
	}
}

var errUnavailable = errors.New("unavailable")

type downAI struct{ mockAI }

func (d *downAI) GenerateCompletion(context.Context, string, ...ai.GenerateOption) (string, error) {
	return "", ai.ServiceUnavailable(errUnavailable)
}

func TestQueryAnswerFailureSurfaces(t *testing.T) {
	e := acmeEngine(t)
	e.client = &downAI{mockAI: mockAI{keywords: &QueryKeywords{HighLevel: []string{"Alice"}}}}

	_, err := e.Query(context.Background(), "Where does Alice work?", ModeBM25, 3)
	if !errors.Is(err, ai.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}
